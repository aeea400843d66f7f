// This is the command-line entrypoint for the demo publisher. It loads
// configuration, dials the configured target, and drives a Session
// through connect/publish, optionally serving a stats websocket and
// sharing its gamer-mode budget with sibling processes over redis.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"rtmpcast"
	"rtmpcast/internal/config"
	"rtmpcast/internal/gamercoord"
	"rtmpcast/internal/monitor"
	"rtmpcast/internal/netsocket"
	"rtmpcast/internal/rtmps"
)

func main() {
	configPath := flag.String("config", "configs/rtmpcast.example.yaml", "path to configuration file")
	targetOverride := flag.String("target", "", "overrides the configured target URL")
	streamKeyOverride := flag.String("stream-key", "", "overrides the configured/URL stream key")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if v := os.Getenv("RTMP_TARGET_URL"); v != "" {
		cfg.Target.URL = v
	}
	if v := os.Getenv("RTMP_STREAM_KEY"); v != "" {
		cfg.Target.StreamKey = v
	}
	if *targetOverride != "" {
		cfg.Target.URL = *targetOverride
	}
	if *streamKeyOverride != "" {
		cfg.Target.StreamKey = *streamKeyOverride
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	target, err := rtmpcast.ParseTarget(cfg.Target.URL, true)
	if err != nil {
		log.Fatalf("parse target url: %v", err)
	}
	if cfg.Target.AppName != "" {
		target.AppName = cfg.Target.AppName
	}
	if cfg.Target.StreamKey != "" {
		target.StreamName = cfg.Target.StreamKey
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	conn, err := dial(cfg, target)
	if err != nil {
		log.Fatalf("dial %s: %v", target.String(false), err)
	}

	session := rtmpcast.NewSession(netsocket.New(conn), "rtmpcast/1.0")
	session.SetAutoConnectToApp(true)

	if cfg.Auth.JWTSecret != "" {
		session.SetAuthSigningKey(cfg.Auth.JWTSecret, cfg.Auth.Subject, time.Duration(cfg.Auth.TTLSecs)*time.Second)
	}

	if cfg.Gamer.Enabled {
		rtmpcast.SetGamerModeEnabled(true)
		rtmpcast.SetGamerTickFrequency(1000.0 / float64(cfg.Gamer.TickIntervalMS))
		session.EnableGamerMode()
		session.SetGamerReleaseMultiplier(cfg.Gamer.ReleaseMultiplier)
		session.SetGamerMaxBufferBytes(cfg.Gamer.MaxBufferBytes)
	}

	var coordinator *gamercoord.Coordinator
	if cfg.Coordinator.Enabled {
		coordinator = gamercoord.New(cfg.Coordinator.RedisAddr, "", cfg.Coordinator.Channel)
		defer coordinator.Close()
		go coordinator.Watch(ctx, func(b gamercoord.Budget) {
			if b.PublisherCount > 0 {
				session.SetAverageUploadBytesPerSec(b.AvgUploadBytesPerSec / float64(b.PublisherCount))
			}
		})
	}

	session.SetEvents(rtmpcast.Events{
		OnConnectedToApp: func() { log.Printf("connected to app %s", target.AppName) },
		OnCreatedStream:  func(id uint32) { log.Printf("created stream %d", id) },
		OnDisconnected:   func() { log.Printf("disconnected") },
		OnError:          func(err *rtmpcast.Error) { log.Printf("session error: %v", err) },
	})

	if cfg.Monitor.Enabled {
		hub := monitor.NewHub(rtmpcast.NewMonitorSource(session), time.Second)
		http.Handle("/ws", hub)
		go func() {
			if err := http.ListenAndServe(cfg.Monitor.ListenAddr, nil); err != nil {
				log.Printf("monitor listener stopped: %v", err)
			}
		}()
		stop := make(chan struct{})
		go func() {
			<-ctx.Done()
			close(stop)
		}()
		go hub.Run(stop)
	}

	if err := session.Connect(target); err != nil {
		log.Fatalf("connect: %v", err)
	}

	go func() {
		if err := session.ReadLoop(); err != nil {
			log.Printf("read loop ended: %v", err)
			cancel()
		}
	}()

	publisher := rtmpcast.NewPublisher()
	session.AttachPublisher(publisher)
	publisher.OnReady(func() { log.Printf("publish accepted, ready for frames") })

	<-ctx.Done()
	log.Println("shutting down")
	_ = session.Disconnect(true)
}

func dial(cfg *config.Config, target *rtmpcast.Target) (net.Conn, error) {
	addr := net.JoinHostPort(target.Host, strconv.Itoa(target.Port))
	if target.Protocol != rtmpcast.ProtocolRTMPS {
		return net.DialTimeout("tcp", addr, 10*time.Second)
	}

	tlsConfig := &tls.Config{ServerName: target.Host, InsecureSkipVerify: cfg.RTMPS.InsecureSkipVerify}
	if cfg.RTMPS.CertFile != "" && cfg.RTMPS.KeyFile != "" {
		loader, err := rtmps.NewLoader(cfg.RTMPS.CertFile, cfg.RTMPS.KeyFile, time.Duration(cfg.RTMPS.ReloadIntervalMS)*time.Millisecond, nil)
		if err != nil {
			return nil, err
		}
		tlsConfig = loader.ClientTLSConfig(target.Host, cfg.RTMPS.InsecureSkipVerify)
	}
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	return tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
}
