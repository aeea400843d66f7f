package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the complete publisher configuration: the target to
// push to, optional auth, and the ambient subsystems (gamer mode,
// RTMPS client certs, the status monitor, cross-process coordination).
// All fields must have explicit defaults or be required.
type Config struct {
	Target      TargetConfig      `yaml:"target"`
	Auth        AuthConfig        `yaml:"auth,omitempty"`
	Gamer       GamerConfig       `yaml:"gamer,omitempty"`
	RTMPS       RTMPSConfig       `yaml:"rtmps,omitempty"`
	Monitor     MonitorConfig     `yaml:"monitor,omitempty"`
	Coordinator CoordinatorConfig `yaml:"coordinator,omitempty"`
}

// TargetConfig identifies the RTMP endpoint to publish to.
type TargetConfig struct {
	URL       string `yaml:"url"`        // rtmp(s)://host[:port]/app/streamkey
	AppName   string `yaml:"app"`        // overrides the URL path's app segment when set
	StreamKey string `yaml:"stream_key"` // overrides the URL path's stream key segment when set
}

// AuthConfig carries an optional bearer credential attached to the
// connect command.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret,omitempty"`
	Subject   string `yaml:"subject,omitempty"`
	TTLSecs   int    `yaml:"ttl_seconds,omitempty"`
}

// GamerConfig tunes the congestion-aware send pipeline.
type GamerConfig struct {
	Enabled           bool    `yaml:"enabled"`
	TickIntervalMS    int     `yaml:"tick_interval_ms"`
	ReleaseMultiplier float64 `yaml:"release_multiplier"`
	MaxBufferBytes    int     `yaml:"max_buffer_bytes"`
}

// RTMPSConfig holds the hot-reloadable client certificate used when the
// target URL's scheme is rtmps. TLS itself is chosen by that scheme;
// Enabled only turns on validation of these fields.
type RTMPSConfig struct {
	Enabled            bool   `yaml:"enabled"`
	CertFile           string `yaml:"cert_file,omitempty"`
	KeyFile            string `yaml:"key_file,omitempty"`
	ReloadIntervalMS   int    `yaml:"reload_interval_ms,omitempty"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify,omitempty"`
}

// MonitorConfig exposes a websocket feed of session stats.
type MonitorConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr,omitempty"`
}

// CoordinatorConfig enables sharing the gamer-mode send budget across
// multiple publisher processes via redis pub/sub.
type CoordinatorConfig struct {
	Enabled   bool   `yaml:"enabled"`
	RedisAddr string `yaml:"redis_addr,omitempty"`
	Channel   string `yaml:"channel,omitempty"`
}

// Load reads configuration from a YAML file, after loading a .env file
// from the current working directory into the process environment. A
// missing .env is not an error. YAML values are used as written;
// ${VAR} references in them are not expanded.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields

	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

// setDefaults applies explicit default values to unset fields.
func (c *Config) setDefaults() {
	if c.Gamer.TickIntervalMS == 0 {
		c.Gamer.TickIntervalMS = 50
	}
	if c.Gamer.ReleaseMultiplier == 0 {
		c.Gamer.ReleaseMultiplier = 1.3
	}
	if c.Gamer.MaxBufferBytes == 0 {
		c.Gamer.MaxBufferBytes = 4 * 1024 * 1024
	}
	if c.RTMPS.ReloadIntervalMS == 0 {
		c.RTMPS.ReloadIntervalMS = 30000
	}
	if c.Auth.TTLSecs == 0 {
		c.Auth.TTLSecs = 3600
	}
	if c.Monitor.ListenAddr == "" {
		c.Monitor.ListenAddr = ":8090"
	}
	if c.Coordinator.Channel == "" {
		c.Coordinator.Channel = "rtmpcast:gamer-budget"
	}
}
