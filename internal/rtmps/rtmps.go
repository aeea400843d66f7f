// Package rtmps wires a hot-reloadable client certificate into the TLS
// handshake RTMPS targets delegate to the caller's socket collaborator
// (spec.md §1 explicitly leaves the TLS handshake itself outside this
// library's scope; this package only prepares the *tls.Config).
package rtmps

import (
	"crypto/tls"
	"fmt"
	"log"
	"time"

	tls_certificate_loader "github.com/AgustinSRG/go-tls-certificate-loader"
)

// Loader wraps a hot-reloading client certificate/key pair for mTLS
// RTMPS publishing.
type Loader struct {
	inner *tls_certificate_loader.TlsCertificateLoader
}

// NewLoader starts watching certFile/keyFile for changes, reloading at
// most once per checkReloadPeriod.
func NewLoader(certFile, keyFile string, checkReloadPeriod time.Duration, logger *log.Logger) (*Loader, error) {
	if logger == nil {
		logger = log.Default()
	}
	inner, err := tls_certificate_loader.NewTlsCertificateLoader(tls_certificate_loader.TlsCertificateLoaderConfig{
		CertificatePath:   certFile,
		KeyPath:           keyFile,
		CheckReloadPeriod: checkReloadPeriod,
		OnReload: func() {
			logger.Printf("reloaded client certificate from %s", certFile)
		},
		OnError: func(err error) {
			logger.Printf("certificate reload error: %v", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("rtmps: load client certificate: %w", err)
	}
	return &Loader{inner: inner}, nil
}

// ClientTLSConfig returns a *tls.Config whose GetClientCertificate
// callback always serves the currently loaded certificate, for a
// socket collaborator dialing an RTMPS target with mTLS.
func (l *Loader) ClientTLSConfig(serverName string, insecureSkipVerify bool) *tls.Config {
	return &tls.Config{
		ServerName: serverName,
		GetClientCertificate: func(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
			return l.inner.GetCertificate(nil)
		},
		InsecureSkipVerify: insecureSkipVerify,
	}
}

// Close stops the background reload watcher.
func (l *Loader) Close() error {
	l.inner.Close()
	return nil
}
