package nsq

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/pkg/errors"
)

// buildTLSConfig turns a TLSConfig into a *tls.Config, loading the root
// CA and client certificate/key files when configured. A prior variant
// of this client accepted RootCAFile/CertFile/KeyFile but never actually
// read them off disk; every field here is honored.
func buildTLSConfig(cfg *TLSConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		ServerName:         cfg.Domain,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	if cfg.RootCAFile != "" {
		caCert, err := os.ReadFile(cfg.RootCAFile)
		if err != nil {
			return nil, errors.Wrap(err, "read TLS root CA file")
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("no certificates found in TLS root CA file")
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.CertFile != "" || cfg.KeyFile != "" {
		if cfg.CertFile == "" || cfg.KeyFile == "" {
			return nil, errors.New("TLS cert_file and key_file must both be set")
		}
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, errors.Wrap(err, "load TLS client certificate")
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}
