package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/apswitch/internal/certs"
	"github.com/muurk/apswitch/internal/logging"
)

// ErrNoCredential means neither a configured nor the example TLS credential
// is available. The web server must not start.
var ErrNoCredential = errors.New("no TLS credential available")

// exampleCredential is swapped out in tests.
var exampleCredential = certs.ExampleCredential

// ResolveCredential picks the TLS credential for the web server. It tries
// the configured credential first (inline PEM, then cert/key paths) and
// falls back to the embedded example credential with a loud warning.
//
// A configured credential that cannot be loaded is an error; it never
// silently degrades to the example.
func ResolveCredential(s *Settings) (*certs.Credential, error) {
	switch {
	case s.CertPEM != "" || s.KeyPEM != "":
		if s.CertPEM == "" || s.KeyPEM == "" {
			return nil, fmt.Errorf("both tls_cert_pem and tls_key_pem must be set")
		}
		cred, err := certs.FromPEM([]byte(s.CertPEM), []byte(s.KeyPEM))
		if err != nil {
			return nil, fmt.Errorf("configured TLS credential: %w", err)
		}
		logging.Info("Using configured TLS credential",
			zap.String("source", "inline"),
			zap.String("subject", cred.Subject()),
		)
		return cred, nil

	case s.CertPath != "" || s.KeyPath != "":
		if s.CertPath == "" || s.KeyPath == "" {
			return nil, fmt.Errorf("both certificate and key paths must be set, or neither")
		}
		cred, err := certs.LoadFiles(s.CertPath, s.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("configured TLS credential: %w", err)
		}
		logging.Info("Using configured TLS credential",
			zap.String("cert", s.CertPath),
			zap.String("key", s.KeyPath),
			zap.String("subject", cred.Subject()),
		)
		return cred, nil
	}

	cred, err := exampleCredential()
	if err != nil || cred == nil {
		return nil, fmt.Errorf("%w: example credential unavailable: %v", ErrNoCredential, err)
	}
	logging.LogCredentialFallback(cred.Subject())
	return cred, nil
}

// CheckCredential decides whether cred may serve TLS at now. A credential
// that cannot do server auth is an error. The device clock is not trusted:
// the example credential skips the validity window and a configured one
// only warns.
func CheckCredential(cred *certs.Credential, now time.Time) error {
	err := certs.Validate(cred, now)
	if err == nil {
		return nil
	}
	if !errors.Is(err, certs.ErrNotYetValid) && !errors.Is(err, certs.ErrExpired) {
		return err
	}
	if cred.IsExample() {
		return nil
	}
	logging.Warn("TLS credential outside its validity window, clients may reject it",
		zap.String("subject", cred.Subject()),
		zap.Time("now", now),
		zap.Error(err),
	)
	return nil
}
