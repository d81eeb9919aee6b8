package server

import (
	"crypto/tls"

	"go.uber.org/zap"

	"github.com/muurk/apswitch/internal/certs"
	"github.com/muurk/apswitch/internal/logging"
)

// NewTLSConfig creates the web server's TLS configuration from a credential
// and a session cache. Both are owned by the returned config from here on.
func NewTLSConfig(cred *certs.Credential, sessions *SessionCache) *tls.Config {
	config := &tls.Config{
		Certificates: []tls.Certificate{cred.KeyPair()},
		MinVersion:   tls.VersionTLS12,

		// Resumption goes through the bounded server-side cache.
		SessionTicketsDisabled: false,
	}
	sessions.Attach(config)

	logging.Info("TLS configuration created",
		zap.String("source", string(cred.Source)),
		zap.String("subject", cred.Subject()),
		zap.Int("session_cache_capacity", sessions.Capacity()),
	)

	return config
}

// GetTLSInfo returns human-readable TLS configuration information
func GetTLSInfo(config *tls.Config, cred *certs.Credential, sessions *SessionCache) map[string]interface{} {
	info := map[string]interface{}{
		"min_version":            logging.TLSVersionName(config.MinVersion),
		"num_certs":              len(config.Certificates),
		"credential_source":      string(cred.Source),
		"session_cache_capacity": sessions.Capacity(),
		"session_tickets":        !config.SessionTicketsDisabled,
	}
	if leaf := cred.Leaf(); leaf != nil {
		info["subject"] = leaf.Subject.String()
		info["not_after"] = leaf.NotAfter
	}
	return info
}
