package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Link-time secrets, set with:
//
//	go build -ldflags "-X 'github.com/muurk/apswitch/internal/config.wifiSSID=MyAP' \
//	                   -X 'github.com/muurk/apswitch/internal/config.wifiPSK=hunter22'"
//
// Keeping them out of the source tree means a checkout never carries a real
// passphrase.
var (
	wifiSSID    string
	wifiPSK     string
	tlsCertFile string
	tlsKeyFile  string
)

// Secrets overrides the compiled-in network credentials and supplies the
// TLS credential. Every field is optional.
type Secrets struct {
	WiFiSSID string `yaml:"wifi_ssid,omitempty"`
	WiFiPSK  string `yaml:"wifi_psk,omitempty"`
	CertFile string `yaml:"tls_cert_file,omitempty"`
	KeyFile  string `yaml:"tls_key_file,omitempty"`
	CertPEM  string `yaml:"tls_cert_pem,omitempty"`
	KeyPEM   string `yaml:"tls_key_pem,omitempty"`
}

// LinkTimeSecrets returns the secrets baked in with -ldflags -X.
func LinkTimeSecrets() *Secrets {
	return &Secrets{
		WiFiSSID: wifiSSID,
		WiFiPSK:  wifiPSK,
		CertFile: tlsCertFile,
		KeyFile:  tlsKeyFile,
	}
}

// LoadSecrets reads a YAML secrets file. The file is never written.
func LoadSecrets(path string) (*Secrets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets file: %w", err)
	}

	var secrets Secrets
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	// An empty file is an empty overlay.
	if err := decoder.Decode(&secrets); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse secrets file %s: %w", path, err)
	}

	return &secrets, nil
}
