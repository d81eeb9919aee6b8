// Package config holds the access point's compiled-in settings.
//
// The device has no runtime configuration surface: SSID, passphrase,
// hostname, static addressing, page title and web server port are constants
// in this package. Two overlays exist for values that should not live in the
// source tree:
//
//   - link-time secrets, set with -ldflags -X (SSID, passphrase, TLS
//     certificate and key paths)
//   - an optional read-only YAML secrets file passed to 'apswitch run --secrets'
//
// # Secrets File
//
//	wifi_ssid: LabNet
//	wifi_psk: correct-horse-battery
//	tls_cert_file: /etc/apswitch/cert.pem
//	tls_key_file: /etc/apswitch/key.pem
//
// Unknown keys are rejected. Nothing is ever written back.
//
// # TLS Credential
//
// ResolveCredential tries the configured credential and falls back to the
// embedded example credential, logging a warning. A configured credential
// that fails to load is an error.
package config
