// Package certs loads, generates and validates the TLS credential served by
// the access point's web server.
//
// A credential comes from one of two places:
//   - configured: PEM files or inline PEM supplied at build time or through
//     the secrets file
//   - example: a self-signed certificate embedded in the binary, issued to
//     apswitch.example.invalid and marked "DO NOT USE IN PRODUCTION"
//
// The example key is public. It exists so a freshly flashed device serves
// HTTPS out of the box; callers are expected to log loudly when it is used.
//
// GenerateSelfSigned produces a fresh ECDSA P-256 credential for a hostname
// and AP address, which is what 'apswitch gencert' writes to disk.
package certs
