package certs

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	_ "embed"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"time"
)

// Example credential shipped with the binary. It is public and must only be
// used for bench testing.
//
//go:embed example/example-cert.pem
var exampleCertPEM []byte

//go:embed example/example-key.pem
var exampleKeyPEM []byte

// Source records where a credential came from.
type Source string

const (
	SourceConfigured Source = "configured"
	SourceExample    Source = "example"
)

// Credential is a certificate chain and private key in PEM form together
// with the parsed key pair.
type Credential struct {
	Source  Source
	CertPEM []byte
	KeyPEM  []byte

	// Path fields are empty for in-memory credentials.
	CertPath string
	KeyPath  string

	pair tls.Certificate
}

// KeyPair returns the parsed certificate for use in a tls.Config.
func (c *Credential) KeyPair() tls.Certificate {
	return c.pair
}

// Leaf returns the parsed leaf certificate.
func (c *Credential) Leaf() *x509.Certificate {
	return c.pair.Leaf
}

// Subject returns the leaf subject, or "" if the leaf could not be parsed.
func (c *Credential) Subject() string {
	if c.pair.Leaf == nil {
		return ""
	}
	return c.pair.Leaf.Subject.String()
}

// IsExample reports whether this is the built-in example credential.
func (c *Credential) IsExample() bool {
	return c.Source == SourceExample
}

// ExampleCredential returns the embedded example credential.
func ExampleCredential() (*Credential, error) {
	cred, err := FromPEM(exampleCertPEM, exampleKeyPEM)
	if err != nil {
		return nil, &CertificateError{Operation: "load_example", Err: err}
	}
	cred.Source = SourceExample
	return cred, nil
}

// FromPEM parses a PEM certificate chain and key into a configured credential.
func FromPEM(certPEM, keyPEM []byte) (*Credential, error) {
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, &CertificateError{Operation: "parse_keypair", Err: err}
	}
	if pair.Leaf == nil && len(pair.Certificate) > 0 {
		leaf, err := x509.ParseCertificate(pair.Certificate[0])
		if err != nil {
			return nil, &CertificateError{Operation: "parse_certificate", Err: err}
		}
		pair.Leaf = leaf
	}

	return &Credential{
		Source:  SourceConfigured,
		CertPEM: certPEM,
		KeyPEM:  keyPEM,
		pair:    pair,
	}, nil
}

// LoadFiles reads a PEM certificate chain and key from disk.
func LoadFiles(certPath, keyPath string) (*Credential, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, &CertificateError{Operation: "load", Path: certPath, Err: err}
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, &CertificateError{Operation: "load", Path: keyPath, Err: err}
	}

	cred, err := FromPEM(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}
	cred.CertPath = certPath
	cred.KeyPath = keyPath
	return cred, nil
}

// CertParams holds parameters for generating a self-signed credential.
type CertParams struct {
	// CommonName is the CN field, normally the AP hostname
	CommonName string
	// Organization is the O field
	Organization string
	// DNSNames are the DNS Subject Alternative Names
	DNSNames []string
	// IPAddresses are the IP Subject Alternative Names
	IPAddresses []net.IP
	// ValidDays is certificate validity in days
	ValidDays int
}

// DefaultCertParams returns parameters for a credential covering the AP's
// hostname (plain and .local) and address.
func DefaultCertParams(hostname string, ip net.IP) CertParams {
	params := CertParams{
		CommonName:   hostname,
		Organization: "apswitch",
		DNSNames:     []string{hostname, hostname + ".local"},
		ValidDays:    3650,
	}
	if ip != nil {
		params.IPAddresses = []net.IP{ip}
	}
	return params
}

// GenerateSelfSigned creates an ECDSA P-256 self-signed server credential.
func GenerateSelfSigned(params CertParams) (*Credential, error) {
	if params.CommonName == "" {
		return nil, &CertificateError{Operation: "generate", Err: fmt.Errorf("common name is required")}
	}
	if params.ValidDays <= 0 {
		return nil, &CertificateError{Operation: "generate", Err: fmt.Errorf("validity must be positive, got %d days", params.ValidDays)}
	}

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, &CertificateError{Operation: "generate_key", Err: err}
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, &CertificateError{Operation: "generate_serial", Err: err}
	}

	notBefore := time.Now().Add(-time.Hour)
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{params.Organization},
			CommonName:   params.CommonName,
		},
		NotBefore:             notBefore,
		NotAfter:              notBefore.AddDate(0, 0, params.ValidDays),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:              params.DNSNames,
		IPAddresses:           params.IPAddresses,
		BasicConstraintsValid: true,
		IsCA:                  false,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return nil, &CertificateError{Operation: "create_certificate", Err: err}
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, &CertificateError{Operation: "marshal_key", Err: err}
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})

	return FromPEM(certPEM, keyPEM)
}

// Validity window errors returned (wrapped) by Validate.
var (
	ErrNotYetValid = errors.New("certificate not yet valid")
	ErrExpired     = errors.New("certificate expired")
)

// Validate checks that a credential can serve TLS now: the leaf must be
// usable for server authentication and within its validity window. Window
// failures wrap ErrNotYetValid or ErrExpired.
func Validate(cred *Credential, now time.Time) error {
	leaf := cred.Leaf()
	if leaf == nil {
		return &CertificateError{Operation: "validate", Err: fmt.Errorf("credential has no leaf certificate")}
	}

	if len(leaf.ExtKeyUsage) > 0 {
		hasServerAuth := false
		for _, usage := range leaf.ExtKeyUsage {
			if usage == x509.ExtKeyUsageServerAuth || usage == x509.ExtKeyUsageAny {
				hasServerAuth = true
				break
			}
		}
		if !hasServerAuth {
			return &CertificateError{
				Operation: "validate",
				Err:       fmt.Errorf("certificate must have ExtKeyUsageServerAuth"),
			}
		}
	}

	if now.Before(leaf.NotBefore) {
		return &CertificateError{
			Operation: "validate",
			Err:       fmt.Errorf("%w until %s", ErrNotYetValid, leaf.NotBefore.Format(time.RFC3339)),
		}
	}
	if now.After(leaf.NotAfter) {
		return &CertificateError{
			Operation: "validate",
			Err:       fmt.Errorf("%w at %s", ErrExpired, leaf.NotAfter.Format(time.RFC3339)),
		}
	}

	return nil
}

// WriteFiles writes the credential as PEM files. The key is written 0600.
func WriteFiles(cred *Credential, certPath, keyPath string) error {
	if err := os.WriteFile(certPath, cred.CertPEM, 0644); err != nil {
		return &CertificateError{Operation: "write", Path: certPath, Err: err}
	}
	if err := os.WriteFile(keyPath, cred.KeyPEM, 0600); err != nil {
		return &CertificateError{Operation: "write", Path: keyPath, Err: err}
	}
	return nil
}
