package config

import (
	"fmt"
	"net"
	"time"
)

// Compiled-in defaults. Everything the device needs is fixed here; the
// secrets overlay may only replace the network credentials and the TLS
// credential.
const (
	DefaultSerialSpeed  = 115200
	DefaultHostname     = "deadspace001"
	DefaultSSID         = "Deadspace001"
	DefaultPassphrase   = "Pa$$w0rd"
	DefaultInterface    = "wlan0"
	DefaultDeviceIP     = "192.168.1.1"
	DefaultGatewayIP    = "0.0.0.0"
	DefaultSubnetMask   = "255.255.255.0"
	DefaultRootWebTitle = "Deadspace AP"
	DefaultPort         = 443
	DefaultIdleDelay    = time.Millisecond
)

// Settings is the device's network identity plus web server settings.
// It is built once at startup and never mutated afterwards.
type Settings struct {
	SerialSpeed uint32

	Hostname   string
	SSID       string
	Passphrase string
	Interface  string

	DeviceIP   string
	GatewayIP  string
	SubnetMask string

	RootWebTitle string
	Port         int
	IdleDelay    time.Duration

	// TLS credential: inline PEM wins over paths. Both empty means the
	// example credential is used.
	CertPath string
	KeyPath  string
	CertPEM  string
	KeyPEM   string
}

// Defaults returns the compiled-in settings.
func Defaults() *Settings {
	return &Settings{
		SerialSpeed:  DefaultSerialSpeed,
		Hostname:     DefaultHostname,
		SSID:         DefaultSSID,
		Passphrase:   DefaultPassphrase,
		Interface:    DefaultInterface,
		DeviceIP:     DefaultDeviceIP,
		GatewayIP:    DefaultGatewayIP,
		SubnetMask:   DefaultSubnetMask,
		RootWebTitle: DefaultRootWebTitle,
		Port:         DefaultPort,
		IdleDelay:    DefaultIdleDelay,
	}
}

// Load returns the compiled-in settings with the link-time secrets and, if
// secretsPath is not empty, the secrets file applied on top. The result is
// validated.
func Load(secretsPath string) (*Settings, error) {
	s := Defaults()
	s.ApplySecrets(LinkTimeSecrets())

	if secretsPath != "" {
		secrets, err := LoadSecrets(secretsPath)
		if err != nil {
			return nil, err
		}
		s.ApplySecrets(secrets)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ApplySecrets copies every non-empty secret onto the settings.
func (s *Settings) ApplySecrets(secrets *Secrets) {
	if secrets == nil {
		return
	}
	if secrets.WiFiSSID != "" {
		s.SSID = secrets.WiFiSSID
	}
	if secrets.WiFiPSK != "" {
		s.Passphrase = secrets.WiFiPSK
	}
	if secrets.CertFile != "" {
		s.CertPath = secrets.CertFile
	}
	if secrets.KeyFile != "" {
		s.KeyPath = secrets.KeyFile
	}
	if secrets.CertPEM != "" {
		s.CertPEM = secrets.CertPEM
	}
	if secrets.KeyPEM != "" {
		s.KeyPEM = secrets.KeyPEM
	}
}

// Validate checks the settings for configuration errors.
func (s *Settings) Validate() error {
	if s.Hostname == "" {
		return fmt.Errorf("hostname must not be empty")
	}
	if n := len(s.SSID); n == 0 || n > 32 {
		return fmt.Errorf("SSID must be 1-32 bytes, got %d", n)
	}
	// WPA2-PSK passphrase rules
	if n := len(s.Passphrase); n < 8 || n > 63 {
		return fmt.Errorf("passphrase must be 8-63 characters, got %d", n)
	}
	if s.Interface == "" {
		return fmt.Errorf("wireless interface must not be empty")
	}
	if s.IP() == nil {
		return fmt.Errorf("invalid device IP: %q", s.DeviceIP)
	}
	if s.Gateway() == nil {
		return fmt.Errorf("invalid gateway IP: %q", s.GatewayIP)
	}
	mask := s.Mask()
	if mask == nil {
		return fmt.Errorf("invalid subnet mask: %q", s.SubnetMask)
	}
	if ones, bits := mask.Size(); bits == 0 || ones == 0 {
		return fmt.Errorf("subnet mask %q is not a contiguous netmask", s.SubnetMask)
	}
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port out of range: %d", s.Port)
	}
	if s.IdleDelay < 0 {
		return fmt.Errorf("idle delay must not be negative")
	}
	return nil
}

// IP returns the parsed IPv4 device address, or nil if invalid.
func (s *Settings) IP() net.IP {
	return parseIPv4(s.DeviceIP)
}

// Gateway returns the parsed IPv4 gateway, or nil if invalid.
func (s *Settings) Gateway() net.IP {
	return parseIPv4(s.GatewayIP)
}

// HasGateway reports whether a non-zero gateway is configured.
func (s *Settings) HasGateway() bool {
	gw := s.Gateway()
	return gw != nil && !gw.IsUnspecified()
}

// Mask returns the parsed subnet mask, or nil if invalid.
func (s *Settings) Mask() net.IPMask {
	ip := parseIPv4(s.SubnetMask)
	if ip == nil {
		return nil
	}
	return net.IPMask(ip)
}

// CIDR returns the device address in prefix notation, e.g. "192.168.1.1/24".
func (s *Settings) CIDR() string {
	ones, _ := s.Mask().Size()
	return fmt.Sprintf("%s/%d", s.IP(), ones)
}

// ListenAddr returns the host:port the web server binds to: the AP address
// only, never the wildcard.
func (s *Settings) ListenAddr() string {
	return net.JoinHostPort(s.IP().String(), fmt.Sprint(s.Port))
}

func parseIPv4(v string) net.IP {
	ip := net.ParseIP(v)
	if ip == nil {
		return nil
	}
	return ip.To4()
}
