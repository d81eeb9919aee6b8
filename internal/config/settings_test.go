package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	s := Defaults()

	if err := s.Validate(); err != nil {
		t.Fatalf("Defaults().Validate() error = %v", err)
	}
	if s.SerialSpeed != 115200 {
		t.Errorf("SerialSpeed = %d, want 115200", s.SerialSpeed)
	}
	if s.CIDR() != "192.168.1.1/24" {
		t.Errorf("CIDR() = %q, want 192.168.1.1/24", s.CIDR())
	}
	if s.HasGateway() {
		t.Error("default gateway 0.0.0.0 should count as unset")
	}
	if s.ListenAddr() != "192.168.1.1:443" {
		t.Errorf("ListenAddr() = %q", s.ListenAddr())
	}
	if s.IdleDelay != time.Millisecond {
		t.Errorf("IdleDelay = %v", s.IdleDelay)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"empty hostname", func(s *Settings) { s.Hostname = "" }, "hostname"},
		{"empty SSID", func(s *Settings) { s.SSID = "" }, "SSID"},
		{"long SSID", func(s *Settings) { s.SSID = strings.Repeat("x", 33) }, "SSID"},
		{"short passphrase", func(s *Settings) { s.Passphrase = "short" }, "passphrase"},
		{"long passphrase", func(s *Settings) { s.Passphrase = strings.Repeat("p", 64) }, "passphrase"},
		{"no interface", func(s *Settings) { s.Interface = "" }, "interface"},
		{"bad ip", func(s *Settings) { s.DeviceIP = "192.168.1" }, "device IP"},
		{"ipv6 ip", func(s *Settings) { s.DeviceIP = "fe80::1" }, "device IP"},
		{"bad gateway", func(s *Settings) { s.GatewayIP = "nope" }, "gateway"},
		{"bad mask", func(s *Settings) { s.SubnetMask = "x" }, "subnet"},
		{"non-contiguous mask", func(s *Settings) { s.SubnetMask = "255.0.255.0" }, "contiguous"},
		{"zero port", func(s *Settings) { s.Port = 0 }, "port"},
		{"negative delay", func(s *Settings) { s.IdleDelay = -1 }, "idle delay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(s)
			err := s.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplySecrets(t *testing.T) {
	s := Defaults()
	s.ApplySecrets(&Secrets{WiFiSSID: "LabNet", CertFile: "/c.pem", KeyFile: "/k.pem"})

	if s.SSID != "LabNet" {
		t.Errorf("SSID = %q, want LabNet", s.SSID)
	}
	if s.Passphrase != DefaultPassphrase {
		t.Errorf("empty secret should not override passphrase, got %q", s.Passphrase)
	}
	if s.CertPath != "/c.pem" || s.KeyPath != "/k.pem" {
		t.Errorf("cert paths = %q %q", s.CertPath, s.KeyPath)
	}

	s.ApplySecrets(nil)
	if s.SSID != "LabNet" {
		t.Error("nil secrets should be a no-op")
	}
}

func TestLoad_WithSecretsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.yaml")
	content := "wifi_ssid: LabNet\nwifi_psk: correct-horse-battery\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.SSID != "LabNet" || s.Passphrase != "correct-horse-battery" {
		t.Errorf("secrets not applied: %q %q", s.SSID, s.Passphrase)
	}
	if s.Hostname != DefaultHostname {
		t.Errorf("Hostname = %q, want compiled-in default", s.Hostname)
	}
}

func TestLoad_InvalidSecrets(t *testing.T) {
	dir := t.TempDir()

	unknown := filepath.Join(dir, "unknown.yaml")
	if err := os.WriteFile(unknown, []byte("hostname: other\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(unknown); err == nil {
		t.Error("expected error for unknown key")
	}

	weak := filepath.Join(dir, "weak.yaml")
	if err := os.WriteFile(weak, []byte("wifi_psk: short\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(weak); err == nil {
		t.Error("expected validation error for short passphrase")
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadSecrets_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatal(err)
	}

	secrets, err := LoadSecrets(path)
	if err != nil {
		t.Fatalf("LoadSecrets() error = %v", err)
	}
	if *secrets != (Secrets{}) {
		t.Errorf("expected empty secrets, got %+v", secrets)
	}
}
