package network

import (
	"net"
	"strings"
	"testing"
)

func TestRenderHostapdConfig(t *testing.T) {
	conf, err := RenderHostapdConfig(testIdentity())
	if err != nil {
		t.Fatalf("RenderHostapdConfig() error = %v", err)
	}

	want := []string{
		"interface=wlan0",
		"driver=nl80211",
		"ssid=Deadspace001",
		"hw_mode=g",
		"channel=6",
		"ap_isolate=0",
		"wpa=2",
		"wpa_key_mgmt=WPA-PSK",
		"rsn_pairwise=CCMP",
		"wpa_passphrase=Pa$$w0rd",
	}
	lines := strings.Split(conf, "\n")
	for _, w := range want {
		found := false
		for _, l := range lines {
			if l == w {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("config missing line %q\n%s", w, conf)
		}
	}
}

func TestRenderHostapdConfigRadioOverrides(t *testing.T) {
	id := testIdentity()
	id.Channel = 11
	id.HWMode = "a"

	conf, err := RenderHostapdConfig(id)
	if err != nil {
		t.Fatalf("RenderHostapdConfig() error = %v", err)
	}
	if !strings.Contains(conf, "channel=11\n") || !strings.Contains(conf, "hw_mode=a\n") {
		t.Errorf("radio overrides not applied:\n%s", conf)
	}
}

func TestRenderHostapdConfigInvalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Identity)
	}{
		{"no interface", func(id *Identity) { id.Interface = "" }},
		{"empty ssid", func(id *Identity) { id.SSID = "" }},
		{"long ssid", func(id *Identity) { id.SSID = strings.Repeat("x", 33) }},
		{"short passphrase", func(id *Identity) { id.Passphrase = "short" }},
		{"long passphrase", func(id *Identity) { id.Passphrase = strings.Repeat("p", 64) }},
		{"newline in ssid", func(id *Identity) { id.SSID = "evil\ninterface=eth0" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := testIdentity()
			id.IP = net.IPv4(192, 168, 1, 1)
			tt.modify(&id)
			if _, err := RenderHostapdConfig(id); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
