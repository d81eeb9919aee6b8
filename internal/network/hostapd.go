package network

import (
	"fmt"
	"strings"
)

// RenderHostapdConfig produces a hostapd configuration for a WPA2-PSK
// access point. Client-to-client traffic is allowed (ap_isolate=0); traffic
// beyond the AP is prevented by disabled forwarding, not by hostapd.
func RenderHostapdConfig(id Identity) (string, error) {
	if id.Interface == "" {
		return "", fmt.Errorf("interface is required")
	}
	if id.SSID == "" || len(id.SSID) > 32 {
		return "", fmt.Errorf("SSID must be 1-32 bytes")
	}
	if len(id.Passphrase) < 8 || len(id.Passphrase) > 63 {
		return "", fmt.Errorf("passphrase must be 8-63 characters")
	}
	if strings.ContainsAny(id.SSID+id.Passphrase, "\r\n") {
		return "", fmt.Errorf("SSID and passphrase must not contain line breaks")
	}

	channel := id.Channel
	if channel == 0 {
		channel = DefaultChannel
	}
	hwMode := id.HWMode
	if hwMode == "" {
		hwMode = DefaultHWMode
	}

	var b strings.Builder
	b.WriteString("# Generated by apswitch. Do not edit.\n")
	fmt.Fprintf(&b, "interface=%s\n", id.Interface)
	b.WriteString("driver=nl80211\n")
	fmt.Fprintf(&b, "ssid=%s\n", id.SSID)
	fmt.Fprintf(&b, "hw_mode=%s\n", hwMode)
	fmt.Fprintf(&b, "channel=%d\n", channel)
	b.WriteString("ignore_broadcast_ssid=0\n")
	b.WriteString("ap_isolate=0\n")
	b.WriteString("auth_algs=1\n")
	b.WriteString("wpa=2\n")
	b.WriteString("wpa_key_mgmt=WPA-PSK\n")
	b.WriteString("rsn_pairwise=CCMP\n")
	fmt.Fprintf(&b, "wpa_passphrase=%s\n", id.Passphrase)

	return b.String(), nil
}
