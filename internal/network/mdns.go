package network

import (
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/apswitch/internal/logging"
)

const (
	// ServiceType is the mDNS service type the status page is advertised as.
	ServiceType = "_https._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// TXTKeyVersion marks an apswitch advertisement and carries its version.
	TXTKeyVersion = "apswitch"
)

// Advertiser publishes the AP's hostname and web server over mDNS so clients
// can open https://<hostname>.local/.
type Advertiser struct {
	server *zeroconf.Server
}

// Advertise registers the web server on the AP interface. If the interface
// cannot be found, zeroconf picks all multicast-capable interfaces.
func Advertise(info *APInfo, port int, txt map[string]string) (*Advertiser, error) {
	var ifaces []net.Interface
	if iface, err := net.InterfaceByName(info.Interface); err == nil {
		ifaces = []net.Interface{*iface}
	} else {
		logging.Warn("AP interface not found for mDNS, using all interfaces",
			zap.String("interface", info.Interface),
			zap.Error(err),
		)
	}

	server, err := zeroconf.RegisterProxy(
		info.Hostname,
		ServiceType,
		ServiceDomain,
		port,
		info.Hostname,
		[]string{info.Address.String()},
		TXTRecords(txt),
		ifaces,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("mDNS service registered",
		zap.String("host", info.Hostname+"."+ServiceDomain),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)
	return &Advertiser{server: server}, nil
}

// Shutdown withdraws the advertisement.
func (a *Advertiser) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	logging.Info("mDNS service withdrawn")
}

// TXTRecords converts metadata to sorted "key=value" TXT strings. Keys
// with empty values are emitted bare.
func TXTRecords(meta map[string]string) []string {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make([]string, 0, len(keys))
	for _, k := range keys {
		if meta[k] == "" {
			records = append(records, k)
			continue
		}
		records = append(records, k+"="+meta[k])
	}
	return records
}

// ParseTXTRecords is the inverse of TXTRecords.
func ParseTXTRecords(records []string) map[string]string {
	meta := make(map[string]string, len(records))
	for _, txt := range records {
		key, value, _ := strings.Cut(txt, "=")
		meta[key] = value
	}
	return meta
}
