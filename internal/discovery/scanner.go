package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/muurk/apswitch/internal/network"
)

const (
	// DefaultScanTimeout is the default timeout for discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is used when an entry carries no port
	DefaultPort = 443
)

// AccessPoint is an apswitch status site found on the local network.
type AccessPoint struct {
	// Instance is the mDNS service instance name
	Instance string

	// Hostname is the mDNS hostname (e.g., "deadspace001.local.")
	Hostname string

	// IP is the IPv4 address, or IPv6 when no IPv4 address was announced
	IP string

	Port int

	// Version is the firmware version from the TXT record
	Version string

	// Metadata contains all TXT record data
	Metadata map[string]string

	DiscoveredAt time.Time
}

// String returns a human-readable description of the access point
func (a *AccessPoint) String() string {
	return fmt.Sprintf("%s (%s) at %s:%d version %s", a.Instance, a.Hostname, a.IP, a.Port, a.Version)
}

// BaseURL returns the HTTPS base URL of the status site
func (a *AccessPoint) BaseURL() string {
	host := strings.TrimSuffix(a.Hostname, ".")
	if host == "" {
		host = a.IP
	}
	if a.Port == 443 {
		return "https://" + host
	}
	return fmt.Sprintf("https://%s:%d", host, a.Port)
}

// Scanner browses mDNS for apswitch status sites.
type Scanner struct {
	// Timeout is the maximum time to wait for answers
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan collects every access point that answers within the timeout.
func (s *Scanner) Scan(ctx context.Context) ([]*AccessPoint, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan struct{})
	found := make([]*AccessPoint, 0)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	// The resolver closes entries when ctx ends.
	go func() {
		defer close(done)
		seen := make(map[string]bool)
		for entry := range entries {
			ap := parseServiceEntry(entry)
			if ap == nil || seen[ap.Instance] {
				continue
			}
			seen[ap.Instance] = true
			found = append(found, ap)
		}
	}()

	if err := resolver.Browse(ctx, network.ServiceType, network.ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	<-done

	return found, nil
}

// WaitFor returns the first access point whose hostname matches, or an
// error if none answers within the timeout.
func (s *Scanner) WaitFor(ctx context.Context, hostname string) (*AccessPoint, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	match := make(chan *AccessPoint, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			ap := parseServiceEntry(entry)
			if ap != nil && sameHost(ap.Hostname, hostname) {
				select {
				case match <- ap:
				default:
				}
				cancel()
			}
		}
	}()

	if err := resolver.Browse(ctx, network.ServiceType, network.ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case ap := <-match:
		return ap, nil
	case <-ctx.Done():
		select {
		case ap := <-match:
			return ap, nil
		default:
		}
		return nil, fmt.Errorf("access point %s not found within timeout", hostname)
	}
}

// parseServiceEntry converts a zeroconf entry to an AccessPoint. It returns
// nil for services that are not apswitch status sites or carry no address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *AccessPoint {
	meta := network.ParseTXTRecords(entry.Text)
	version, ok := meta[network.TXTKeyVersion]
	if !ok {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	return &AccessPoint{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Version:      version,
		Metadata:     meta,
		DiscoveredAt: time.Now(),
	}
}

// sameHost compares hostnames ignoring case, the trailing dot and a
// ".local" suffix.
func sameHost(a, b string) bool {
	norm := func(h string) string {
		h = strings.ToLower(strings.TrimSuffix(h, "."))
		return strings.TrimSuffix(h, ".local")
	}
	return norm(a) == norm(b)
}
