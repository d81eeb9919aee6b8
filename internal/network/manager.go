package network

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/vishvananda/netlink"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/muurk/apswitch/internal/logging"
)

// Sysctl paths controlling packet forwarding.
const (
	sysctlIPv4Forward        = "/proc/sys/net/ipv4/ip_forward"
	sysctlIPv6ForwardAll     = "/proc/sys/net/ipv6/conf/all/forwarding"
	sysctlIPv6ForwardDefault = "/proc/sys/net/ipv6/conf/default/forwarding"
)

// Files written to the run directory.
const (
	HostapdConfigFile = "hostapd.conf"
	HostapdPIDFile    = "hostapd.pid"
)

// Manager brings the access point up.
type Manager struct {
	nl   Netlinker
	sys  SystemController
	exec CommandExecutor
	host HostnameSetter

	runDir    string
	writeFile func(name string, data []byte, perm os.FileMode) error
}

// NewManager creates a Manager that acts on the real system.
func NewManager(runDir string) *Manager {
	return NewManagerWithDeps(DefaultNetlinker, DefaultSystemController, DefaultCommandExecutor, DefaultHostnameSetter, runDir)
}

// NewManagerWithDeps creates a Manager with explicit dependencies.
func NewManagerWithDeps(nl Netlinker, sys SystemController, exec CommandExecutor, host HostnameSetter, runDir string) *Manager {
	return &Manager{
		nl:        nl,
		sys:       sys,
		exec:      exec,
		host:      host,
		runDir:    runDir,
		writeFile: os.WriteFile,
	}
}

// BringUp configures the device as an isolated access point: hostname,
// forwarding disabled, static address on the wireless interface, hostapd
// broadcasting the network. Each step must succeed before the next runs.
func (m *Manager) BringUp(ctx context.Context, id Identity) (*APInfo, error) {
	logging.Info("AP setup in progress...",
		zap.String("interface", id.Interface),
		zap.String("ssid", id.SSID),
	)

	if err := m.host.SetHostname(id.Hostname); err != nil {
		return nil, &BringUpError{Step: "hostname", Err: err}
	}
	logging.Info("Hostname set", zap.String("hostname", id.Hostname))

	if err := m.SetIPForwarding(false); err != nil {
		return nil, &BringUpError{Step: "forwarding", Err: err}
	}
	if err := m.VerifyForwardingDisabled(); err != nil {
		return nil, &BringUpError{Step: "forwarding", Err: err}
	}
	logging.Info("Packet forwarding disabled")

	cidr, err := m.ApplyAddress(id)
	if err != nil {
		return nil, &BringUpError{Step: "address", Err: err}
	}

	if id.Gateway != nil && !id.Gateway.IsUnspecified() {
		// No route is installed: traffic never leaves the AP network.
		logging.Info("Gateway recorded but not routed", zap.String("gateway", id.Gateway.String()))
	}

	confPath, err := m.StartHostapd(ctx, id)
	if err != nil {
		return nil, &BringUpError{Step: "hostapd", Err: err}
	}

	info := &APInfo{
		Interface:  id.Interface,
		SSID:       id.SSID,
		Hostname:   id.Hostname,
		Address:    id.IP,
		CIDR:       cidr,
		ConfigPath: confPath,
	}

	logging.Info("AP's IP is", zap.String("address", id.IP.String()), zap.String("cidr", cidr))
	logging.Info("AP setup is complete")

	return info, nil
}

// SetIPForwarding enables or disables IP forwarding.
func (m *Manager) SetIPForwarding(enable bool) error {
	val := "0"
	if enable {
		val = "1"
	}

	if err := m.sys.WriteSysctl(sysctlIPv4Forward, val); err != nil {
		return fmt.Errorf("failed to set net.ipv4.ip_forward: %w", err)
	}

	// IPv6 may be disabled on the host; that is not fatal.
	if err := m.sys.WriteSysctl(sysctlIPv6ForwardAll, val); err != nil {
		logging.Warn("Failed to set net.ipv6.conf.all.forwarding", zap.Error(err))
	}
	if err := m.sys.WriteSysctl(sysctlIPv6ForwardDefault, val); err != nil {
		logging.Warn("Failed to set net.ipv6.conf.default.forwarding", zap.Error(err))
	}

	return nil
}

// VerifyForwardingDisabled reads IPv4 forwarding back and fails unless it
// is off.
func (m *Manager) VerifyForwardingDisabled() error {
	val, err := m.sys.ReadSysctl(sysctlIPv4Forward)
	if err != nil {
		return fmt.Errorf("failed to read net.ipv4.ip_forward: %w", err)
	}
	if val != "0" {
		return fmt.Errorf("net.ipv4.ip_forward is %q, expected \"0\"", val)
	}
	return nil
}

// ApplyAddress makes the configured address the only IPv4 address on the
// interface and sets the link up. It returns the address in CIDR form.
func (m *Manager) ApplyAddress(id Identity) (string, error) {
	ip4 := id.IP.To4()
	if ip4 == nil {
		return "", fmt.Errorf("not an IPv4 address: %v", id.IP)
	}
	ones, bits := id.Mask.Size()
	if bits != 32 {
		return "", fmt.Errorf("invalid IPv4 netmask: %v", id.Mask)
	}

	link, err := m.nl.LinkByName(id.Interface)
	if err != nil {
		return "", fmt.Errorf("interface %s not found: %w", id.Interface, err)
	}

	want := &netlink.Addr{IPNet: &net.IPNet{IP: ip4, Mask: id.Mask}}

	existing, err := m.nl.AddrList(link, unix.AF_INET)
	if err != nil {
		return "", fmt.Errorf("failed to list addresses on %s: %w", id.Interface, err)
	}

	present := false
	for i := range existing {
		addr := existing[i]
		if addr.IPNet != nil && addr.IPNet.String() == want.IPNet.String() {
			present = true
			continue
		}
		if err := m.nl.AddrDel(link, &addr); err != nil {
			return "", fmt.Errorf("failed to remove %s from %s: %w", addr.IPNet, id.Interface, err)
		}
		logging.Info("Removed stale address", zap.String("interface", id.Interface), zap.Stringer("addr", addr.IPNet))
	}

	if !present {
		if err := m.nl.AddrAdd(link, want); err != nil {
			return "", fmt.Errorf("failed to add %s to %s: %w", want.IPNet, id.Interface, err)
		}
	}

	if err := m.nl.LinkSetUp(link); err != nil {
		return "", fmt.Errorf("failed to set %s up: %w", id.Interface, err)
	}

	cidr := fmt.Sprintf("%s/%d", ip4, ones)
	logging.Info("Static address applied", zap.String("interface", id.Interface), zap.String("cidr", cidr))
	return cidr, nil
}

// StartHostapd writes hostapd.conf to the run directory and starts hostapd
// in the background. It returns the config path.
func (m *Manager) StartHostapd(ctx context.Context, id Identity) (string, error) {
	conf, err := RenderHostapdConfig(id)
	if err != nil {
		return "", err
	}

	confPath := filepath.Join(m.runDir, HostapdConfigFile)
	pidPath := filepath.Join(m.runDir, HostapdPIDFile)

	// The passphrase is in this file.
	if err := m.writeFile(confPath, []byte(conf), 0600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", confPath, err)
	}

	if _, err := m.exec.RunCommand(ctx, "hostapd", "-B", "-P", pidPath, confPath); err != nil {
		return "", fmt.Errorf("failed to start hostapd: %w", err)
	}

	logging.Info("Broadcasting network",
		zap.String("ssid", id.SSID),
		zap.String("config", confPath),
	)
	return confPath, nil
}

// Teardown stops hostapd. Addresses are left in place.
func (m *Manager) Teardown(ctx context.Context) error {
	pidPath := filepath.Join(m.runDir, HostapdPIDFile)
	if _, err := m.exec.RunCommand(ctx, "pkill", "-F", pidPath); err != nil {
		return fmt.Errorf("failed to stop hostapd: %w", err)
	}
	logging.Info("hostapd stopped")
	return nil
}
