package network

import (
	"context"
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
)

// Netlinker abstracts the netlink calls used to address the AP interface.
type Netlinker interface {
	LinkByName(name string) (netlink.Link, error)
	LinkSetUp(link netlink.Link) error
	AddrList(link netlink.Link, family int) ([]netlink.Addr, error)
	AddrAdd(link netlink.Link, addr *netlink.Addr) error
	AddrDel(link netlink.Link, addr *netlink.Addr) error
}

// SystemController abstracts sysctl access.
type SystemController interface {
	ReadSysctl(path string) (string, error)
	WriteSysctl(path, value string) error
}

// CommandExecutor abstracts running external programs.
type CommandExecutor interface {
	RunCommand(ctx context.Context, name string, arg ...string) (string, error)
}

// HostnameSetter abstracts changing the system hostname.
type HostnameSetter interface {
	SetHostname(name string) error
}

// Identity is the fixed network identity of the access point.
type Identity struct {
	SSID       string
	Passphrase string
	Hostname   string
	Interface  string
	IP         net.IP
	Gateway    net.IP
	Mask       net.IPMask

	// Radio settings for hostapd.
	Channel int
	HWMode  string
}

// Default radio settings.
const (
	DefaultChannel = 6
	DefaultHWMode  = "g"
)

// APInfo describes the access point after bring-up.
type APInfo struct {
	Interface  string
	SSID       string
	Hostname   string
	Address    net.IP
	CIDR       string
	ConfigPath string
}

// BringUpError reports which bring-up step failed.
type BringUpError struct {
	// Step is the bring-up step that failed
	Step string
	// Underlying error
	Err error
}

func (e *BringUpError) Error() string {
	return fmt.Sprintf("access point bring-up failed at %s: %v", e.Step, e.Err)
}

func (e *BringUpError) Unwrap() error {
	return e.Err
}
