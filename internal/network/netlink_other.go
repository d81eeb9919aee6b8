//go:build !linux

package network

import (
	"fmt"

	"github.com/vishvananda/netlink"
)

// DefaultNetlinker is the default RealNetlinker instance (stub).
var DefaultNetlinker Netlinker = &RealNetlinker{}

// DefaultHostnameSetter is the default RealHostnameSetter instance (stub).
var DefaultHostnameSetter HostnameSetter = &RealHostnameSetter{}

// RealNetlinker is a stub; access point bring-up needs Linux. Use --dry-run
// elsewhere.
type RealNetlinker struct{}

func (r *RealNetlinker) LinkByName(name string) (netlink.Link, error) {
	return nil, fmt.Errorf("LinkByName not supported on this platform")
}

func (r *RealNetlinker) LinkSetUp(link netlink.Link) error {
	return fmt.Errorf("LinkSetUp not supported on this platform")
}

func (r *RealNetlinker) AddrList(link netlink.Link, family int) ([]netlink.Addr, error) {
	return nil, fmt.Errorf("AddrList not supported on this platform")
}

func (r *RealNetlinker) AddrAdd(link netlink.Link, addr *netlink.Addr) error {
	return fmt.Errorf("AddrAdd not supported on this platform")
}

func (r *RealNetlinker) AddrDel(link netlink.Link, addr *netlink.Addr) error {
	return fmt.Errorf("AddrDel not supported on this platform")
}

// RealHostnameSetter is a stub.
type RealHostnameSetter struct{}

func (r *RealHostnameSetter) SetHostname(name string) error {
	return fmt.Errorf("setting the hostname is not supported on this platform")
}
