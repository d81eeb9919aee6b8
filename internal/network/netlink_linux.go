//go:build linux

package network

import (
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// DefaultNetlinker is the default RealNetlinker instance.
var DefaultNetlinker Netlinker = &RealNetlinker{}

// DefaultHostnameSetter is the default RealHostnameSetter instance.
var DefaultHostnameSetter HostnameSetter = &RealHostnameSetter{}

// RealNetlinker calls the kernel through netlink.
type RealNetlinker struct{}

func (r *RealNetlinker) LinkByName(name string) (netlink.Link, error) {
	return netlink.LinkByName(name)
}

func (r *RealNetlinker) LinkSetUp(link netlink.Link) error {
	return netlink.LinkSetUp(link)
}

func (r *RealNetlinker) AddrList(link netlink.Link, family int) ([]netlink.Addr, error) {
	return netlink.AddrList(link, family)
}

func (r *RealNetlinker) AddrAdd(link netlink.Link, addr *netlink.Addr) error {
	return netlink.AddrAdd(link, addr)
}

func (r *RealNetlinker) AddrDel(link netlink.Link, addr *netlink.Addr) error {
	return netlink.AddrDel(link, addr)
}

// RealHostnameSetter sets the kernel hostname.
type RealHostnameSetter struct{}

func (r *RealHostnameSetter) SetHostname(name string) error {
	return unix.Sethostname([]byte(name))
}
