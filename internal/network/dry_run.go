package network

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/vishvananda/netlink"
)

// NewDryRunManager returns a Manager that records every change instead of
// applying it, plus the recorder. Useful off-device and in tests.
func NewDryRunManager(runDir string) (*Manager, *DryRunRecorder) {
	rec := &DryRunRecorder{}
	m := NewManagerWithDeps(
		&DryRunNetlinker{rec: rec},
		&DryRunSystemController{rec: rec},
		&DryRunExecutor{rec: rec},
		&DryRunHostnameSetter{rec: rec},
		runDir,
	)
	m.writeFile = func(name string, data []byte, perm os.FileMode) error {
		rec.record(fmt.Sprintf("write %s (%d bytes, %v)", name, len(data), perm))
		return nil
	}
	return m, rec
}

// DryRunRecorder collects the operations a dry run would have performed.
type DryRunRecorder struct {
	mu  sync.Mutex
	ops []string
}

func (r *DryRunRecorder) record(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

// Ops returns the recorded operations in order.
func (r *DryRunRecorder) Ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.ops))
	copy(out, r.ops)
	return out
}

// DryRunExecutor implements CommandExecutor but only logs commands.
type DryRunExecutor struct {
	rec *DryRunRecorder
}

// RunCommand logs the command instead of executing it.
func (e *DryRunExecutor) RunCommand(ctx context.Context, name string, arg ...string) (string, error) {
	e.rec.record(strings.TrimSpace(fmt.Sprintf("%s %s", name, strings.Join(arg, " "))))
	return "", nil
}

// DryRunSystemController logs sysctl writes.
type DryRunSystemController struct {
	rec *DryRunRecorder
}

func (s *DryRunSystemController) ReadSysctl(path string) (string, error) {
	return "0", nil
}

func (s *DryRunSystemController) WriteSysctl(path, value string) error {
	s.rec.record(fmt.Sprintf("sysctl -w %s=%s", path, value))
	return nil
}

// DryRunNetlinker logs netlink operations.
type DryRunNetlinker struct {
	rec *DryRunRecorder
}

func (n *DryRunNetlinker) LinkByName(name string) (netlink.Link, error) {
	return &netlink.Device{LinkAttrs: netlink.LinkAttrs{Name: name}}, nil
}

func (n *DryRunNetlinker) LinkSetUp(link netlink.Link) error {
	n.rec.record(fmt.Sprintf("ip link set %s up", link.Attrs().Name))
	return nil
}

func (n *DryRunNetlinker) AddrList(link netlink.Link, family int) ([]netlink.Addr, error) {
	return nil, nil
}

func (n *DryRunNetlinker) AddrAdd(link netlink.Link, addr *netlink.Addr) error {
	n.rec.record(fmt.Sprintf("ip addr add %s dev %s", addr.IPNet, link.Attrs().Name))
	return nil
}

func (n *DryRunNetlinker) AddrDel(link netlink.Link, addr *netlink.Addr) error {
	n.rec.record(fmt.Sprintf("ip addr del %s dev %s", addr.IPNet, link.Attrs().Name))
	return nil
}

// DryRunHostnameSetter logs the hostname change.
type DryRunHostnameSetter struct {
	rec *DryRunRecorder
}

func (h *DryRunHostnameSetter) SetHostname(name string) error {
	h.rec.record(fmt.Sprintf("hostname %s", name))
	return nil
}
