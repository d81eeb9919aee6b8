package network

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv4"
	"github.com/insomniacslk/dhcp/dhcpv4/server4"
	"go.uber.org/zap"

	"github.com/muurk/apswitch/internal/logging"
)

const (
	// DefaultLeaseTime is the lease duration handed to clients.
	DefaultLeaseTime = 12 * time.Hour

	// MaxPoolSize caps the number of addresses handed out.
	MaxPoolSize = 253
)

var (
	// ErrPoolExhausted is returned when every pool address is leased.
	ErrPoolExhausted = errors.New("no addresses available")

	// ErrAddressUnavailable is returned by Claim when the client may not
	// have the address it asked for.
	ErrAddressUnavailable = errors.New("address not available")
)

// LeasePool hands out addresses from the AP subnet. Leases live in memory
// only.
type LeasePool struct {
	mu     sync.Mutex
	pool   []net.IP
	leases map[string]net.IP // MAC -> IP
	taken  map[string]string // IP -> MAC
	expiry map[string]time.Time
	ttl    time.Duration
	now    func() time.Time
}

// NewLeasePool builds a pool of every host address in the AP subnet except
// the AP's own address and the gateway, up to MaxPoolSize.
func NewLeasePool(id Identity, ttl time.Duration) (*LeasePool, error) {
	ip4 := id.IP.To4()
	if ip4 == nil {
		return nil, fmt.Errorf("not an IPv4 address: %v", id.IP)
	}
	ones, bits := id.Mask.Size()
	if bits != 32 || ones > 30 {
		return nil, fmt.Errorf("subnet too small for DHCP: %v", id.Mask)
	}

	network := binary.BigEndian.Uint32(ip4.Mask(id.Mask))
	broadcast := network | ^binary.BigEndian.Uint32(net.IP(id.Mask).To4())
	self := binary.BigEndian.Uint32(ip4)

	var gw uint32
	if g := id.Gateway.To4(); g != nil {
		gw = binary.BigEndian.Uint32(g)
	}

	pool := make([]net.IP, 0, MaxPoolSize)
	for n := network + 1; n < broadcast && len(pool) < MaxPoolSize; n++ {
		if n == self || n == gw {
			continue
		}
		ip := make(net.IP, 4)
		binary.BigEndian.PutUint32(ip, n)
		pool = append(pool, ip)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("subnet %s/%d has no free addresses", ip4, ones)
	}

	if ttl <= 0 {
		ttl = DefaultLeaseTime
	}

	return &LeasePool{
		pool:   pool,
		leases: make(map[string]net.IP),
		taken:  make(map[string]string),
		expiry: make(map[string]time.Time),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Size returns the number of addresses in the pool.
func (p *LeasePool) Size() int {
	return len(p.pool)
}

// Allocate returns the client's existing lease or the first free address,
// renewing the lease either way.
func (p *LeasePool) Allocate(mac string) (net.IP, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.expireLocked()

	if ip, ok := p.leases[mac]; ok {
		p.expiry[mac] = p.now().Add(p.ttl)
		return ip, nil
	}

	for _, ip := range p.pool {
		if _, used := p.taken[ip.String()]; used {
			continue
		}
		p.leases[mac] = ip
		p.taken[ip.String()] = mac
		p.expiry[mac] = p.now().Add(p.ttl)
		return ip, nil
	}
	return nil, ErrPoolExhausted
}

// Claim leases a specific address to the client. The client's current
// lease is renewed if it holds ip. Otherwise ip must be a free pool address
// and the client must hold no other lease. Nothing changes on failure.
func (p *LeasePool) Claim(mac string, ip net.IP) (net.IP, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.expireLocked()

	if held, ok := p.leases[mac]; ok {
		if !held.Equal(ip) {
			return nil, ErrAddressUnavailable
		}
		p.expiry[mac] = p.now().Add(p.ttl)
		return held, nil
	}

	for _, candidate := range p.pool {
		if !candidate.Equal(ip) {
			continue
		}
		if _, used := p.taken[candidate.String()]; used {
			return nil, ErrAddressUnavailable
		}
		p.leases[mac] = candidate
		p.taken[candidate.String()] = mac
		p.expiry[mac] = p.now().Add(p.ttl)
		return candidate, nil
	}
	return nil, ErrAddressUnavailable
}

// Release frees the client's lease, if any.
func (p *LeasePool) Release(mac string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseLocked(mac)
}

// Lookup returns the client's current lease.
func (p *LeasePool) Lookup(mac string) (net.IP, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ip, ok := p.leases[mac]
	return ip, ok
}

func (p *LeasePool) releaseLocked(mac string) {
	if ip, ok := p.leases[mac]; ok {
		delete(p.taken, ip.String())
	}
	delete(p.leases, mac)
	delete(p.expiry, mac)
}

func (p *LeasePool) expireLocked() {
	now := p.now()
	for mac, until := range p.expiry {
		if now.After(until) {
			p.releaseLocked(mac)
		}
	}
}

// DHCPServer answers DHCPv4 on the AP interface. Replies carry no router
// or DNS option, so clients get an address but no way off the AP network.
type DHCPServer struct {
	id   Identity
	pool *LeasePool

	conn net.PacketConn
	done chan struct{}
}

// NewDHCPServer creates a server for the AP subnet. Nothing is bound until
// Start.
func NewDHCPServer(id Identity) (*DHCPServer, error) {
	pool, err := NewLeasePool(id, DefaultLeaseTime)
	if err != nil {
		return nil, err
	}
	return &DHCPServer{id: id, pool: pool}, nil
}

// Pool returns the lease pool.
func (s *DHCPServer) Pool() *LeasePool {
	return s.pool
}

// Start binds UDP port 67 on the AP interface and serves in the background
// until ctx is cancelled or Close is called.
func (s *DHCPServer) Start(ctx context.Context) error {
	if s.conn != nil {
		return fmt.Errorf("DHCP server already started")
	}

	conn, err := server4.NewIPv4UDPConn(s.id.Interface, &net.UDPAddr{IP: net.IPv4zero, Port: dhcpv4.ServerPort})
	if err != nil {
		return fmt.Errorf("failed to bind DHCP socket on %s: %w", s.id.Interface, err)
	}
	s.conn = conn
	s.done = make(chan struct{})

	go s.serve()
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()

	logging.Info("DHCP server started",
		zap.String("interface", s.id.Interface),
		zap.Int("pool_size", s.pool.Size()),
		zap.Duration("lease_time", s.pool.ttl),
	)
	return nil
}

// Close stops the server.
func (s *DHCPServer) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *DHCPServer) serve() {
	defer close(s.done)

	buf := make([]byte, 4096)
	for {
		n, peer, err := s.conn.ReadFrom(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				logging.Warn("DHCP read failed", zap.Error(err))
			}
			logging.Info("DHCP server stopped")
			return
		}

		req, err := dhcpv4.FromBytes(buf[:n])
		if err != nil {
			logging.Debug("Ignoring malformed DHCP packet", zap.Stringer("peer", peer))
			continue
		}

		resp, err := s.Reply(req)
		if err != nil {
			logging.Warn("DHCP request failed",
				zap.String("mac", req.ClientHWAddr.String()),
				zap.Error(err),
			)
			continue
		}
		if resp == nil {
			continue
		}

		if _, err := s.conn.WriteTo(resp.ToBytes(), replyAddr(peer)); err != nil {
			logging.Warn("DHCP reply failed", zap.Stringer("peer", peer), zap.Error(err))
		}
	}
}

// Reply builds the response to one client message. It returns nil, nil for
// messages that need no answer.
func (s *DHCPServer) Reply(req *dhcpv4.DHCPv4) (*dhcpv4.DHCPv4, error) {
	if req.OpCode != dhcpv4.OpcodeBootRequest {
		return nil, nil
	}
	mac := req.ClientHWAddr.String()
	serverIP := s.id.IP.To4()

	switch req.MessageType() {
	case dhcpv4.MessageTypeDiscover:
		ip, err := s.pool.Allocate(mac)
		if err != nil {
			return nil, err
		}
		return dhcpv4.NewReplyFromRequest(req, s.leaseModifiers(dhcpv4.MessageTypeOffer, ip)...)

	case dhcpv4.MessageTypeRequest:
		if sid := req.ServerIdentifier(); sid != nil && !sid.Equal(serverIP) {
			// The client chose another server.
			return nil, nil
		}

		requested := req.RequestedIPAddress()
		if requested == nil || requested.IsUnspecified() {
			requested = req.ClientIPAddr
		}

		var ip net.IP
		var err error
		if requested == nil || requested.IsUnspecified() {
			ip, err = s.pool.Allocate(mac)
		} else {
			ip, err = s.pool.Claim(mac, requested)
		}
		if errors.Is(err, ErrAddressUnavailable) {
			leased, _ := s.pool.Lookup(mac)
			logging.Info("DHCP NAK",
				zap.String("mac", mac),
				zap.Stringer("requested", requested),
				zap.Stringer("leased", leased),
			)
			return dhcpv4.NewReplyFromRequest(req,
				dhcpv4.WithMessageType(dhcpv4.MessageTypeNak),
				dhcpv4.WithServerIP(serverIP),
				dhcpv4.WithOption(dhcpv4.OptServerIdentifier(serverIP)),
			)
		}
		if err != nil {
			return nil, err
		}

		logging.Info("DHCP lease",
			zap.String("mac", mac),
			zap.Stringer("ip", ip),
			zap.String("client_hostname", req.HostName()),
		)
		return dhcpv4.NewReplyFromRequest(req, s.leaseModifiers(dhcpv4.MessageTypeAck, ip)...)

	case dhcpv4.MessageTypeRelease:
		s.pool.Release(mac)
		logging.Info("DHCP release", zap.String("mac", mac))
		return nil, nil

	default:
		return nil, nil
	}
}

func (s *DHCPServer) leaseModifiers(mt dhcpv4.MessageType, ip net.IP) []dhcpv4.Modifier {
	serverIP := s.id.IP.To4()
	return []dhcpv4.Modifier{
		dhcpv4.WithMessageType(mt),
		dhcpv4.WithYourIP(ip),
		dhcpv4.WithServerIP(serverIP),
		dhcpv4.WithOption(dhcpv4.OptServerIdentifier(serverIP)),
		dhcpv4.WithNetmask(s.id.Mask),
		dhcpv4.WithLeaseTime(uint32(s.pool.ttl.Seconds())),
	}
}

// replyAddr broadcasts to clients that have no address yet.
func replyAddr(peer net.Addr) net.Addr {
	if udp, ok := peer.(*net.UDPAddr); ok && (udp.IP == nil || udp.IP.IsUnspecified()) {
		return &net.UDPAddr{IP: net.IPv4bcast, Port: dhcpv4.ClientPort}
	}
	return peer
}
