package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/apswitch/internal/certs"
	"github.com/muurk/apswitch/internal/config"
	"github.com/muurk/apswitch/internal/logging"
	"github.com/muurk/apswitch/internal/pages"
)

const (
	// DefaultAcceptWindow is how long one Step waits for a connection.
	DefaultAcceptWindow = 100 * time.Millisecond
	// DefaultConnTimeout bounds the handshake, request read and response
	// write of a single connection.
	DefaultConnTimeout = 10 * time.Second
)

// Config holds the server configuration
type Config struct {
	Settings   *config.Settings
	Credential *certs.Credential
	Pages      *pages.Set

	// ListenAddr overrides Settings.ListenAddr, e.g. "127.0.0.1:8443" when
	// running off-device.
	ListenAddr string

	AcceptWindow time.Duration
	ConnTimeout  time.Duration
}

// Server is the single owned server context: TLS configuration, session
// cache, route table and listener. It serves one connection at a time on
// the goroutine that drives Serve or Step.
type Server struct {
	settings  *config.Settings
	cred      *certs.Credential
	pages     *pages.Set
	tlsConfig *tls.Config
	sessions  *SessionCache
	router    *Router

	addr         string
	acceptWindow time.Duration
	connTimeout  time.Duration

	listener *net.TCPListener
	status   atomic.Int32
	served   atomic.Uint64
}

// New creates a Server with its TLS configuration and route table. The
// server is not listening until Start.
func New(cfg Config) (*Server, error) {
	if cfg.Settings == nil {
		return nil, fmt.Errorf("settings are required")
	}
	if cfg.Credential == nil {
		return nil, config.ErrNoCredential
	}
	if cfg.Pages == nil {
		return nil, fmt.Errorf("page set is required")
	}

	sessions, err := NewSessionCache(SessionCacheSize)
	if err != nil {
		return nil, err
	}

	s := &Server{
		settings:     cfg.Settings,
		cred:         cfg.Credential,
		pages:        cfg.Pages,
		sessions:     sessions,
		tlsConfig:    NewTLSConfig(cfg.Credential, sessions),
		router:       NewRouter(),
		addr:         cfg.ListenAddr,
		acceptWindow: cfg.AcceptWindow,
		connTimeout:  cfg.ConnTimeout,
	}
	if s.addr == "" {
		s.addr = cfg.Settings.ListenAddr()
	}
	if s.acceptWindow <= 0 {
		s.acceptWindow = DefaultAcceptWindow
	}
	if s.connTimeout <= 0 {
		s.connTimeout = DefaultConnTimeout
	}

	if err := s.registerRoutes(); err != nil {
		return nil, fmt.Errorf("failed to register routes: %w", err)
	}

	return s, nil
}

// Start freezes the route table and opens the TLS listener.
func (s *Server) Start() error {
	if s.listener != nil {
		return fmt.Errorf("server already started")
	}

	s.router.Freeze()

	logging.Info("Starting web server",
		zap.String("addr", s.addr),
		zap.Any("tls_info", GetTLSInfo(s.tlsConfig, s.cred, s.sessions)),
	)

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	tcp, ok := ln.(*net.TCPListener)
	if !ok {
		_ = ln.Close()
		return fmt.Errorf("unexpected listener type %T", ln)
	}
	s.listener = tcp
	s.setStatus(StatusListen)
	logging.LogServerStatus(s.Addr(), s.Status().String())

	return nil
}

// Serve runs the cooperative loop until ctx is cancelled: one Step, then
// the idle delay, forever. It closes the listener on return.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return fmt.Errorf("server not started")
	}

	idle := time.NewTimer(0)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return s.Shutdown()
		case <-idle.C:
		}

		if err := s.Step(); err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.markClosed()
				return nil
			}
			logging.Error("Failed to accept connection", zap.Error(err))
		}

		idle.Reset(s.settings.IdleDelay)
	}
}

// Step gives the server one chance to accept and serve a pending
// connection. It returns nil when no client connected within the accept
// window.
func (s *Server) Step() error {
	if s.listener == nil {
		return fmt.Errorf("server not started")
	}

	if err := s.listener.SetDeadline(time.Now().Add(s.acceptWindow)); err != nil {
		return fmt.Errorf("failed to set accept deadline: %w", err)
	}

	conn, err := s.listener.Accept()
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil
		}
		return err
	}

	s.serveConn(tls.Server(conn, s.tlsConfig))
	return nil
}

// serveConn performs the handshake, reads one request, dispatches it and
// writes one response. Client-side failures are logged; handler panics are
// not recovered.
func (s *Server) serveConn(conn *tls.Conn) {
	remoteAddr := conn.RemoteAddr().String()
	s.setStatus(StatusEstablished)

	defer func() {
		_ = conn.Close()
		s.setStatus(StatusListen)
		logging.LogConnection(remoteAddr, "connection_closed")
	}()

	logging.LogConnection(remoteAddr, "connection_accepted")

	if err := conn.SetDeadline(time.Now().Add(s.connTimeout)); err != nil {
		logging.Warn("Failed to set connection deadline", zap.String("remote_addr", remoteAddr), zap.Error(err))
	}

	if err := conn.Handshake(); err != nil {
		logging.Warn("TLS handshake failed",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return
	}

	state := conn.ConnectionState()
	logging.LogTLSHandshake(remoteAddr, state.Version, state.CipherSuite, state.DidResume)

	req, err := ReadHTTPRequest(conn)
	if err != nil {
		logging.Warn("Failed to read HTTP request",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return
	}
	req.TLS = &state
	logging.LogHTTPRequest(remoteAddr, req.Method, req.URL.Path)

	w := newResponseWriter()
	s.router.ServeHTTP(w, req)

	if err := w.writeTo(conn, req); err != nil {
		logging.Warn("Failed to send HTTP response",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return
	}
	s.served.Add(1)
	logging.LogHTTPResponse(remoteAddr, w.StatusCode(), w.Header().Get("Content-Type"), w.body.Len())
}

// Shutdown closes the listener. The server cannot be restarted.
func (s *Server) Shutdown() error {
	logging.Info("Shutting down web server...")

	var err error
	if s.listener != nil {
		if cerr := s.listener.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = fmt.Errorf("failed to close listener: %w", cerr)
		}
	}
	s.markClosed()

	return err
}

func (s *Server) markClosed() {
	s.setStatus(StatusClosed)
	logging.LogServerStatus(s.Addr(), s.Status().String())
}

// Status returns the current connection state.
func (s *Server) Status() Status {
	return Status(s.status.Load())
}

func (s *Server) setStatus(st Status) {
	s.status.Store(int32(st))
}

// Addr returns the listener address once started, else the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Sessions returns the TLS session cache.
func (s *Server) Sessions() *SessionCache {
	return s.sessions
}

// Router returns the route table.
func (s *Server) Router() *Router {
	return s.router
}

// Served returns the number of responses written.
func (s *Server) Served() uint64 {
	return s.served.Load()
}
