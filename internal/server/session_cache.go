package server

import (
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/muurk/apswitch/internal/logging"
)

// SessionCacheSize is the number of TLS sessions kept for resumption. It is
// fixed and does not grow with load.
const SessionCacheSize = 5

// sessionIDLen is the length of the opaque ticket handed to clients.
const sessionIDLen = 16

// SessionCache is a server-side TLS session store. Clients receive a random
// identifier as their ticket; the session state itself never leaves the
// device. When full, the least recently used session is evicted.
type SessionCache struct {
	capacity int
	cache    *lru.Cache[string, []byte]
}

// NewSessionCache creates a cache holding at most capacity sessions.
func NewSessionCache(capacity int) (*SessionCache, error) {
	cache, err := lru.New[string, []byte](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	return &SessionCache{capacity: capacity, cache: cache}, nil
}

// Capacity returns the configured maximum number of sessions.
func (c *SessionCache) Capacity() int {
	return c.capacity
}

// Len returns the number of cached sessions.
func (c *SessionCache) Len() int {
	return c.cache.Len()
}

// Attach installs the cache on a TLS config as its session wrapper.
func (c *SessionCache) Attach(config *tls.Config) {
	config.WrapSession = c.wrap
	config.UnwrapSession = c.unwrap
}

func (c *SessionCache) wrap(_ tls.ConnectionState, ss *tls.SessionState) ([]byte, error) {
	state, err := ss.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode session state: %w", err)
	}

	id := make([]byte, sessionIDLen)
	if _, err := rand.Read(id); err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	if evicted := c.cache.Add(hex.EncodeToString(id), state); evicted {
		logging.Debug("TLS session cache full, evicted oldest session",
			zap.Int("capacity", c.capacity),
		)
	}
	return id, nil
}

// unwrap returns (nil, nil) for unknown identities so the handshake falls
// back to a full one.
func (c *SessionCache) unwrap(identity []byte, _ tls.ConnectionState) (*tls.SessionState, error) {
	if len(identity) != sessionIDLen {
		return nil, nil
	}
	state, ok := c.cache.Get(hex.EncodeToString(identity))
	if !ok {
		return nil, nil
	}
	ss, err := tls.ParseSessionState(state)
	if err != nil {
		return nil, nil
	}
	return ss, nil
}
