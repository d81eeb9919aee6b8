package server

import (
	"crypto/tls"
	"testing"
)

func TestNewSessionCache(t *testing.T) {
	c, err := NewSessionCache(SessionCacheSize)
	if err != nil {
		t.Fatalf("NewSessionCache() error = %v", err)
	}
	if c.Capacity() != 5 {
		t.Errorf("Capacity() = %d, want 5", c.Capacity())
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}

	if _, err := NewSessionCache(0); err == nil {
		t.Error("expected error for zero capacity")
	}
}

func TestSessionCache_UnwrapUnknown(t *testing.T) {
	c, _ := NewSessionCache(SessionCacheSize)

	tests := []struct {
		name     string
		identity []byte
	}{
		{"empty", nil},
		{"wrong length", []byte("short")},
		{"unknown id", make([]byte, sessionIDLen)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ss, err := c.unwrap(tt.identity, tls.ConnectionState{})
			if ss != nil || err != nil {
				t.Errorf("unwrap() = %v, %v; want nil, nil", ss, err)
			}
		})
	}
}

func TestSessionCache_Attach(t *testing.T) {
	c, _ := NewSessionCache(SessionCacheSize)
	config := &tls.Config{}
	c.Attach(config)

	if config.WrapSession == nil || config.UnwrapSession == nil {
		t.Error("Attach should install both session hooks")
	}
}
