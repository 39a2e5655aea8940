package store

import (
	"errors"
	"sync"
)

// Registry holds the default connection that models bind against when the
// caller does not pass one explicitly.
//
// Lifecycle: the process opens the default connection once at startup
// (Open) and closes it on shutdown (Close). Between those two calls every
// resource registered without an explicit connection shares it.
type Registry struct {
	mu   sync.RWMutex
	conn Conn
}

var defaultRegistry = &Registry{}

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// Open installs conn as the default connection. Opening twice without a
// Close in between is an error, so two subsystems cannot silently fight
// over the default.
func (r *Registry) Open(conn Conn) error {
	if conn == nil {
		return errors.New("store.Registry.Open: nil connection")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil {
		return errors.New("store.Registry.Open: default connection already open")
	}
	r.conn = conn
	return nil
}

// Conn returns the default connection or ErrNoConnection.
func (r *Registry) Conn() (Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.conn == nil {
		return nil, ErrNoConnection
	}
	return r.conn, nil
}

// Close closes and forgets the default connection. Closing an empty
// registry is a no-op.
func (r *Registry) Close() error {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}
