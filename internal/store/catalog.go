package store

import (
	"fmt"
	"sync"
)

// Catalog tracks the models bound on one connection. Backends embed it so
// duplicate registrations are detected the same way everywhere.
type Catalog struct {
	mu     sync.Mutex
	models map[string]Model
}

// Bind returns the model already bound to name when its schema is
// compatible, fails with ErrIncompatibleSchema when it is not, and otherwise
// calls create and remembers the result.
func (c *Catalog) Bind(name string, schema *Schema, create func() (Model, error)) (Model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.models == nil {
		c.models = make(map[string]Model)
	}

	if existing, ok := c.models[name]; ok {
		if existing.Schema().Compatible(schema) {
			return existing, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrIncompatibleSchema, name)
	}

	m, err := create()
	if err != nil {
		return nil, err
	}
	c.models[name] = m
	return m, nil
}

// Lookup returns the model bound to name.
func (c *Catalog) Lookup(name string) (Model, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.models[name]
	return m, ok
}
