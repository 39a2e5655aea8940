// Package redis provides a Redis-backed implementation of store.Conn.
//
// Layout per model (all keys share the configured prefix):
//
//	<prefix>:<model>:doc:<id>          STRING  JSON document
//	<prefix>:<model>:ids               ZSET    id -> insertion sequence
//	<prefix>:<model>:seq               STRING  insertion counter
//	<prefix>:<model>:unique:<field>    HASH    value -> owning id
//
// Unique values are claimed with HSETNX before the document is written, so
// a second writer with the same value sees the claim and gets a duplicate-key
// store.Error.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aanand-mishra/crudgen/internal/config"
	"github.com/aanand-mishra/crudgen/internal/store"

	backend "github.com/redis/go-redis/v9"
)

// Conn is a store.Conn over one Redis client.
type Conn struct {
	client backend.UniversalClient
	prefix string

	catalog store.Catalog
}

var _ store.Conn = (*Conn)(nil)

// New connects to the Redis server configured in cfg.Storage.
func New(cfg *config.Config) (*Conn, error) {
	client := backend.NewClient(&backend.Options{Addr: cfg.Storage.RedisAddr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis.New: ping %s: %w", cfg.Storage.RedisAddr, err)
	}
	return NewFromClient(client, cfg.Storage.RedisPrefix), nil
}

// NewFromClient wraps an existing client. Close closes the client.
func NewFromClient(client backend.UniversalClient, prefix string) *Conn {
	return &Conn{client: client, prefix: prefix}
}

// Close closes the underlying client.
func (c *Conn) Close() error { return c.client.Close() }

// Model returns the data-access handle for name.
func (c *Conn) Model(name string, schema *store.Schema) (store.Model, error) {
	if name == "" {
		return nil, fmt.Errorf("redis.Model: %w: empty model name", store.ErrInvalidName)
	}
	return c.catalog.Bind(name, schema, func() (store.Model, error) {
		base := name
		if c.prefix != "" {
			base = c.prefix + ":" + name
		}
		return &model{client: c.client, name: name, base: base, schema: schema}, nil
	})
}

type model struct {
	client backend.UniversalClient
	name   string
	base   string
	schema *store.Schema
}

func (m *model) Name() string          { return m.name }
func (m *model) Schema() *store.Schema { return m.schema }

func (m *model) docKey(id string) string       { return m.base + ":doc:" + id }
func (m *model) idsKey() string                { return m.base + ":ids" }
func (m *model) seqKey() string                { return m.base + ":seq" }
func (m *model) uniqueKey(field string) string { return m.base + ":unique:" + field }

// Find returns every document in insertion order.
func (m *model) Find(ctx context.Context) ([]store.Document, error) {
	ids, err := m.client.ZRange(ctx, m.idsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("Find: zrange: %w", err)
	}

	docs := make([]store.Document, 0, len(ids))
	if len(ids) == 0 {
		return docs, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = m.docKey(id)
	}

	raws, err := m.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("Find: mget: %w", err)
	}

	for _, raw := range raws {
		s, ok := raw.(string)
		if !ok {
			continue // removed between ZRANGE and MGET
		}
		doc, err := m.decode(s)
		if err != nil {
			return nil, fmt.Errorf("Find: %w", err)
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// FindByID returns store.ErrNotFound for unknown or malformed ids.
func (m *model) FindByID(ctx context.Context, id string) (store.Document, error) {
	if !store.ValidID(id) {
		return nil, store.ErrNotFound
	}

	raw, err := m.client.Get(ctx, m.docKey(id)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("FindByID: get: %w", err)
	}

	return m.decode(raw)
}

// Insert claims unique values, then writes the document and its index entry.
func (m *model) Insert(ctx context.Context, doc store.Document) (store.Document, error) {
	prepared, err := m.schema.Prepare(doc, true)
	if err != nil {
		return nil, err
	}
	if id := prepared.ID(); id == "" || !store.ValidID(id) {
		prepared[store.IDKey] = store.NewID()
	}
	id := prepared.ID()

	// An existing document with this id is a primary-key collision.
	exists, err := m.client.Exists(ctx, m.docKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("Insert: exists: %w", err)
	}
	if exists > 0 {
		return nil, &store.Error{Code: store.CodeDuplicateKey, Model: m.name, Field: store.IDKey,
			Err: errors.New("id already exists")}
	}

	claimed, err := m.claim(ctx, id, nil, prepared, store.CodeDuplicateKey)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(prepared)
	if err != nil {
		m.release(ctx, id, claimed)
		return nil, fmt.Errorf("Insert: encode: %w", err)
	}

	seq, err := m.client.Incr(ctx, m.seqKey()).Result()
	if err != nil {
		m.release(ctx, id, claimed)
		return nil, fmt.Errorf("Insert: incr: %w", err)
	}

	_, err = m.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Set(ctx, m.docKey(id), body, 0)
		pipe.ZAdd(ctx, m.idsKey(), backend.Z{Score: float64(seq), Member: id})
		return nil
	})
	if err != nil {
		m.release(ctx, id, claimed)
		return nil, fmt.Errorf("Insert: write: %w", err)
	}

	return prepared, nil
}

// Save replaces the stored document, moving unique claims that changed.
func (m *model) Save(ctx context.Context, doc store.Document) (store.Document, error) {
	id := doc.ID()
	current, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	prepared, err := m.schema.Prepare(doc, false)
	if err != nil {
		return nil, err
	}

	claimed, err := m.claim(ctx, id, current, prepared, store.CodeDuplicateKeyUpdate)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(prepared)
	if err != nil {
		m.release(ctx, id, claimed)
		return nil, fmt.Errorf("Save: encode: %w", err)
	}

	if err := m.client.Set(ctx, m.docKey(id), body, 0).Err(); err != nil {
		m.release(ctx, id, claimed)
		return nil, fmt.Errorf("Save: set: %w", err)
	}

	// Drop the claims of values this document no longer holds.
	m.release(ctx, id, m.changedValues(current, prepared))

	return m.decode(string(body))
}

// Delete removes the document, its index entry and its unique claims.
func (m *model) Delete(ctx context.Context, id string) error {
	current, err := m.FindByID(ctx, id)
	if err != nil {
		return err
	}

	_, err = m.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Del(ctx, m.docKey(id))
		pipe.ZRem(ctx, m.idsKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("Delete: write: %w", err)
	}

	m.release(ctx, id, m.changedValues(current, nil))
	return nil
}

// uniqueValue is one claimed (field, value) pair.
type uniqueValue struct {
	field string
	value string
}

// claim takes every unique value in next that is not already held in prev.
// On conflict it rolls back what it took and returns a duplicate-key error.
func (m *model) claim(ctx context.Context, id string, prev, next store.Document, code int) ([]uniqueValue, error) {
	var taken []uniqueValue

	for _, f := range m.schema.Unique() {
		value, ok := uniqueString(next[f.Name])
		if !ok {
			continue
		}
		if old, had := uniqueString(prev[f.Name]); had && old == value {
			continue
		}

		key := m.uniqueKey(f.Name)
		set, err := m.client.HSetNX(ctx, key, value, id).Result()
		if err != nil {
			m.release(ctx, id, taken)
			return nil, fmt.Errorf("claim %s: %w", f.Name, err)
		}
		if !set {
			owner, err := m.client.HGet(ctx, key, value).Result()
			if err == nil && owner == id {
				continue
			}
			m.release(ctx, id, taken)
			return nil, &store.Error{Code: code, Model: m.name, Field: f.Name,
				Err: fmt.Errorf("value %s already taken", value)}
		}
		taken = append(taken, uniqueValue{field: f.Name, value: value})
	}

	return taken, nil
}

// release drops claims still owned by id. Errors are ignored: a stale claim
// only blocks reuse of that value.
func (m *model) release(ctx context.Context, id string, values []uniqueValue) {
	for _, uv := range values {
		key := m.uniqueKey(uv.field)
		if owner, err := m.client.HGet(ctx, key, uv.value).Result(); err == nil && owner == id {
			m.client.HDel(ctx, key, uv.value)
		}
	}
}

// changedValues lists unique values held in prev that next does not keep.
func (m *model) changedValues(prev, next store.Document) []uniqueValue {
	var out []uniqueValue
	for _, f := range m.schema.Unique() {
		old, ok := uniqueString(prev[f.Name])
		if !ok {
			continue
		}
		if cur, ok := uniqueString(next[f.Name]); ok && cur == old {
			continue
		}
		out = append(out, uniqueValue{field: f.Name, value: old})
	}
	return out
}

func uniqueString(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(b), true
}

func (m *model) decode(raw string) (store.Document, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("decode %s document: %w", m.name, err)
	}
	return m.schema.Restore(data)
}
