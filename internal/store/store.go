// Package store defines the document-store contract that generated resources
// persist through, together with the pieces every backend shares: the schema
// descriptor, value coercion, the model catalog and the default-connection
// registry.
//
// WHY AN INTERFACE?
// ─────────────────
// Resource handlers only need find / find-by-id / insert / save / delete.
// Keeping those behind Conn and Model lets one process use SQLite, Redis,
// or a test fake without the resource layer changing at all.
//
// Backends live in sub-packages (store/sqlite, store/redis).
package store

import (
	"context"

	"github.com/google/uuid"
)

// IDKey is the document key holding the generated identifier.
const IDKey = "id"

// Document is one stored record. Values are canonical Go types as produced
// by Coerce: string, float64, int64, bool, time.Time, []string, or any JSON
// value for TypeJSON fields.
type Document map[string]any

// ID returns the document identifier, or "" if it has none.
func (d Document) ID() string {
	id, _ := d[IDKey].(string)
	return id
}

// Clone returns a shallow copy of d.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Conn is an open connection to a document store.
// A single Conn is safe for concurrent use and may host many models.
type Conn interface {
	// Model binds name to schema and returns the data-access handle.
	// Binding the same name again with a compatible schema returns the
	// existing handle; an incompatible schema fails with ErrIncompatibleSchema.
	Model(name string, schema *Schema) (Model, error)

	// Close releases the connection.
	Close() error
}

// Model is the data-access handle for one model on one connection.
type Model interface {
	Name() string
	Schema() *Schema

	// Find returns every document in addition order.
	Find(ctx context.Context) ([]Document, error)

	// FindByID returns ErrNotFound when no document matches.
	FindByID(ctx context.Context, id string) (Document, error)

	// Insert applies defaults, checks required fields, assigns an id when the
	// document has none, and stores the document.
	Insert(ctx context.Context, doc Document) (Document, error)

	// Save replaces the stored document that has doc's id.
	Save(ctx context.Context, doc Document) (Document, error)

	// Delete returns ErrNotFound when no document matches.
	Delete(ctx context.Context, id string) error
}

// NewID returns a fresh document identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id has the canonical identifier format.
// Backends treat malformed ids as "not found" rather than as errors.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
