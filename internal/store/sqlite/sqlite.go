// Package sqlite provides a SQLite-backed implementation of the store.Conn
// interface using Go's standard database/sql package.
//
// Every bound model gets its own table:
//
//	id      TEXT PRIMARY KEY   generated identifier
//	<field> <type>             one column per schema field
//
// Strings, identifiers, dates and lists are TEXT (dates as RFC 3339, lists
// and json fields as JSON), numbers REAL, ints and bools INTEGER. Unique
// fields get a UNIQUE constraint, and a violation surfaces as a
// store.Error carrying the duplicate-key code.
//
// Importing go-sqlite3 registers the sqlite3 driver with database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/aanand-mishra/crudgen/internal/config"
	"github.com/aanand-mishra/crudgen/internal/store"

	"github.com/mattn/go-sqlite3"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Conn is a store.Conn over one SQLite database.
// It holds a *sql.DB which is a connection pool managed by database/sql.
// A single *sql.DB is safe for concurrent use by multiple goroutines.
type Conn struct {
	db      *sql.DB
	catalog store.Catalog
}

var _ store.Conn = (*Conn)(nil)

// New opens the SQLite database configured in cfg.Storage.Path, creating
// its directory when needed.
func New(cfg *config.Config) (*Conn, error) {
	path := cfg.Storage.Path
	if !strings.HasPrefix(path, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite.New: %w", err)
		}
	}
	return Open(path)
}

// Open opens (creating if needed) the SQLite database at path.
func Open(path string) (*Conn, error) {
	// sql.Open does NOT open a real connection yet. It only validates
	// the driver name and data source name (DSN).
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite.Open: open db: %w", err)
	}

	// Each connection to ":memory:" is a separate database, so keep the
	// pool to one connection for in-memory stores.
	if strings.HasPrefix(path, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.Open: ping: %w", err)
	}

	return &Conn{db: db}, nil
}

// NewFromDB wraps an existing database handle.
func NewFromDB(db *sql.DB) *Conn {
	return &Conn{db: db}
}

// DB returns the underlying database handle.
func (c *Conn) DB() *sql.DB { return c.db }

// Close closes the database.
func (c *Conn) Close() error { return c.db.Close() }

// Model creates the model's table if it does not exist and returns its
// data-access handle.
func (c *Conn) Model(name string, schema *store.Schema) (store.Model, error) {
	if !identPattern.MatchString(name) {
		return nil, fmt.Errorf("sqlite.Model: %w: model %q", store.ErrInvalidName, name)
	}
	for _, f := range schema.Fields() {
		if !identPattern.MatchString(f.Name) {
			return nil, fmt.Errorf("sqlite.Model: %w: field %q", store.ErrInvalidName, f.Name)
		}
	}

	return c.catalog.Bind(name, schema, func() (store.Model, error) {
		m := &model{
			db:     c.db,
			name:   name,
			table:  strings.ToLower(name),
			schema: schema,
		}
		if _, err := c.db.Exec(buildCreateTableSQL(m.table, schema)); err != nil {
			return nil, fmt.Errorf("sqlite.Model: create table %s: %w", m.table, err)
		}
		return m, nil
	})
}

// buildCreateTableSQL generates an idempotent CREATE TABLE statement.
func buildCreateTableSQL(table string, schema *store.Schema) string {
	columns := []string{quote(store.IDKey) + " TEXT PRIMARY KEY"}

	for _, f := range schema.Fields() {
		col := quote(f.Name) + " " + sqlType(f.Type)
		if f.Unique {
			col += " UNIQUE"
		}
		columns = append(columns, col)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)",
		quote(table), strings.Join(columns, ",\n  "))
}

// sqlType returns the SQLite column type for a field type.
func sqlType(t store.FieldType) string {
	switch t {
	case store.TypeInt, store.TypeBool:
		return "INTEGER"
	case store.TypeNumber:
		return "REAL"
	default:
		return "TEXT"
	}
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// model is the data-access handle for one table.
type model struct {
	db     *sql.DB
	name   string
	table  string
	schema *store.Schema
}

func (m *model) Name() string          { return m.name }
func (m *model) Schema() *store.Schema { return m.schema }

// columns returns the quoted id column followed by every field column.
func (m *model) columns() []string {
	cols := []string{quote(store.IDKey)}
	for _, name := range m.schema.Names() {
		cols = append(cols, quote(name))
	}
	return cols
}

// ─────────────────────────────────────────────────────────────────────────────
// Find returns every row in insertion (rowid) order.
// ─────────────────────────────────────────────────────────────────────────────
func (m *model) Find(ctx context.Context) ([]store.Document, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid",
		strings.Join(m.columns(), ", "), quote(m.table))

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("Find: query: %w", err)
	}
	defer rows.Close() // must close rows to free the DB connection

	// Returning [] instead of null in JSON is better API behaviour.
	docs := make([]store.Document, 0)

	for rows.Next() {
		doc, err := m.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("Find: scan row: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Find: rows iteration: %w", err)
	}

	return docs, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// FindByID fetches exactly one row matched by primary key.
// Malformed ids cannot match anything and are reported as store.ErrNotFound.
// ─────────────────────────────────────────────────────────────────────────────
func (m *model) FindByID(ctx context.Context, id string) (store.Document, error) {
	if !store.ValidID(id) {
		return nil, store.ErrNotFound
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? LIMIT 1",
		strings.Join(m.columns(), ", "), quote(m.table), quote(store.IDKey))

	doc, err := m.scan(m.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("FindByID: scan: %w", err)
	}

	return doc, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Insert adds a new row. Values are bound through ? placeholders so user
// input is never spliced into SQL.
// ─────────────────────────────────────────────────────────────────────────────
func (m *model) Insert(ctx context.Context, doc store.Document) (store.Document, error) {
	prepared, err := m.schema.Prepare(doc, true)
	if err != nil {
		return nil, err
	}

	if id := prepared.ID(); id == "" || !store.ValidID(id) {
		prepared[store.IDKey] = store.NewID()
	}

	args, err := m.encodeRow(prepared)
	if err != nil {
		return nil, err
	}

	cols := m.columns()
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(m.table),
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))

	stmt, err := m.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("Insert: prepare: %w", err)
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, args...); err != nil {
		return nil, m.translate(err, store.CodeDuplicateKey, "Insert")
	}

	return prepared, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Save replaces every column of the row that has doc's id and returns the
// stored document.
// ─────────────────────────────────────────────────────────────────────────────
func (m *model) Save(ctx context.Context, doc store.Document) (store.Document, error) {
	id := doc.ID()
	if !store.ValidID(id) {
		return nil, store.ErrNotFound
	}

	prepared, err := m.schema.Prepare(doc, false)
	if err != nil {
		return nil, err
	}

	args, err := m.encodeRow(prepared)
	if err != nil {
		return nil, err
	}

	// encodeRow puts the id first; the UPDATE wants it last.
	args = append(args[1:], id)

	sets := make([]string, 0, len(args))
	for _, name := range m.schema.Names() {
		sets = append(sets, quote(name)+" = ?")
	}
	if len(sets) == 0 {
		return m.FindByID(ctx, id)
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		quote(m.table), strings.Join(sets, ", "), quote(store.IDKey))

	result, err := m.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, m.translate(err, store.CodeDuplicateKeyUpdate, "Save")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("Save: rows affected: %w", err)
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	return m.FindByID(ctx, id)
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete removes a row by primary key.
// ─────────────────────────────────────────────────────────────────────────────
func (m *model) Delete(ctx context.Context, id string) error {
	if !store.ValidID(id) {
		return store.ErrNotFound
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quote(m.table), quote(store.IDKey))

	result, err := m.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: exec: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("Delete: rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	return nil
}

// translate maps unique and primary-key violations to store.Error.
func (m *model) translate(err error, code int, op string) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint &&
		(se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return &store.Error{
			Code:  code,
			Model: m.name,
			Field: constraintField(se.Error()),
			Err:   err,
		}
	}
	return fmt.Errorf("%s: exec: %w", op, err)
}

// constraintField extracts "slug" from "UNIQUE constraint failed: posts.slug".
func constraintField(msg string) string {
	i := strings.LastIndex(msg, ".")
	if i < 0 || i == len(msg)-1 {
		return ""
	}
	return strings.TrimSpace(msg[i+1:])
}

type scanner interface {
	Scan(dest ...any) error
}

// scan reads one row in columns() order and restores canonical types.
func (m *model) scan(row scanner) (store.Document, error) {
	names := append([]string{store.IDKey}, m.schema.Names()...)

	values := make([]any, len(names))
	dest := make([]any, len(names))
	for i := range values {
		dest[i] = &values[i]
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	raw := make(map[string]any, len(names))
	for i, name := range names {
		v := values[i]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		if i == 0 {
			raw[name] = v
			continue
		}
		f, _ := m.schema.Field(name)
		decoded, err := decodeColumn(f.Type, v)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		raw[name] = decoded
	}

	return m.schema.Restore(raw)
}

// encodeRow returns the id followed by every field value in columns() order.
func (m *model) encodeRow(doc store.Document) ([]any, error) {
	args := []any{doc.ID()}
	for _, f := range m.schema.Fields() {
		v, err := encodeColumn(f.Type, doc[f.Name])
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.Name, err)
		}
		args = append(args, v)
	}
	return args, nil
}

func encodeColumn(t store.FieldType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case store.TypeBool:
		if b, _ := v.(bool); b {
			return 1, nil
		}
		return 0, nil
	case store.TypeDate:
		if d, ok := v.(time.Time); ok {
			return d.UTC().Format(time.RFC3339Nano), nil
		}
	case store.TypeStrings, store.TypeIDs, store.TypeJSON:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
	return v, nil
}

func decodeColumn(t store.FieldType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case store.TypeStrings, store.TypeIDs, store.TypeJSON:
		s, ok := v.(string)
		if !ok {
			return v, nil
		}
		var out any
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	return v, nil
}
