package store

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// FieldType is the storage type of a schema field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number" // float64
	TypeInt     FieldType = "int"    // int64
	TypeBool    FieldType = "bool"
	TypeDate    FieldType = "date"    // time.Time, RFC 3339 on the wire
	TypeID      FieldType = "id"      // identifier of another document
	TypeStrings FieldType = "strings" // []string
	TypeIDs     FieldType = "ids"     // []string of identifiers
	TypeJSON    FieldType = "json"    // any JSON value, stored as-is
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeInt, TypeBool, TypeDate,
		TypeID, TypeStrings, TypeIDs, TypeJSON:
		return true
	}
	return false
}

// Field is the storage shape of one document field.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
	Unique   bool

	// Default supplies a value when a document is inserted without one.
	Default func() any
}

// Schema is the storage descriptor of a model. Fields are kept sorted by
// name so column order and comparisons are deterministic.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema validates fields and returns a Schema.
func NewSchema(fields []Field) (*Schema, error) {
	s := &Schema{
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	copy(s.fields, fields)
	sort.Slice(s.fields, func(i, j int) bool { return s.fields[i].Name < s.fields[j].Name })

	for i, f := range s.fields {
		if f.Name == "" {
			return nil, fmt.Errorf("store.NewSchema: field %d: empty name", i)
		}
		if f.Name == IDKey {
			return nil, fmt.Errorf("store.NewSchema: field %q is reserved", IDKey)
		}
		if !f.Type.Valid() {
			return nil, fmt.Errorf("store.NewSchema: field %q: unknown type %q", f.Name, f.Type)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("store.NewSchema: duplicate field %q", f.Name)
		}
		s.index[f.Name] = i
	}

	return s, nil
}

// Fields returns a copy of the fields in name order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Names returns the field names in order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Unique returns the fields carrying a uniqueness constraint.
func (s *Schema) Unique() []Field {
	var out []Field
	for _, f := range s.fields {
		if f.Unique {
			out = append(out, f)
		}
	}
	return out
}

// Compatible reports whether two schemas describe the same storage shape.
// Default suppliers are functions and are not compared.
func (s *Schema) Compatible(o *Schema) bool {
	if s == nil || o == nil || len(s.fields) != len(o.fields) {
		return false
	}
	for i, f := range s.fields {
		g := o.fields[i]
		if f.Name != g.Name || f.Type != g.Type || f.Required != g.Required || f.Unique != g.Unique {
			return false
		}
	}
	return true
}

// Prepare returns a copy of doc ready to be written: unknown keys dropped,
// values coerced to canonical types, and, when insert is true, defaults
// applied and required fields checked. A value that cannot be coerced or a
// missing required field fails with ErrValidation.
func (s *Schema) Prepare(doc Document, insert bool) (Document, error) {
	out := make(Document, len(s.fields)+1)
	if id := doc.ID(); id != "" {
		out[IDKey] = id
	}

	for _, f := range s.fields {
		v, ok := doc[f.Name]
		if (!ok || v == nil) && insert && f.Default != nil {
			v, ok = f.Default(), true
		}
		if !ok || v == nil {
			if f.Required {
				return nil, fmt.Errorf("%w: path %q is required", ErrValidation, f.Name)
			}
			if ok {
				out[f.Name] = nil
			}
			continue
		}

		cv, err := Coerce(f.Type, v)
		if err != nil {
			return nil, fmt.Errorf("%w: path %q: %v", ErrValidation, f.Name, err)
		}
		out[f.Name] = cv
	}

	return out, nil
}

// Restore converts raw values read back from a backend into canonical types.
func (s *Schema) Restore(raw map[string]any) (Document, error) {
	out := make(Document, len(raw))
	if id, ok := raw[IDKey].(string); ok {
		out[IDKey] = id
	}
	for _, f := range s.fields {
		v, ok := raw[f.Name]
		if !ok || v == nil {
			continue
		}
		cv, err := Coerce(f.Type, v)
		if err != nil {
			return nil, fmt.Errorf("store.Restore: field %q: %w", f.Name, err)
		}
		out[f.Name] = cv
	}
	return out, nil
}

// MaxSafeInteger is the largest magnitude a JSON number can carry as an
// exact integer.
const MaxSafeInteger = 1 << 53

// Coerce converts v to the canonical Go type of t. It accepts the shapes
// produced by encoding/json (float64, []any, string dates) as well as
// native Go values.
func Coerce(t FieldType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch t {
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("expected string, got %T", v)

	case TypeID:
		s, ok := v.(string)
		if !ok || !ValidID(s) {
			return nil, fmt.Errorf("expected identifier, got %v", v)
		}
		return s, nil

	case TypeNumber:
		if n, ok := toFloat(v); ok {
			return n, nil
		}
		return nil, fmt.Errorf("expected number, got %T", v)

	case TypeInt:
		switch i := v.(type) {
		case int64:
			return i, nil
		case int:
			return int64(i), nil
		}
		n, ok := toFloat(v)
		if !ok || n != math.Trunc(n) {
			return nil, fmt.Errorf("expected integer, got %v", v)
		}
		if math.Abs(n) > MaxSafeInteger {
			return nil, fmt.Errorf("integer %v is out of range", v)
		}
		return int64(n), nil

	case TypeBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case int64:
			return b != 0, nil
		}
		return nil, fmt.Errorf("expected boolean, got %T", v)

	case TypeDate:
		switch d := v.(type) {
		case time.Time:
			return d.UTC(), nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, d)
			if err != nil {
				return nil, fmt.Errorf("expected RFC 3339 date: %w", err)
			}
			return parsed.UTC(), nil
		}
		return nil, fmt.Errorf("expected date, got %T", v)

	case TypeStrings, TypeIDs:
		list, err := toStrings(v)
		if err != nil {
			return nil, err
		}
		if t == TypeIDs {
			for _, s := range list {
				if !ValidID(s) {
					return nil, fmt.Errorf("expected identifier, got %q", s)
				}
			}
		}
		return list, nil

	case TypeJSON:
		return v, nil
	}

	return nil, fmt.Errorf("unknown field type %q", t)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func toStrings(v any) ([]string, error) {
	switch l := v.(type) {
	case []string:
		out := make([]string, len(l))
		copy(out, l)
		return out, nil
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected list of strings, found %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected list, got %T", v)
}
