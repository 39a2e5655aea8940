// Package manifest reads resource definitions from YAML so resources can be
// declared without writing Go:
//
//	resources:
//	  - plural: posts
//	    model: Post
//	    singular: post
//	    fields:
//	      text:      { type: string, required: true, rule: "string,max=280" }
//	      createdOn: { type: date, default: now }
//	      likedBy:   { type: ids, default: [] }
//	      author:
//	        type: json
//	        shape:
//	          name: { rule: string, required: true }
//
// A field without a rule gets the rule of its type. internal: true keeps a
// field out of the request rule sets entirely.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aanand-mishra/crudgen/internal/resource"
	"github.com/aanand-mishra/crudgen/internal/store"
	"github.com/aanand-mishra/crudgen/internal/validation"
	"gopkg.in/yaml.v3"
)

// Now is the default value that stands for the current time.
const Now = "now"

// ErrInvalid marks a manifest that parses but cannot describe resources.
var ErrInvalid = errors.New("invalid manifest")

// Manifest is a list of resource declarations.
type Manifest struct {
	Resources []Resource `yaml:"resources"`
}

// Resource declares one resource: its three names and its fields.
type Resource struct {
	Plural   string           `yaml:"plural"`
	Model    string           `yaml:"model"`
	Singular string           `yaml:"singular"`
	Fields   map[string]Field `yaml:"fields"`
}

// Field declares one field.
type Field struct {
	Type     store.FieldType  `yaml:"type"`
	Required bool             `yaml:"required"`
	Unique   bool             `yaml:"unique"`
	Default  any              `yaml:"default"`
	Rule     string           `yaml:"rule"`
	Shape    map[string]Shape `yaml:"shape"`
	Internal bool             `yaml:"internal"`
}

// Shape declares one key of a nested object rule.
type Shape struct {
	Rule     string           `yaml:"rule"`
	Required bool             `yaml:"required"`
	Shape    map[string]Shape `yaml:"shape"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest.Load: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest.Load: %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a manifest and checks it. Unknown keys are rejected.
func Parse(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks names and field types.
func (m *Manifest) Validate() error {
	plurals := make(map[string]bool, len(m.Resources))
	models := make(map[string]bool, len(m.Resources))

	for i, r := range m.Resources {
		switch {
		case r.Plural == "":
			return fmt.Errorf("%w: resource %d: plural is required", ErrInvalid, i)
		case r.Model == "":
			return fmt.Errorf("%w: resource %q: model is required", ErrInvalid, r.Plural)
		case r.Singular == "":
			return fmt.Errorf("%w: resource %q: singular is required", ErrInvalid, r.Plural)
		case len(r.Fields) == 0:
			return fmt.Errorf("%w: resource %q: no fields", ErrInvalid, r.Plural)
		case plurals[r.Plural]:
			return fmt.Errorf("%w: resource %q declared twice", ErrInvalid, r.Plural)
		case models[r.Model]:
			return fmt.Errorf("%w: model %q declared twice", ErrInvalid, r.Model)
		}
		plurals[r.Plural] = true
		models[r.Model] = true

		for name, f := range r.Fields {
			if !f.Type.Valid() {
				return fmt.Errorf("%w: %s.%s: unknown type %q", ErrInvalid, r.Plural, name, f.Type)
			}
			if f.Shape != nil && f.Type != store.TypeJSON {
				return fmt.Errorf("%w: %s.%s: shape needs type json", ErrInvalid, r.Plural, name)
			}
		}
	}
	return nil
}

// Definition converts the declared fields into a resource definition.
func (r Resource) Definition() (resource.Definition, error) {
	def := make(resource.Definition, len(r.Fields))
	for name, f := range r.Fields {
		supplier, err := defaultSupplier(f.Type, f.Default)
		if err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %w", ErrInvalid, r.Plural, name, err)
		}

		field := &resource.Field{
			Type:     f.Type,
			Required: f.Required,
			Unique:   f.Unique,
			Default:  supplier,
		}
		if !f.Internal {
			field.Rule = fieldRule(f)
		}
		def[name] = field
	}
	return def, nil
}

// Decorate builds every declared resource.
func (m *Manifest) Decorate(opts ...resource.Option) ([]*resource.Resource, error) {
	out := make([]*resource.Resource, 0, len(m.Resources))
	for _, r := range m.Resources {
		def, err := r.Definition()
		if err != nil {
			return nil, err
		}
		res, err := resource.Decorate(def, r.Plural, r.Model, r.Singular, opts...)
		if err != nil {
			return nil, fmt.Errorf("manifest: %s: %w", r.Plural, err)
		}
		out = append(out, res)
	}
	return out, nil
}

func fieldRule(f Field) *validation.Rule {
	if f.Shape != nil {
		return validation.Object(shapeRules(f.Shape))
	}
	if f.Rule != "" {
		return validation.Tag(f.Rule)
	}
	return TypeRule(f.Type)
}

func shapeRules(shape map[string]Shape) validation.RuleSet {
	rules := make(validation.RuleSet, len(shape))
	for name, s := range shape {
		var rule *validation.Rule
		if s.Shape != nil {
			rule = validation.Object(shapeRules(s.Shape))
		} else {
			rule = validation.Tag(s.Rule)
		}
		if s.Required {
			rule = rule.Mandatory()
		}
		rules[name] = rule
	}
	return rules
}

// TypeRule is the request rule used for a field of type t when none is
// declared.
func TypeRule(t store.FieldType) *validation.Rule {
	switch t {
	case store.TypeString:
		return validation.String()
	case store.TypeNumber:
		return validation.Number()
	case store.TypeInt:
		return validation.Integer()
	case store.TypeBool:
		return validation.Boolean()
	case store.TypeDate:
		return validation.Date()
	case store.TypeID:
		return validation.String().With("uuid")
	case store.TypeStrings:
		return validation.Array(validation.String())
	case store.TypeIDs:
		return validation.Array(validation.String().With("uuid"))
	default:
		return validation.Tag("")
	}
}

// defaultSupplier turns a declared default into a supplier. Every call
// returns a fresh value, so list defaults are never shared between records.
func defaultSupplier(t store.FieldType, v any) (func() any, error) {
	if v == nil {
		return nil, nil
	}

	if s, ok := v.(string); ok && s == Now && t == store.TypeDate {
		return func() any { return time.Now().UTC() }, nil
	}

	if t != store.TypeJSON {
		if _, err := store.Coerce(t, v); err != nil {
			return nil, fmt.Errorf("default: %w", err)
		}
	}

	return func() any { return deepCopy(v) }, nil
}

func deepCopy(v any) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = deepCopy(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = deepCopy(e)
		}
		return out
	default:
		return v
	}
}
