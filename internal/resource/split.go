// Package resource turns a declarative field map into a complete REST
// resource. The derivation runs once per resource at startup, in five
// stages that can also be called one by one:
//
//	Split           field map  -> storage schema + create/update rule sets
//	BuildSchema     storage    -> *store.Schema
//	BindModel       schema     -> store.Model on a connection
//	BuildOperations model      -> list / get / create / update / remove
//	BuildRoutes     operations -> five route descriptors
//
// Decorate runs all five in order.
package resource

import (
	"fmt"

	"github.com/aanand-mishra/crudgen/internal/store"
	"github.com/aanand-mishra/crudgen/internal/validation"
)

// Field declares one attribute of a resource.
type Field struct {
	Type     store.FieldType
	Required bool
	Unique   bool

	// Default supplies the stored value when a record is created without one.
	Default func() any

	// Rule validates the field in request payloads. Fields without a rule
	// are stored but cannot be sent by clients.
	Rule *validation.Rule
}

// Definition maps field names to their declarations. A nil entry is a
// configuration error, not a "no validation" marker.
type Definition map[string]*Field

// StorageField is a Field with its validation rule removed.
type StorageField struct {
	Type     store.FieldType
	Required bool
	Unique   bool
	Default  func() any
}

// StorageSchema is a Definition reduced to pure storage shape.
type StorageSchema map[string]StorageField

// SplitResult is the output of Split.
type SplitResult struct {
	Storage StorageSchema
	Create  validation.RuleSet
	Update  validation.RuleSet
}

// Split separates storage shape from validation.
//
// For every field with a rule, Update gets the rule as declared and Create
// gets it too, made mandatory when the field is Required. Both rule sets
// always cover the same field names. def is never modified: the storage
// schema is built from copies of each field.
func Split(def Definition) (*SplitResult, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: schema definition is required", ErrConfiguration)
	}

	out := &SplitResult{
		Storage: make(StorageSchema, len(def)),
		Create:  make(validation.RuleSet),
		Update:  make(validation.RuleSet),
	}

	for name, f := range def {
		if f == nil {
			return nil, fmt.Errorf("%w: field %q has a nil definition", ErrConfiguration, name)
		}

		out.Storage[name] = StorageField{
			Type:     f.Type,
			Required: f.Required,
			Unique:   f.Unique,
			Default:  f.Default,
		}

		if f.Rule == nil {
			continue
		}

		out.Update[name] = f.Rule
		if f.Required {
			out.Create[name] = f.Rule.Mandatory()
		} else {
			out.Create[name] = f.Rule
		}
	}

	return out, nil
}
