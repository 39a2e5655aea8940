package resource

import (
	"fmt"
	"log/slog"

	"github.com/aanand-mishra/crudgen/internal/store"
	"github.com/aanand-mishra/crudgen/internal/validation"
)

// Resource is everything Decorate derives from one definition.
type Resource struct {
	Plural   string
	Singular string

	Schema     *store.Schema
	Model      store.Model
	Operations *Operations
	Routes     []Route

	CreateRules validation.RuleSet
	UpdateRules validation.RuleSet
}

// Option customises Decorate and BuildOperations.
type Option func(*options)

type options struct {
	conn   store.Conn
	policy UpdatePolicy
	logger *slog.Logger
}

func newOptions(opts []Option) options {
	o := options{policy: OverwritePresent, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithConnection binds the model on conn instead of the default connection.
func WithConnection(conn store.Conn) Option {
	return func(o *options) { o.conn = conn }
}

// WithUpdatePolicy sets which payload values an update applies.
func WithUpdatePolicy(p UpdatePolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithLogger sets the logger handlers write to.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Decorate runs the whole derivation for one resource:
//
//	def           field map
//	pluralName    route base, e.g. "people"
//	modelName     store model name, e.g. "Person"
//	singularName  used in docs and messages, e.g. "person"
func Decorate(def Definition, pluralName, modelName, singularName string, opts ...Option) (*Resource, error) {
	switch {
	case def == nil:
		return nil, fmt.Errorf("%w: schema definition is required", ErrConfiguration)
	case pluralName == "":
		return nil, fmt.Errorf("%w: route base name is required", ErrConfiguration)
	case modelName == "":
		return nil, fmt.Errorf("%w: model name is required", ErrConfiguration)
	case singularName == "":
		return nil, fmt.Errorf("%w: singular route name is required", ErrConfiguration)
	}

	o := newOptions(opts)

	split, err := Split(def)
	if err != nil {
		return nil, err
	}

	schema, err := BuildSchema(split.Storage)
	if err != nil {
		return nil, err
	}

	model, err := BindModel(modelName, schema, o.conn)
	if err != nil {
		return nil, err
	}

	ops, err := BuildOperations(model, split.Create, split.Update, singularName, opts...)
	if err != nil {
		return nil, err
	}

	routes, err := BuildRoutes(ops, pluralName, singularName)
	if err != nil {
		return nil, err
	}

	return &Resource{
		Plural:      pluralName,
		Singular:    singularName,
		Schema:      schema,
		Model:       model,
		Operations:  ops,
		Routes:      routes,
		CreateRules: split.Create,
		UpdateRules: split.Update,
	}, nil
}
