package resource

import (
	"errors"
	"fmt"

	"github.com/aanand-mishra/crudgen/internal/store"
)

// BuildSchema wraps a storage schema into the store's schema descriptor.
func BuildSchema(storage StorageSchema) (*store.Schema, error) {
	if storage == nil {
		return nil, fmt.Errorf("%w: storage schema is required", ErrConfiguration)
	}

	fields := make([]store.Field, 0, len(storage))
	for name, f := range storage {
		fields = append(fields, store.Field{
			Name:     name,
			Type:     f.Type,
			Required: f.Required,
			Unique:   f.Unique,
			Default:  f.Default,
		})
	}

	schema, err := store.NewSchema(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return schema, nil
}

// BindModel binds modelName and schema to conn and returns the data-access
// handle. A nil conn binds against the default connection of store.Default().
//
// Binding a name that is already bound on the same connection with an
// incompatible schema fails with ErrBinding. A name the backend cannot store
// fails with ErrConfiguration. Other backend failures are returned wrapped.
func BindModel(modelName string, schema *store.Schema, conn store.Conn) (store.Model, error) {
	if modelName == "" {
		return nil, fmt.Errorf("%w: model name is required", ErrConfiguration)
	}
	if schema == nil {
		return nil, fmt.Errorf("%w: schema is required", ErrConfiguration)
	}

	if conn == nil {
		def, err := store.Default().Conn()
		if err != nil {
			return nil, fmt.Errorf("%w: model %q: %w", ErrConfiguration, modelName, err)
		}
		conn = def
	}

	model, err := conn.Model(modelName, schema)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrIncompatibleSchema):
		return nil, fmt.Errorf("%w: model %q: %w", ErrBinding, modelName, err)
	case errors.Is(err, store.ErrInvalidName):
		return nil, fmt.Errorf("%w: model %q: %w", ErrConfiguration, modelName, err)
	default:
		return nil, fmt.Errorf("bind model %q: %w", modelName, err)
	}

	return model, nil
}
