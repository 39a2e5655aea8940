package resource

import (
	"fmt"
	"net/http"

	"github.com/aanand-mishra/crudgen/internal/validation"
)

// Route binds an HTTP method and path template to an operation. Routes are
// built once and never modified.
type Route struct {
	Method      string
	Path        string // "/posts" or "/posts/{id}"
	Description string
	Notes       string
	Tags        []string

	// Rules is the payload rule set checked before Handler runs, or nil.
	Rules validation.RuleSet

	Op       OpKind
	Resource string // plural resource name
	Handler  Handler
}

// Collection returns the collection path of the route ("/posts").
func (r Route) Collection() string {
	return "/" + r.Resource
}

// BuildRoutes returns the five routes of a resource in fixed order:
//
//	GET    /<plural>
//	GET    /<plural>/{id}
//	PUT    /<plural>/{id}   create-or-replace, checked against the update rules
//	DELETE /<plural>/{id}
//	POST   /<plural>        create, checked against the create rules
func BuildRoutes(ops *Operations, pluralName, singularName string) ([]Route, error) {
	if ops == nil {
		return nil, fmt.Errorf("%w: operations are required", ErrConfiguration)
	}
	if pluralName == "" {
		return nil, fmt.Errorf("%w: route base name is required", ErrConfiguration)
	}
	if singularName == "" {
		return nil, fmt.Errorf("%w: singular route name is required", ErrConfiguration)
	}

	collection := "/" + pluralName
	item := collection + "/{id}"

	route := func(method, path, desc, notes string, op Operation) Route {
		return Route{
			Method:      method,
			Path:        path,
			Description: desc,
			Notes:       notes,
			Tags:        []string{"api", pluralName},
			Rules:       op.Rules,
			Op:          op.Kind,
			Resource:    pluralName,
			Handler:     op.Handle,
		}
	}

	return []Route{
		route(http.MethodGet, collection,
			"Get all "+pluralName,
			"Returns a list of "+pluralName+" ordered by addition date",
			ops.ListAll),
		route(http.MethodGet, item,
			"Get "+singularName+" by DB Id",
			"Returns the "+singularName+" object if matched with the DB id",
			ops.GetOne),
		route(http.MethodPut, item,
			"Add or update a "+singularName,
			"Overwrites the sent fields of the "+singularName+" matched with the DB id, or creates it under that id",
			ops.Update),
		route(http.MethodDelete, item,
			"Delete "+singularName,
			"Returns the "+singularName+" deletion status",
			ops.Remove),
		route(http.MethodPost, collection,
			"Add a "+singularName,
			"Returns the created "+singularName+" object",
			ops.Create),
	}, nil
}
