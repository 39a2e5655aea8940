// Package docs builds an OpenAPI 3 document from generated route tables and
// serves it together with a Swagger UI.
package docs

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/aanand-mishra/crudgen/internal/resource"
	"github.com/aanand-mishra/crudgen/internal/utils/response"
	"github.com/aanand-mishra/crudgen/internal/validation"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
)

// SpecFile is the name the document is served under.
const SpecFile = "openapi.json"

// Info describes the API as a whole.
type Info struct {
	Title       string
	Version     string
	Description string
}

// Build returns a document with one operation per route.
func Build(info Info, routes []resource.Route) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       info.Title,
			Version:     info.Version,
			Description: info.Description,
		},
		Paths: openapi3.NewPaths(),
	}

	seenTags := make(map[string]bool)
	for _, route := range routes {
		doc.AddOperation(route.Path, route.Method, operation(route))

		for _, tag := range route.Tags {
			if !seenTags[tag] {
				seenTags[tag] = true
				doc.Tags = append(doc.Tags, &openapi3.Tag{Name: tag})
			}
		}
	}

	return doc
}

func operation(route resource.Route) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = route.Resource + "." + route.Op.String()
	op.Summary = route.Description
	op.Description = route.Notes
	op.Tags = append([]string(nil), route.Tags...)

	if strings.Contains(route.Path, "{id}") {
		op.AddParameter(openapi3.NewPathParameter("id").
			WithDescription("record identifier").
			WithSchema(openapi3.NewUUIDSchema()))
	}

	if route.Rules != nil {
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithRequired(true).
				WithJSONSchema(objectSchema(route.Rules)),
		}
	}

	errorBody := openapi3.NewObjectSchema().
		WithProperty("status", openapi3.NewStringSchema()).
		WithProperty("error", openapi3.NewStringSchema())

	switch route.Op {
	case resource.OpListAll:
		op.AddResponse(http.StatusOK, openapi3.NewResponse().
			WithDescription("every record").
			WithJSONSchema(openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema())))
	case resource.OpCreate:
		op.AddResponse(http.StatusCreated, openapi3.NewResponse().
			WithDescription("the created record").
			WithJSONSchema(openapi3.NewObjectSchema()))
		op.AddResponse(http.StatusForbidden, openapi3.NewResponse().
			WithDescription("the record could not be stored").
			WithJSONSchema(errorBody))
	case resource.OpUpdate:
		op.AddResponse(http.StatusOK, openapi3.NewResponse().
			WithDescription("the replaced record").
			WithJSONSchema(openapi3.NewObjectSchema()))
		op.AddResponse(http.StatusCreated, openapi3.NewResponse().
			WithDescription("the record, created under the path id").
			WithJSONSchema(openapi3.NewObjectSchema()))
		op.AddResponse(http.StatusForbidden, openapi3.NewResponse().
			WithDescription("the record could not be stored").
			WithJSONSchema(errorBody))
	case resource.OpRemove:
		op.AddResponse(http.StatusOK, openapi3.NewResponse().
			WithDescription("deletion status").
			WithJSONSchema(openapi3.NewObjectSchema().WithProperty("message", openapi3.NewStringSchema())))
	default:
		op.AddResponse(http.StatusOK, openapi3.NewResponse().
			WithDescription("the record").
			WithJSONSchema(openapi3.NewObjectSchema()))
	}

	if route.Rules != nil || strings.Contains(route.Path, "{id}") {
		op.AddResponse(http.StatusBadRequest, openapi3.NewResponse().
			WithDescription("invalid request").
			WithJSONSchema(errorBody))
	}
	if strings.Contains(route.Path, "{id}") {
		op.AddResponse(http.StatusNotFound, openapi3.NewResponse().
			WithDescription("no record with this id").
			WithJSONSchema(errorBody))
	}
	op.AddResponse(http.StatusInternalServerError, openapi3.NewResponse().
		WithDescription("internal error").
		WithJSONSchema(errorBody))

	return op
}

// objectSchema describes a payload checked against rules.
func objectSchema(rules validation.RuleSet) *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	for _, name := range rules.Fields() {
		s.WithProperty(name, ruleSchema(rules[name]))
	}
	s.Required = rules.Mandatory()
	return s
}

// ruleSchema maps a rule's validator tags onto a JSON schema. Tags with no
// schema equivalent are left out of the document.
func ruleSchema(rule *validation.Rule) *openapi3.Schema {
	if shape := rule.Shape(); shape != nil {
		return objectSchema(shape)
	}
	return tagSchema(strings.Split(rule.Constraint(), ","))
}

func tagSchema(tags []string) *openapi3.Schema {
	s := openapi3.NewSchema()

	for i, tag := range tags {
		name, param, _ := strings.Cut(tag, "=")
		switch name {
		case "string":
			s = merge(s, openapi3.NewStringSchema())
		case "number":
			s = merge(s, openapi3.NewFloat64Schema())
		case "integer":
			s = merge(s, openapi3.NewIntegerSchema())
		case "boolean":
			s = merge(s, openapi3.NewBoolSchema())
		case "isodate":
			s = merge(s, openapi3.NewDateTimeSchema())
		case "array":
			s = merge(s, openapi3.NewArraySchema().WithItems(openapi3.NewSchema()))
		case "dive":
			if s.Items == nil {
				s = merge(s, openapi3.NewArraySchema())
			}
			s.Items = openapi3.NewSchemaRef("", tagSchema(tags[i+1:]))
			return s
		case "email", "uuid", "uri", "url", "hostname", "ipv4", "ipv6":
			s.Format = format(name)
		case "min", "gte":
			limit(s, param, true)
		case "max", "lte":
			limit(s, param, false)
		}
	}
	return s
}

// merge keeps constraints already collected on s and takes the type and
// format of typed.
func merge(s, typed *openapi3.Schema) *openapi3.Schema {
	typed.Format = firstNonEmpty(s.Format, typed.Format)
	typed.Min, typed.Max = s.Min, s.Max
	typed.MinLength, typed.MaxLength = s.MinLength, s.MaxLength
	return typed
}

func limit(s *openapi3.Schema, param string, lower bool) {
	n, err := strconv.ParseFloat(param, 64)
	if err != nil {
		return
	}
	switch {
	case s.Type.Is(openapi3.TypeString):
		if lower {
			s.MinLength = uint64(n)
		} else {
			v := uint64(n)
			s.MaxLength = &v
		}
	case s.Type.Is(openapi3.TypeArray):
		if lower {
			s.MinItems = uint64(n)
		} else {
			v := uint64(n)
			s.MaxItems = &v
		}
	default:
		if lower {
			s.Min = &n
		} else {
			s.Max = &n
		}
	}
}

func format(tag string) string {
	switch tag {
	case "url":
		return "uri"
	case "ipv4", "ipv6", "hostname", "email", "uuid", "uri":
		return tag
	}
	return ""
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// ─────────────────────────────────────────────────────────────────────────────
// Handler serves the document at <prefix>/openapi.json and the Swagger UI
// under <prefix>/. Mount it at prefix:
//
//	rt.MountHandler("/docs", docs.Handler(doc, "/docs"))
//
// ─────────────────────────────────────────────────────────────────────────────
func Handler(doc *openapi3.T, prefix string) http.Handler {
	prefix = strings.TrimSuffix(prefix, "/")

	r := chi.NewRouter()
	r.Get("/"+SpecFile, func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, doc)
	})
	r.Get("/*", httpSwagger.Handler(
		httpSwagger.URL(prefix+"/"+SpecFile),
	))
	return r
}
