package resource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"

	"github.com/aanand-mishra/crudgen/internal/store"
	"github.com/aanand-mishra/crudgen/internal/validation"
)

// OpKind names one of the five operations every resource has.
type OpKind int

const (
	OpListAll OpKind = iota
	OpGetOne
	OpCreate
	OpUpdate
	OpRemove
)

var opNames = [...]string{"listAll", "getOne", "create", "update", "remove"}

func (k OpKind) String() string {
	if k < 0 || int(k) >= len(opNames) {
		return "unknown"
	}
	return opNames[k]
}

// Request is what a handler needs from an HTTP request: the {id} path
// segment (raw string, validated by the store) and the decoded JSON body.
type Request struct {
	ID      string
	Payload map[string]any
}

// Reply is a successful handler result.
type Reply struct {
	Status int
	Body   any

	// Location is the path of the affected record relative to the
	// resource collection, e.g. "/0b6c…".
	Location string
}

// Handler runs one operation. A non-nil error is always a *Error.
type Handler func(ctx context.Context, req Request) (Reply, error)

// Operation pairs a handler with the rules its payload must satisfy.
// Rules is nil for operations without a body.
type Operation struct {
	Kind   OpKind
	Rules  validation.RuleSet
	Handle Handler
}

// Operations is the fixed operation set of one resource.
type Operations struct {
	ListAll Operation
	GetOne  Operation
	Create  Operation
	Update  Operation
	Remove  Operation
}

// ByKind returns the operation of kind k.
func (o *Operations) ByKind(k OpKind) (Operation, bool) {
	switch k {
	case OpListAll:
		return o.ListAll, true
	case OpGetOne:
		return o.GetOne, true
	case OpCreate:
		return o.Create, true
	case OpUpdate:
		return o.Update, true
	case OpRemove:
		return o.Remove, true
	}
	return Operation{}, false
}

// Configuration names of the update policies.
const (
	PolicyPresent = "present"
	PolicyTruthy  = "truthy"
)

// UpdatePolicy decides which payload values an update copies onto the
// stored record.
type UpdatePolicy int

const (
	// OverwritePresent copies every key present in the payload, including
	// empty strings, zeros, false and null.
	OverwritePresent UpdatePolicy = iota

	// OverwriteTruthy skips null, false, "", 0 and NaN.
	OverwriteTruthy
)

// ParseUpdatePolicy maps the configuration value to a policy.
func ParseUpdatePolicy(s string) (UpdatePolicy, error) {
	switch s {
	case "", PolicyPresent:
		return OverwritePresent, nil
	case PolicyTruthy:
		return OverwriteTruthy, nil
	}
	return 0, fmt.Errorf("%w: unknown update policy %q", ErrConfiguration, s)
}

func (p UpdatePolicy) applies(v any) bool {
	if p == OverwritePresent {
		return true
	}
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0 && !math.IsNaN(x)
	case int:
		return x != 0
	case int64:
		return x != 0
	}
	return true
}

// BuildOperations returns the five operations of a resource bound to model.
// singularName is used in client-facing messages.
func BuildOperations(model store.Model, create, update validation.RuleSet, singularName string, opts ...Option) (*Operations, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: data handle is required", ErrConfiguration)
	}
	if singularName == "" {
		return nil, fmt.Errorf("%w: singular route name is required", ErrConfiguration)
	}

	o := newOptions(opts)
	c := &controller{
		model:    model,
		singular: singularName,
		policy:   o.policy,
		log:      o.logger.With(slog.String("resource", singularName)),
	}

	return &Operations{
		ListAll: Operation{Kind: OpListAll, Handle: c.listAll},
		GetOne:  Operation{Kind: OpGetOne, Handle: c.getOne},
		Create:  Operation{Kind: OpCreate, Rules: create, Handle: c.create},
		Update:  Operation{Kind: OpUpdate, Rules: update, Handle: c.update},
		Remove:  Operation{Kind: OpRemove, Handle: c.remove},
	}, nil
}

// controller holds what the five handlers share. It is read-only after
// BuildOperations returns.
type controller struct {
	model    store.Model
	singular string
	policy   UpdatePolicy
	log      *slog.Logger
}

// ─────────────────────────────────────────────────────────────────────────────
// listAll returns every record, unfiltered and unpaginated.
// ─────────────────────────────────────────────────────────────────────────────
func (c *controller) listAll(ctx context.Context, _ Request) (Reply, error) {
	c.log.Info("listing records")

	docs, err := c.model.Find(ctx)
	if err != nil {
		c.log.Error("error listing records", slog.String("error", err.Error()))
		return Reply{}, &Error{Kind: KindStoreUnavailable, Message: internalMessage, Err: err}
	}

	return Reply{Status: http.StatusOK, Body: docs}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// getOne returns the record with the path id. A lookup error and a missing
// record both answer 404.
// ─────────────────────────────────────────────────────────────────────────────
func (c *controller) getOne(ctx context.Context, req Request) (Reply, error) {
	c.log.Info("getting a record", slog.String("id", req.ID))

	doc, err := c.model.FindByID(ctx, req.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.log.Error("error getting record", slog.String("id", req.ID), slog.String("error", err.Error()))
		}
		return Reply{}, &Error{Kind: KindNotFound, Message: c.singular + " not found", Err: err}
	}

	return Reply{Status: http.StatusOK, Body: doc}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// create stores a new record built from the (already validated) payload.
// Success answers 201 with the record and its location.
// ─────────────────────────────────────────────────────────────────────────────
func (c *controller) create(ctx context.Context, req Request) (Reply, error) {
	c.log.Info("creating a record")

	doc, err := c.model.Insert(ctx, store.Document(req.Payload).Clone())
	if err != nil {
		return Reply{}, c.persistError("create", err)
	}

	c.log.Info("record created", slog.String("id", doc.ID()))
	return Reply{Status: http.StatusCreated, Body: doc, Location: "/" + doc.ID()}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// update is create-or-replace on the path id. An existing record gets the
// payload fields copied onto it, subject to the update policy, and is saved
// (200). An absent record is inserted under the path id (201). A malformed
// id can never be stored, so it stays 404.
// ─────────────────────────────────────────────────────────────────────────────
func (c *controller) update(ctx context.Context, req Request) (Reply, error) {
	c.log.Info("updating a record", slog.String("id", req.ID))

	doc, err := c.model.FindByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if !store.ValidID(req.ID) {
				return Reply{}, &Error{Kind: KindNotFound, Message: c.singular + " not found", Err: err}
			}
			return c.insertAt(ctx, req)
		}
		c.log.Error("error looking up record", slog.String("id", req.ID), slog.String("error", err.Error()))
		return Reply{}, &Error{Kind: KindServerError, Message: internalMessage, Err: err}
	}

	c.overwrite(doc, req.Payload)

	saved, err := c.model.Save(ctx, doc)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Reply{}, &Error{Kind: KindNotFound, Message: c.singular + " not found", Err: err}
		}
		return Reply{}, c.persistError("update", err)
	}

	c.log.Info("record updated", slog.String("id", req.ID))
	return Reply{Status: http.StatusOK, Body: saved, Location: "/" + saved.ID()}, nil
}

// insertAt creates the record a PUT named but the store does not hold yet.
func (c *controller) insertAt(ctx context.Context, req Request) (Reply, error) {
	doc := store.Document{}
	c.overwrite(doc, store.Document(req.Payload).Clone())
	doc[store.IDKey] = req.ID

	saved, err := c.model.Insert(ctx, doc)
	if err != nil {
		return Reply{}, c.persistError("replace", err)
	}

	c.log.Info("record created", slog.String("id", saved.ID()))
	return Reply{Status: http.StatusCreated, Body: saved, Location: "/" + saved.ID()}, nil
}

// overwrite copies the payload fields the update policy accepts onto doc.
// The id is never taken from the payload.
func (c *controller) overwrite(doc store.Document, payload map[string]any) {
	for k, v := range payload {
		if k == store.IDKey || !c.policy.applies(v) {
			continue
		}
		doc[k] = v
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// remove deletes the record with the path id.
// ─────────────────────────────────────────────────────────────────────────────
func (c *controller) remove(ctx context.Context, req Request) (Reply, error) {
	c.log.Info("deleting a record", slog.String("id", req.ID))

	_, err := c.model.FindByID(ctx, req.ID)
	if err == nil {
		err = c.model.Delete(ctx, req.ID)
	}

	switch {
	case err == nil:
		c.log.Info("record deleted", slog.String("id", req.ID))
		return Reply{
			Status: http.StatusOK,
			Body:   map[string]string{"message": c.singular + " deleted successfully"},
		}, nil
	case errors.Is(err, store.ErrNotFound):
		return Reply{}, &Error{Kind: KindNotFound, Message: c.singular + " not found", Err: err}
	default:
		c.log.Error("error deleting record", slog.String("id", req.ID), slog.String("error", err.Error()))
		return Reply{}, &Error{Kind: KindBadRequest, Message: "Could not delete " + c.singular, Err: err}
	}
}

// persistError maps insert/save failures: duplicate keys get a fixed
// message, anything else carries the store's own message. Both answer 403.
func (c *controller) persistError(op string, err error) error {
	c.log.Warn("error persisting record", slog.String("op", op), slog.String("error", err.Error()))

	if store.IsDuplicateKey(err) {
		return &Error{
			Kind:    KindConflict,
			Message: "please provide another " + c.singular + " id, it already exists",
			Err:     err,
		}
	}
	return &Error{Kind: KindConflict, Message: err.Error(), Err: err}
}
