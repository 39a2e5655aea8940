package resource

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"testing"

	"github.com/aanand-mishra/crudgen/internal/store"
	"github.com/aanand-mishra/crudgen/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func buildOps(t *testing.T, m store.Model, opts ...Option) *Operations {
	t.Helper()
	opts = append([]Option{WithLogger(quiet)}, opts...)
	ops, err := BuildOperations(m, validation.RuleSet{"title": validation.String().Mandatory()},
		validation.RuleSet{"title": validation.String()}, "post", opts...)
	require.NoError(t, err)
	return ops
}

func requireKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, kind, rerr.Kind)
	return rerr
}

func TestBuildOperations_Shape(t *testing.T) {
	ops := buildOps(t, newFakeModel())

	for k := OpListAll; k <= OpRemove; k++ {
		op, ok := ops.ByKind(k)
		require.True(t, ok, k.String())
		assert.Equal(t, k, op.Kind)
		assert.NotNil(t, op.Handle, k.String())
	}
	_, ok := ops.ByKind(OpKind(42))
	assert.False(t, ok)

	assert.Nil(t, ops.ListAll.Rules)
	assert.Nil(t, ops.GetOne.Rules)
	assert.Nil(t, ops.Remove.Rules)
	assert.True(t, ops.Create.Rules["title"].IsMandatory())
	assert.False(t, ops.Update.Rules["title"].IsMandatory())
}

func TestBuildOperations_ConfigurationErrors(t *testing.T) {
	_, err := BuildOperations(nil, nil, nil, "post")
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = BuildOperations(newFakeModel(), nil, nil, "")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestListAll(t *testing.T) {
	ctx := context.Background()
	m := newFakeModel()
	ops := buildOps(t, m)

	reply, err := ops.ListAll.Handle(ctx, Request{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, reply.Status)
	assert.Empty(t, reply.Body)

	first, err := ops.Create.Handle(ctx, Request{Payload: map[string]any{"title": "a"}})
	require.NoError(t, err)
	second, err := ops.Create.Handle(ctx, Request{Payload: map[string]any{"title": "b"}})
	require.NoError(t, err)

	reply, err = ops.ListAll.Handle(ctx, Request{})
	require.NoError(t, err)
	docs := reply.Body.([]store.Document)
	require.Len(t, docs, 2)
	assert.Equal(t, first.Body.(store.Document).ID(), docs[0].ID())
	assert.Equal(t, second.Body.(store.Document).ID(), docs[1].ID())
}

func TestListAll_StoreUnavailable(t *testing.T) {
	m := newFakeModel()
	m.findErr = errors.New("connection refused")
	ops := buildOps(t, m)

	_, err := ops.ListAll.Handle(context.Background(), Request{})
	rerr := requireKind(t, err, KindStoreUnavailable)
	assert.Equal(t, http.StatusInternalServerError, rerr.Status())
	assert.NotContains(t, rerr.Message, "connection refused")
}

func TestGetOne(t *testing.T) {
	ctx := context.Background()
	m := newFakeModel()
	ops := buildOps(t, m)

	created, err := ops.Create.Handle(ctx, Request{Payload: map[string]any{"title": "hello"}})
	require.NoError(t, err)
	id := created.Body.(store.Document).ID()

	reply, err := ops.GetOne.Handle(ctx, Request{ID: id})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, reply.Status)
	assert.Equal(t, "hello", reply.Body.(store.Document)["title"])

	_, err = ops.GetOne.Handle(ctx, Request{ID: store.NewID()})
	rerr := requireKind(t, err, KindNotFound)
	assert.Equal(t, "post not found", rerr.Message)
	assert.Equal(t, http.StatusNotFound, rerr.Status())
}

func TestGetOne_LookupErrorIsNotFound(t *testing.T) {
	m := newFakeModel()
	m.findByIDErr = errors.New("boom")
	ops := buildOps(t, m)

	_, err := ops.GetOne.Handle(context.Background(), Request{ID: "x"})
	requireKind(t, err, KindNotFound)
}

func TestCreate(t *testing.T) {
	m := newFakeModel()
	ops := buildOps(t, m)
	payload := map[string]any{"title": "hello"}

	reply, err := ops.Create.Handle(context.Background(), Request{Payload: payload})
	require.NoError(t, err)

	doc := reply.Body.(store.Document)
	assert.Equal(t, http.StatusCreated, reply.Status)
	assert.Equal(t, "/"+doc.ID(), reply.Location)
	assert.NotContains(t, payload, store.IDKey, "payload must not be mutated")
}

func TestCreate_DuplicateKey(t *testing.T) {
	m := newFakeModel()
	m.insertErr = &store.Error{Code: store.CodeDuplicateKey, Model: "Fake", Field: "title"}
	ops := buildOps(t, m)

	_, err := ops.Create.Handle(context.Background(), Request{Payload: map[string]any{"title": "x"}})
	rerr := requireKind(t, err, KindConflict)
	assert.Equal(t, http.StatusForbidden, rerr.Status())
	assert.Contains(t, rerr.Message, "already exist")
}

func TestCreate_OtherStoreError(t *testing.T) {
	m := newFakeModel()
	m.insertErr = errors.New("title: path is required")
	ops := buildOps(t, m)

	_, err := ops.Create.Handle(context.Background(), Request{Payload: map[string]any{}})
	rerr := requireKind(t, err, KindConflict)
	assert.Equal(t, "title: path is required", rerr.Message)
}

func TestUpdate_Policies(t *testing.T) {
	seed := store.Document{
		store.IDKey: store.NewID(),
		"title":     "old",
		"body":      "text",
		"views":     int64(3),
		"draft":     true,
	}
	payload := map[string]any{
		store.IDKey: "ignored",
		"title":     "new",
		"body":      "",
		"views":     float64(0),
		"draft":     false,
	}

	tests := []struct {
		name   string
		policy UpdatePolicy
		want   store.Document
	}{
		{
			name:   "present",
			policy: OverwritePresent,
			want: store.Document{
				store.IDKey: seed.ID(), "title": "new", "body": "", "views": float64(0), "draft": false,
			},
		},
		{
			name:   "truthy",
			policy: OverwriteTruthy,
			want: store.Document{
				store.IDKey: seed.ID(), "title": "new", "body": "text", "views": int64(3), "draft": true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newFakeModel()
			m.put(seed.Clone())
			ops := buildOps(t, m, WithUpdatePolicy(tt.policy))

			reply, err := ops.Update.Handle(context.Background(), Request{ID: seed.ID(), Payload: payload})
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, reply.Status)
			assert.Equal(t, "/"+seed.ID(), reply.Location)
			assert.Equal(t, tt.want, m.saved)
		})
	}
}

func TestUpdate_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("malformed id", func(t *testing.T) {
		ops := buildOps(t, newFakeModel())
		_, err := ops.Update.Handle(ctx, Request{ID: "not-an-id", Payload: map[string]any{"title": "x"}})
		requireKind(t, err, KindNotFound)
	})

	t.Run("insert failure", func(t *testing.T) {
		m := newFakeModel()
		m.insertErr = errors.New("title is required")
		ops := buildOps(t, m)

		_, err := ops.Update.Handle(ctx, Request{ID: store.NewID(), Payload: map[string]any{}})
		rerr := requireKind(t, err, KindConflict)
		assert.Equal(t, http.StatusForbidden, rerr.Status())
	})

	t.Run("lookup failure", func(t *testing.T) {
		m := newFakeModel()
		m.findByIDErr = errors.New("timeout")
		ops := buildOps(t, m)
		_, err := ops.Update.Handle(ctx, Request{ID: "x", Payload: map[string]any{}})
		rerr := requireKind(t, err, KindServerError)
		assert.Equal(t, http.StatusInternalServerError, rerr.Status())
	})

	t.Run("duplicate on save", func(t *testing.T) {
		m := newFakeModel()
		id := store.NewID()
		m.put(store.Document{store.IDKey: id, "title": "a"})
		m.saveErr = &store.Error{Code: store.CodeDuplicateKeyUpdate, Model: "Fake", Field: "title"}
		ops := buildOps(t, m)

		_, err := ops.Update.Handle(ctx, Request{ID: id, Payload: map[string]any{"title": "b"}})
		rerr := requireKind(t, err, KindConflict)
		assert.Contains(t, rerr.Message, "already exist")
	})
}

func TestUpdate_CreatesAbsentRecord(t *testing.T) {
	ctx := context.Background()
	m := newFakeModel()
	ops := buildOps(t, m, WithUpdatePolicy(OverwriteTruthy))
	id := store.NewID()

	reply, err := ops.Update.Handle(ctx, Request{ID: id, Payload: map[string]any{
		store.IDKey: store.NewID(),
		"title":     "first",
		"draft":     false,
	}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, reply.Status)
	assert.Equal(t, "/"+id, reply.Location)
	assert.Equal(t, store.Document{store.IDKey: id, "title": "first"}, reply.Body)
	assert.Equal(t, []string{id}, m.order)

	// The same PUT again replaces instead of creating.
	reply, err = ops.Update.Handle(ctx, Request{ID: id, Payload: map[string]any{"title": "second"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, reply.Status)
	assert.Equal(t, "second", m.docs[id]["title"])
	assert.Len(t, m.docs, 1)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	m := newFakeModel()
	id := store.NewID()
	m.put(store.Document{store.IDKey: id, "title": "a"})
	ops := buildOps(t, m)

	reply, err := ops.Remove.Handle(ctx, Request{ID: id})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, reply.Status)
	assert.Equal(t, map[string]string{"message": "post deleted successfully"}, reply.Body)

	_, err = ops.Remove.Handle(ctx, Request{ID: id})
	requireKind(t, err, KindNotFound)
}

func TestRemove_DeleteFailure(t *testing.T) {
	m := newFakeModel()
	id := store.NewID()
	m.put(store.Document{store.IDKey: id})
	m.deleteErr = errors.New("locked")
	ops := buildOps(t, m)

	_, err := ops.Remove.Handle(context.Background(), Request{ID: id})
	rerr := requireKind(t, err, KindBadRequest)
	assert.Equal(t, "Could not delete post", rerr.Message)
	assert.Equal(t, http.StatusBadRequest, rerr.Status())
}

func TestRemove_LookupFailure(t *testing.T) {
	m := newFakeModel()
	m.findByIDErr = errors.New("timeout")
	ops := buildOps(t, m)

	_, err := ops.Remove.Handle(context.Background(), Request{ID: store.NewID()})
	rerr := requireKind(t, err, KindBadRequest)
	assert.Equal(t, "Could not delete post", rerr.Message)
	assert.Equal(t, http.StatusBadRequest, rerr.Status())
}

func TestUpdatePolicy_Applies(t *testing.T) {
	falsy := []any{nil, false, "", float64(0), math.NaN(), 0, int64(0)}
	truthy := []any{true, "x", float64(-1), 1, int64(2), []any{}, map[string]any{}}

	for _, v := range falsy {
		assert.True(t, OverwritePresent.applies(v), "%#v", v)
		assert.False(t, OverwriteTruthy.applies(v), "%#v", v)
	}
	for _, v := range truthy {
		assert.True(t, OverwriteTruthy.applies(v), "%#v", v)
	}
}

func TestParseUpdatePolicy(t *testing.T) {
	p, err := ParseUpdatePolicy("")
	require.NoError(t, err)
	assert.Equal(t, OverwritePresent, p)

	p, err = ParseUpdatePolicy(PolicyTruthy)
	require.NoError(t, err)
	assert.Equal(t, OverwriteTruthy, p)

	_, err = ParseUpdatePolicy("sometimes")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestOpKind_String(t *testing.T) {
	assert.Equal(t, "listAll", OpListAll.String())
	assert.Equal(t, "remove", OpRemove.String())
	assert.Equal(t, "unknown", OpKind(-1).String())
}
