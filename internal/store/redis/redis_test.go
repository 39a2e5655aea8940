package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aanand-mishra/crudgen/internal/store"
	"github.com/aanand-mishra/crudgen/internal/store/redis"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*redis.Conn, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	conn := redis.NewFromClient(client, "test")
	t.Cleanup(func() { conn.Close() })
	return conn, mr
}

func personSchema(t *testing.T) *store.Schema {
	t.Helper()
	s, err := store.NewSchema([]store.Field{
		{Name: "firstName", Type: store.TypeString, Required: true},
		{Name: "email", Type: store.TypeString, Unique: true},
		{Name: "age", Type: store.TypeInt},
		{Name: "createdOn", Type: store.TypeDate, Default: func() any {
			return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		}},
	})
	require.NoError(t, err)
	return s
}

func TestRedisModelCRUD(t *testing.T) {
	conn, mr := setup(t)
	ctx := context.Background()

	m, err := conn.Model("Person", personSchema(t))
	require.NoError(t, err)

	created, err := m.Insert(ctx, store.Document{"firstName": "Ada", "email": "ada@example.com", "age": float64(36)})
	require.NoError(t, err)
	id := created.ID()
	assert.True(t, mr.Exists("test:Person:doc:"+id))

	got, err := m.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got["firstName"])
	assert.Equal(t, int64(36), got["age"])
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), got["createdOn"])

	got["firstName"] = "Augusta"
	saved, err := m.Save(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "Augusta", saved["firstName"])

	all, err := m.Find(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Augusta", all[0]["firstName"])

	require.NoError(t, m.Delete(ctx, id))
	_, err = m.FindByID(ctx, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, m.Delete(ctx, id), store.ErrNotFound)

	// The unique value is free again after delete.
	_, err = m.Insert(ctx, store.Document{"firstName": "Ada", "email": "ada@example.com"})
	assert.NoError(t, err)
}

func TestRedisFindOrder(t *testing.T) {
	conn, _ := setup(t)
	ctx := context.Background()
	m, err := conn.Model("Person", personSchema(t))
	require.NoError(t, err)

	var ids []string
	for _, name := range []string{"c", "a", "b"} {
		doc, err := m.Insert(ctx, store.Document{"firstName": name})
		require.NoError(t, err)
		ids = append(ids, doc.ID())
	}

	all, err := m.Find(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := range all {
		assert.Equal(t, ids[i], all[i].ID())
	}
}

func TestRedisDuplicateKey(t *testing.T) {
	conn, _ := setup(t)
	ctx := context.Background()
	m, err := conn.Model("Person", personSchema(t))
	require.NoError(t, err)

	_, err = m.Insert(ctx, store.Document{"firstName": "A", "email": "x@example.com"})
	require.NoError(t, err)

	_, err = m.Insert(ctx, store.Document{"firstName": "B", "email": "x@example.com"})
	require.Error(t, err)
	assert.True(t, store.IsDuplicateKey(err))

	second, err := m.Insert(ctx, store.Document{"firstName": "C", "email": "y@example.com"})
	require.NoError(t, err)

	second["email"] = "x@example.com"
	_, err = m.Save(ctx, second)
	var se *store.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, store.CodeDuplicateKeyUpdate, se.Code)
	assert.Equal(t, "email", se.Field)

	// Moving to a fresh value releases the old one.
	second["email"] = "z@example.com"
	_, err = m.Save(ctx, second)
	require.NoError(t, err)
	_, err = m.Insert(ctx, store.Document{"firstName": "D", "email": "y@example.com"})
	assert.NoError(t, err)
}

func TestRedisMissingAndMalformed(t *testing.T) {
	conn, _ := setup(t)
	ctx := context.Background()
	m, err := conn.Model("Person", personSchema(t))
	require.NoError(t, err)

	_, err = m.FindByID(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = m.FindByID(ctx, store.NewID())
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = m.Save(ctx, store.Document{store.IDKey: store.NewID(), "firstName": "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = m.Insert(ctx, store.Document{"age": float64(1)})
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestRedisIncompatibleBinding(t *testing.T) {
	conn, _ := setup(t)

	_, err := conn.Model("Person", personSchema(t))
	require.NoError(t, err)

	other, err := store.NewSchema([]store.Field{{Name: "firstName", Type: store.TypeString}})
	require.NoError(t, err)
	_, err = conn.Model("Person", other)
	assert.ErrorIs(t, err, store.ErrIncompatibleSchema)
}

func TestRedisStoreUnavailable(t *testing.T) {
	conn, mr := setup(t)
	m, err := conn.Model("Person", personSchema(t))
	require.NoError(t, err)

	mr.Close()
	_, err = m.Find(context.Background())
	assert.Error(t, err)
}
