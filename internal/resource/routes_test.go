package resource

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRoutes_Widgets(t *testing.T) {
	ops := buildOps(t, newFakeModel())

	routes, err := BuildRoutes(ops, "widgets", "widget")
	require.NoError(t, err)
	require.Len(t, routes, 5)

	want := []struct {
		method, path string
		op           OpKind
	}{
		{http.MethodGet, "/widgets", OpListAll},
		{http.MethodGet, "/widgets/{id}", OpGetOne},
		{http.MethodPut, "/widgets/{id}", OpUpdate},
		{http.MethodDelete, "/widgets/{id}", OpRemove},
		{http.MethodPost, "/widgets", OpCreate},
	}
	for i, w := range want {
		assert.Equal(t, w.method, routes[i].Method, i)
		assert.Equal(t, w.path, routes[i].Path, i)
		assert.Equal(t, w.op, routes[i].Op, i)
		assert.Equal(t, []string{"api", "widgets"}, routes[i].Tags, i)
		assert.Equal(t, "/widgets", routes[i].Collection(), i)
		assert.NotNil(t, routes[i].Handler, i)
	}

	assert.Equal(t, "Get widget by DB Id", routes[1].Description)
	assert.Equal(t, "Get all widgets", routes[0].Description)
	assert.Equal(t, "Returns a list of widgets ordered by addition date", routes[0].Notes)
	assert.Equal(t, "Add a widget", routes[4].Description)
}

func TestBuildRoutes_RuleReferences(t *testing.T) {
	ops := buildOps(t, newFakeModel())

	routes, err := BuildRoutes(ops, "posts", "post")
	require.NoError(t, err)

	assert.Nil(t, routes[0].Rules)
	assert.Nil(t, routes[1].Rules)
	assert.Nil(t, routes[3].Rules)
	assert.Equal(t, ops.Update.Rules, routes[2].Rules)
	assert.Equal(t, ops.Create.Rules, routes[4].Rules)
}

func TestBuildRoutes_ConfigurationErrors(t *testing.T) {
	ops := buildOps(t, newFakeModel())

	_, err := BuildRoutes(nil, "posts", "post")
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = BuildRoutes(ops, "", "post")
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = BuildRoutes(ops, "posts", "")
	assert.ErrorIs(t, err, ErrConfiguration)
}
