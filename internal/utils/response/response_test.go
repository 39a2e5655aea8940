package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aanand-mishra/crudgen/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, WriteJSON(rec, http.StatusCreated, map[string]string{"id": "abc"}))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"abc"}`, rec.Body.String())
}

func TestGeneralError(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, WriteJSON(rec, http.StatusBadRequest, GeneralError(ErrEmptyBody)))

	var got Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, Response{Status: StatusError, Error: "request body is empty"}, got)
}

func TestValidationError(t *testing.T) {
	errs := validation.Errors{
		{Field: "firstName", Tag: "required"},
		{Field: "email", Tag: "email"},
		{Field: "age", Tag: "integer"},
	}

	got := ValidationError(errs)

	assert.Equal(t, StatusError, got.Status)
	assert.Equal(t,
		"field firstName is required, field email must be a valid email address, field age must be of type integer",
		got.Error)
}

func TestGeneralError_WrappedMessage(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, "boom", GeneralError(err).Error)
}
