package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRespondErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{fmt.Errorf("title is required: %w", ErrValidation), http.StatusBadRequest, "title is required"},
		{fmt.Errorf("username already exists: %w", ErrConflict), http.StatusBadRequest, "username already exists"},
		{ErrUnauthorized, http.StatusUnauthorized, "unauthenticated"},
		{fmt.Errorf("invalid credentials: %w", ErrUnauthorized), http.StatusUnauthorized, "invalid credentials"},
		{ErrForbidden, http.StatusForbidden, "forbidden"},
		{fmt.Errorf("post not found: %w", ErrNotFound), http.StatusNotFound, "post not found"},
		{errors.New("pq: relation \"users\" does not exist"), http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		RespondError(rec, tt.err)
		assert.Equal(t, tt.status, rec.Code, tt.err.Error())
		assert.Equal(t, tt.message, decodeBody(t, rec).Error)
	}
}

func TestRespondErrorFieldErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, &FieldErrors{Fields: map[string]string{"email": "is required"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "validation failed", body.Error)
	assert.Equal(t, "is required", body.Fields["email"])
}

func TestUnexpected(t *testing.T) {
	assert.False(t, Unexpected(nil))
	assert.False(t, Unexpected(fmt.Errorf("x: %w", ErrNotFound)))
	assert.True(t, Unexpected(errors.New("boom")))
}
