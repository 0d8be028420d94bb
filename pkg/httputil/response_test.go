package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	err := WriteJSON(rec, http.StatusOK, map[string]string{"status": "ok"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestWriteText(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteText(rec, http.StatusBadRequest, "A role with the name already exists.")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "A role with the name already exists.", rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
}

func TestParseJSONOrError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"dev`))
	var dest map[string]string
	ok := ParseJSONOrError(rec, req, &dest)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFormValueRequired(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("sid=alice"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	sid, ok := FormValueRequired(rec, req, "sid")
	require.True(t, ok)
	assert.Equal(t, "alice", sid)

	_, ok = FormValueRequired(rec, req, "roleName")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
