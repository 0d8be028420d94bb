package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrumbIssueAndValidate(t *testing.T) {
	r, err := NewCrumbRegistry(time.Hour, "@every 1h", nil)
	require.NoError(t, err)
	defer r.Close()

	token := r.Issue()
	assert.True(t, r.Validate(token))
	assert.False(t, r.Validate("bogus"))
	assert.False(t, r.Validate(""))
}

func TestCrumbExpiry(t *testing.T) {
	r, err := NewCrumbRegistry(10*time.Millisecond, "@every 1h", nil)
	require.NoError(t, err)
	defer r.Close()

	token := r.Issue()
	require.True(t, r.Validate(token))

	time.Sleep(20 * time.Millisecond)
	assert.False(t, r.Validate(token))
}

func TestCrumbSweepRemovesExpired(t *testing.T) {
	r, err := NewCrumbRegistry(10*time.Millisecond, "@every 1h", nil)
	require.NoError(t, err)
	defer r.Close()

	r.Issue()
	r.Issue()
	time.Sleep(20 * time.Millisecond)

	r.Sweep()

	r.mu.Lock()
	remaining := len(r.tokens)
	r.mu.Unlock()
	assert.Zero(t, remaining)
}

func TestCrumbInvalidSchedule(t *testing.T) {
	_, err := NewCrumbRegistry(time.Hour, "not a schedule", nil)
	assert.Error(t, err)
}

func TestRequireCrumbMiddleware(t *testing.T) {
	r, err := NewCrumbRegistry(time.Hour, "@every 1h", nil)
	require.NoError(t, err)
	defer r.Close()

	called := false
	handler := r.RequireCrumb(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(CrumbHeader, r.Issue())
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}
