package testutil

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingT struct{ failures int }

func (r *recordingT) Errorf(string, ...any) { r.failures++ }

func TestNewRequest(t *testing.T) {
	r := NewRequest(http.MethodPost, "/api/books", map[string]string{"title": "Dune"})
	assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

	r = NewRequest(http.MethodGet, "/api/books", nil)
	assert.Empty(t, r.Header.Get("Content-Type"))
}

func TestServe(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"DUPLICATE_TITLE"}}`))
	})

	resp := Serve(h, NewRequest(http.MethodPost, "/api/books", `{"title":"Dune"}`))

	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "DUPLICATE_TITLE", resp.ErrorCode())
	assert.Nil(t, resp.Data())

	rt := &recordingT{}
	AssertResponseCode(rt, resp.Code, http.StatusConflict)
	AssertResponseBody(rt, resp.Body, "success", false)
	AssertResponseBody(rt, resp.Body, "missing", true)
	assert.Equal(t, 1, rt.failures)
}
