package common

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "catalog/pkg/errors"
)

func TestRespondWithMeta(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()

	RespondWithMeta(w, http.StatusCreated, map[string]int{"id": 3}, NewMeta(r, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body struct {
		Success bool           `json:"success"`
		Data    map[string]int `json:"data"`
		Meta    MetaInfo       `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 3, body.Data["id"])
	assert.Equal(t, "req-1", body.Meta.RequestID)
	assert.Equal(t, "2026-03-01T12:00:00Z", body.Meta.Timestamp)
}

func TestParseJSONBody(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Roses"}`))
	require.NoError(t, ParseJSONBody(httptest.NewRecorder(), r, &v))
	assert.Equal(t, "Roses", v.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"nope":1}`))
	err := ParseJSONBody(httptest.NewRecorder(), r, &v)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidCommand))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	err = ParseJSONBody(httptest.NewRecorder(), r, &v)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidCommand))
}
