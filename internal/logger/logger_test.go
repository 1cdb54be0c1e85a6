package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPRequests_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	t.Run("logs status and duration", func(t *testing.T) {
		var buf bytes.Buffer
		rt := NewHTTPRequests(zerolog.New(&buf).Level(zerolog.DebugLevel), nil)

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/courses", nil)
		require.NoError(t, err)

		resp, err := rt.RoundTrip(req)
		require.NoError(t, err)
		resp.Body.Close()

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "debug", entry["level"])
		assert.Equal(t, "GET", entry["method"])
		assert.Equal(t, "/api/courses", entry["path"])
		assert.EqualValues(t, 200, entry["status"])
		assert.Contains(t, entry, "duration")
	})

	t.Run("client errors are logged as warnings", func(t *testing.T) {
		var buf bytes.Buffer
		rt := NewHTTPRequests(zerolog.New(&buf).Level(zerolog.DebugLevel), nil)

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/missing", nil)
		require.NoError(t, err)

		resp, err := rt.RoundTrip(req)
		require.NoError(t, err)
		resp.Body.Close()

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "warn", entry["level"])
		assert.EqualValues(t, 404, entry["status"])
	})
}
