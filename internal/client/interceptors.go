package client

import (
	"crypto/sha256"
	"net/http"
	"strings"
	"time"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/elearn/internal/storage"
	"github.com/wolfeidau/elearn/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// authTransport attaches the stored credential as a bearer token.
type authTransport struct {
	next  http.RoundTripper
	store storage.Storage
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, ok, err := t.store.Get(storage.KeyAuthToken)
	if err != nil {
		// Send the request unauthenticated, the server decides
		log.Warn().Err(err).Msg("failed to read stored credential")
	}

	if ok && token != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return t.next.RoundTrip(req)
}

// unauthorizedTransport clears the stored session when the server answers 401
// and tells the application so it can route the user to login.
type unauthorizedTransport struct {
	next          http.RoundTripper
	store         storage.Storage
	onInvalidated SessionInvalidatedFunc
}

func (t *unauthorizedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	m := telemetry.GetMetrics()
	status := metric.WithAttributes(attribute.Int("status", resp.StatusCode))
	m.RequestsTotal.Add(req.Context(), 1, status)
	m.RequestDuration.Record(req.Context(), time.Since(start).Seconds(), status)

	if resp.StatusCode == http.StatusUnauthorized {
		t.invalidate(req)
	}

	return resp, nil
}

func (t *unauthorizedTransport) invalidate(req *http.Request) {
	ctx := req.Context()
	telemetry.GetMetrics().UnauthorizedTotal.Add(ctx, 1)

	sent := bearerToken(req)

	current, _, err := t.store.Get(storage.KeyAuthToken)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read stored credential")
	}

	// A newer session was stored while this request was in flight, the 401
	// belongs to the old credential
	if current != "" && current != sent {
		log.Debug().
			Str("path", req.URL.Path).
			Str("sent", TokenFingerprint(sent)).
			Str("current", TokenFingerprint(current)).
			Msg("ignoring 401 for superseded credential")
		return
	}

	if err := t.store.Delete(storage.KeyAuthToken, storage.KeyUserData); err != nil {
		log.Error().Err(err).Msg("failed to clear stored session")
	}

	log.Debug().Str("path", req.URL.Path).Msg("credential rejected, session cleared")

	if t.onInvalidated != nil {
		t.onInvalidated(ctx)
	}
}

func bearerToken(req *http.Request) string {
	token, ok := strings.CutPrefix(req.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return token
}

// TokenFingerprint returns a short, non-reversible identifier for a token so
// it can be logged or displayed. Empty tokens return "".
func TokenFingerprint(token string) string {
	if token == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(token))
	return base58.Encode(hash[:8])
}
