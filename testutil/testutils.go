// Package testutil provides shared fixtures for exercising the protocol
// over HTTP in tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AngelaRollins9561294/psiFHE-Tool/crypto"
	"github.com/AngelaRollins9561294/psiFHE-Tool/protocol"
)

// NewIdentity generates a fresh participant key pair.
func NewIdentity(t *testing.T) (crypto.Address, crypto.PrivateKey) {
	t.Helper()
	addr, key, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return addr, key
}

// PostSigned signs the payload with the caller's key and posts it to the
// handler, returning the recorder with the response.
func PostSigned[T any](t *testing.T, handler http.Handler, path string, key crypto.PrivateKey, payload *T) *httptest.ResponseRecorder {
	t.Helper()

	signed, err := protocol.NewSigned(key, payload)
	require.NoError(t, err)
	body, err := json.Marshal(signed)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// Get performs a GET request against the handler.
func Get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// DecodeResponse decodes a JSON response body.
func DecodeResponse[T any](t *testing.T, w *httptest.ResponseRecorder) *T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return &out
}

// RecordingSink collects emitted protocol events for assertions.
type RecordingSink struct {
	Events []protocol.Event
}

// Emit implements protocol.EventSink.
func (s *RecordingSink) Emit(event protocol.Event) {
	s.Events = append(s.Events, event)
}
