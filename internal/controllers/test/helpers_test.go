package controllers_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// startTestServer mounts the given routes under /v1 on an in-process HTTP
// server. The kratos server doubles as an http.Handler so no listener is
// needed.
func startTestServer(t *testing.T, register func(*khttp.Router)) *httptest.Server {
	t.Helper()
	srv := khttp.NewServer()
	register(srv.Route("/v1"))
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func userinfoHeader(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	claims, err := json.Marshal(map[string]string{"sub": userID.String()})
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(claims)
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func decodeJSON(t *testing.T, raw []byte, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, out))
}
