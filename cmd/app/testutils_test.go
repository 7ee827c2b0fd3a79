package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sushihentaime/markpress/internal/common"
	"github.com/sushihentaime/markpress/internal/kvstore"
)

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, h http.Handler) *testServer {
	ts := httptest.NewServer(h)

	t.Cleanup(ts.Close)

	return &testServer{ts}
}

func newTestConfig(t *testing.T) *Config {
	cfg, err := loadConfig("")
	require.NoError(t, err)

	cfg.StoreDriver = kvstore.DriverMemory
	cfg.RateLimitEnabled = false
	cfg.TrustedOrigins = []string{"http://example.com"}

	return cfg
}

func newTestApplication(t *testing.T) *application {
	store := kvstore.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return newApplication(newTestConfig(t), logger, store, common.DiscardProducer{})
}

func readResponse(t *testing.T, res *http.Response) (int, http.Header, envelope) {
	defer res.Body.Close()

	responseBody, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	var env envelope
	err = json.Unmarshal(responseBody, &env)
	require.NoError(t, err, "body: %s", responseBody)

	return res.StatusCode, res.Header, env
}

func (ts *testServer) do(t *testing.T, method, path string, token string, payload any) (int, http.Header, envelope) {
	var body io.Reader
	if payload != nil {
		jsonPayload, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(jsonPayload)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	require.NoError(t, err)

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	res, err := ts.Client().Do(req)
	require.NoError(t, err)

	return readResponse(t, res)
}

func (ts *testServer) get(t *testing.T, path string, token string) (int, http.Header, envelope) {
	return ts.do(t, http.MethodGet, path, token, nil)
}

func (ts *testServer) post(t *testing.T, path string, token string, payload any) (int, http.Header, envelope) {
	return ts.do(t, http.MethodPost, path, token, payload)
}

func (ts *testServer) put(t *testing.T, path string, token string, payload any) (int, http.Header, envelope) {
	return ts.do(t, http.MethodPut, path, token, payload)
}

func (ts *testServer) delete(t *testing.T, path string, token string) (int, http.Header, envelope) {
	return ts.do(t, http.MethodDelete, path, token, nil)
}

// signUp registers a user through the API and returns its id and token.
func (ts *testServer) signUp(t *testing.T, name, email string) (string, string) {
	status, _, body := ts.post(t, "/v1/signup", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": "Test_1234!",
	})
	require.Equal(t, http.StatusCreated, status, body)

	user := body["user"].(map[string]any)
	token := body["token"].(map[string]any)

	return user["id"].(string), token["token"].(string)
}

// createBlog posts a blog and returns the decoded blog object.
func (ts *testServer) createBlog(t *testing.T, token string, payload map[string]any) map[string]any {
	status, _, body := ts.post(t, "/v1/blogs", token, payload)
	require.Equal(t, http.StatusCreated, status, body)

	return body["blog"].(map[string]any)
}
