package catalogapi

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/hostup/internal/recipe"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(recipe.Builtin(), logr.Discard()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path string, out any) int {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	t.Parallel()
	var body map[string]string
	code := get(t, newServer(t), "/health", &body)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]string{"status": "healthy", "message": "API is running"}, body)
}

func TestIndex(t *testing.T) {
	t.Parallel()
	var body struct {
		Name      string            `json:"name"`
		Version   string            `json:"version"`
		Endpoints map[string]string `json:"endpoints"`
	}
	code := get(t, newServer(t), "/", &body)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, Version, body.Version)
	assert.Contains(t, body.Endpoints, "/api/scripts_list")
	assert.Contains(t, body.Endpoints, "/api/script/<script_name>")
}

func TestScriptsList(t *testing.T) {
	t.Parallel()
	srv := newServer(t)

	var en listResponse
	require.Equal(t, http.StatusOK, get(t, srv, "/api/scripts_list?lang=en", &en))
	assert.True(t, en.Success)
	assert.Equal(t, len(recipe.Names()), en.Count)
	require.Len(t, en.Scripts, en.Count)
	assert.Equal(t, "node-exporter", en.Scripts[0].ScriptName)
	assert.Equal(t, "Prometheus node exporter", en.Scripts[0].Name)
	assert.True(t, en.Scripts[0].RequiresDomain)

	var fallback listResponse
	get(t, srv, "/api/scripts_list?lang=de", &fallback)
	var ru listResponse
	get(t, srv, "/api/scripts_list", &ru)
	assert.Equal(t, ru, fallback)
	assert.Equal(t, "Статус-страница Uptime Kuma", ru.Scripts[len(ru.Scripts)-1].Name)
}

func TestScript(t *testing.T) {
	t.Parallel()
	var body scriptResponse
	code := get(t, newServer(t), "/api/script/taskqueue-api?lang=en", &body)

	assert.Equal(t, http.StatusOK, code)
	require.True(t, body.Success)
	require.NotNil(t, body.Result)
	assert.Equal(t, "taskqueue-api", body.Result.ScriptName)
	assert.Equal(t, []string{"mysql", "postgres", "sqlite"}, body.Result.Variants)
	assert.Empty(t, body.Result.Secondary)
}

func TestScript_Secondary(t *testing.T) {
	t.Parallel()
	var body scriptResponse
	get(t, newServer(t), "/api/script/stalwart-mail?lang=en", &body)

	require.NotNil(t, body.Result)
	assert.Equal(t, "MX host name announced by SMTP", body.Result.Secondary)
	assert.Nil(t, body.Result.Variants)
}

func TestScript_NotFound(t *testing.T) {
	t.Parallel()
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/api/script/wordpress")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"success":false,"error":"Script with script_name \"wordpress\" not found","result":null}`, string(raw))
}

func TestMetrics(t *testing.T) {
	t.Parallel()
	srv := newServer(t)
	var body map[string]string
	get(t, srv, "/health", &body)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `hostup_catalog_api_requests_total{code="200",route="/health"} 1`)
}

func TestLanguage(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "en", Language("en"))
	assert.Equal(t, "ru", Language("ru"))
	assert.Equal(t, "ru", Language(""))
	assert.Equal(t, "ru", Language("fr"))
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	t.Parallel()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- New(recipe.Builtin(), logr.Discard()).Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
	_, err = http.Get(url)
	require.Error(t, err)
}
