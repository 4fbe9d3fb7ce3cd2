package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/snazzy/internal/build"
	"github.com/conneroisu/snazzy/internal/config"
	"github.com/conneroisu/snazzy/internal/errors"
)

func newTestServer(t *testing.T) (*DevServer, *httptest.Server) {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "web"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "web", "index.html"),
		[]byte("<!DOCTYPE html>\n<html><head></head><body><p>hi</p></body></html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "web", "app.js"), []byte("var a;"), 0o644))

	s := New(config.ServerConfig{Host: "localhost", Port: 8000}, root, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Hub().Run(ctx)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestServeInjectsReloadScript(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/web/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, ReloadPath)
	assert.True(t, strings.Index(body, "<script>") < strings.Index(body, "</body>"))
	assert.Contains(t, body, "<p>hi</p>")
}

func TestServeStaticFiles(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/web/app.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "var a;", body)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	resp, _ = get(t, ts.URL+"/web/missing.js")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServeRedirectsDirectories(t *testing.T) {
	_, ts := newTestServer(t)

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(ts.URL + "/web")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
	assert.Equal(t, "/web/", resp.Header.Get("Location"))
}

func TestServeRejectsTraversal(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := get(t, ts.URL+"/../../etc/passwd")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInjectReload(t *testing.T) {
	assert.Equal(t, "<p></p>"+reloadScript, string(injectReload([]byte("<p></p>"))))
	assert.Equal(t, "<BODY>"+reloadScript+"</BODY>", string(injectReload([]byte("<BODY></BODY>"))))
}

func TestHealth(t *testing.T) {
	s, ts := newTestServer(t)

	_, body := get(t, ts.URL+HealthPath)
	var health map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, "healthy", health["status"])

	s.HandleBuildResult(&build.Result{App: "web", Err: errors.New("boom")})
	_, body = get(t, ts.URL+HealthPath)
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, "degraded", health["status"])
	last := health["last_build"].(map[string]interface{})
	assert.Equal(t, "boom", last["error"])
}

type fixedMetrics struct{ total, failed int64 }

func (f fixedMetrics) GetMetrics() build.BuildMetrics {
	return build.BuildMetrics{
		TotalBuilds:      f.total,
		SuccessfulBuilds: f.total - f.failed,
		FailedBuilds:     f.failed,
		AverageDuration:  20 * time.Millisecond,
	}
}

func TestHealthReportsBuildMetrics(t *testing.T) {
	s, ts := newTestServer(t)

	_, body := get(t, ts.URL+HealthPath)
	assert.NotContains(t, body, `"builds"`)

	s.SetMetricsSource(fixedMetrics{total: 4, failed: 1})
	_, body = get(t, ts.URL+HealthPath)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	builds := health["builds"].(map[string]interface{})
	assert.Equal(t, float64(4), builds["total"])
	assert.Equal(t, float64(3), builds["successful"])
	assert.Equal(t, float64(1), builds["failed"])
	assert.Equal(t, float64(75), builds["success_rate"])
	assert.Equal(t, "20ms", builds["average_duration"])
}

func TestCheckOrigin(t *testing.T) {
	s := New(config.ServerConfig{Host: "localhost", Port: 8000}, t.TempDir(), nil)

	tests := []struct {
		name     string
		origin   string
		expected bool
	}{
		{"configured host", "http://localhost:8000", true},
		{"loopback alias", "http://127.0.0.1:8000", true},
		{"same host as request", "http://example.test:9000", true},
		{"https", "https://localhost:8000", true},
		{"other port", "http://localhost:3000", false},
		{"external", "http://malicious.com", false},
		{"javascript scheme", "javascript:alert(1)", false},
		{"file scheme", "file:///etc/passwd", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://example.test:9000"+ReloadPath, nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.expected, s.checkOrigin(req))
		})
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+ReloadPath, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://malicious.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestReloadBroadcast(t *testing.T) {
	s, ts := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + ReloadPath
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{ts.URL}},
	})
	require.NoError(t, err)
	defer conn.CloseNow()

	require.Eventually(t, func() bool { return s.Hub().Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	s.HandleBuildResult(&build.Result{App: "web"})

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg UpdateMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "build_success", msg.Type)
	assert.Equal(t, "web", msg.Target)

	s.HandleBuildResult(&build.Result{App: "web", Err: errors.New("cycle")})
	_, data, err = conn.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "build_error", msg.Type)
	assert.Equal(t, "cycle", msg.Content)
}

func TestHubDropsClosedClients(t *testing.T) {
	s, ts := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + ReloadPath
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{ts.URL}},
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.Hub().Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	assert.Eventually(t, func() bool { return s.Hub().Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestShutdownWithoutStart(t *testing.T) {
	s := New(config.ServerConfig{Host: "localhost", Port: 0}, t.TempDir(), nil)
	assert.NoError(t, s.Shutdown(context.Background()))
	assert.Equal(t, "localhost:0", s.Addr())
}
