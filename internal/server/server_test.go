package server

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/muurk/apswitch/internal/certs"
	"github.com/muurk/apswitch/internal/config"
	"github.com/muurk/apswitch/internal/logging"
	"github.com/muurk/apswitch/internal/pages"
)

type stubMetrics struct {
	heap uint64
}

func (m *stubMetrics) ChipID(ctx context.Context) (string, error)      { return "chip-1", nil }
func (m *stubMetrics) CoreVersion(ctx context.Context) (string, error) { return "6.1/go", nil }
func (m *stubMetrics) CPUFrequencyMHz(ctx context.Context) (float64, error) {
	return 1200, nil
}
func (m *stubMetrics) FreeHeap() uint64 { return m.heap }

var rootPlaceholders = []string{
	"${rootWebTitle}", "${hostName}", "${firmwareVersion}", "${chipId}",
	"${coreVersion}", "${cpuFreq}", "${freeHeap}",
}

func newServer(t *testing.T) *Server {
	t.Helper()

	cred, err := certs.ExampleCredential()
	if err != nil {
		t.Fatalf("ExampleCredential() error = %v", err)
	}
	settings := config.Defaults()
	set := pages.New(pages.Identity{
		Title:           settings.RootWebTitle,
		Hostname:        settings.Hostname,
		FirmwareVersion: "9.9.9",
	}, &stubMetrics{heap: 4242})

	srv, err := New(Config{
		Settings:     settings,
		Credential:   cred,
		Pages:        set,
		ListenAddr:   "127.0.0.1:0",
		AcceptWindow: 20 * time.Millisecond,
		ConnTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv
}

// startServer starts srv and runs its loop until the test ends.
func startServer(t *testing.T, srv *Server) {
	t.Helper()

	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Serve() did not return after cancel")
		}
	})
}

func newClient() *http.Client {
	return &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
				ClientSessionCache: tls.NewLRUClientSessionCache(32),
			},
			DisableKeepAlives: true,
		},
	}
}

func do(t *testing.T, client *http.Client, method, url string, body io.Reader, header http.Header) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(data)
}

func TestServer_Routes(t *testing.T) {
	srv := newServer(t)
	startServer(t, srv)
	base := "https://" + srv.Addr()
	client := newClient()

	t.Run("GET / renders status page", func(t *testing.T) {
		resp, body := do(t, client, http.MethodGet, base+"/", nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
			t.Errorf("Content-Type = %q", resp.Header.Get("Content-Type"))
		}
		for _, token := range rootPlaceholders {
			if strings.Contains(body, token) {
				t.Errorf("body still contains %s", token)
			}
		}
		for _, want := range []string{"Deadspace AP", "deadspace001", "9.9.9", "chip-1", "4242"} {
			if !strings.Contains(body, want) {
				t.Errorf("body missing %q", want)
			}
		}
	})

	t.Run("/admin ignores method, body and headers", func(t *testing.T) {
		cases := []struct {
			method string
			body   io.Reader
			header http.Header
		}{
			{http.MethodGet, nil, nil},
			{http.MethodPost, strings.NewReader("user=root&password=x"), http.Header{"Content-Type": {"application/x-www-form-urlencoded"}}},
			{http.MethodPut, strings.NewReader("{}"), http.Header{"Authorization": {"Basic Zm9vOmJhcg=="}}},
		}
		for _, c := range cases {
			resp, body := do(t, client, c.method, base+"/admin", c.body, c.header)
			if resp.StatusCode != http.StatusOK {
				t.Errorf("%s /admin status = %d, want 200", c.method, resp.StatusCode)
			}
			if !strings.Contains(body, `type="password"`) {
				t.Errorf("%s /admin did not return the login page", c.method)
			}
		}
	})

	t.Run("unknown paths are 404", func(t *testing.T) {
		for _, path := range []string{"/does-not-exist", "/admin/", "/index.html"} {
			resp, body := do(t, client, http.MethodGet, base+path, nil, nil)
			if resp.StatusCode != http.StatusNotFound {
				t.Errorf("GET %s status = %d, want 404", path, resp.StatusCode)
			}
			if !strings.Contains(body, "404 Not Found") {
				t.Errorf("GET %s did not return the not-found page", path)
			}
			if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
				t.Errorf("GET %s Content-Type = %q", path, resp.Header.Get("Content-Type"))
			}
		}
	})

	t.Run("POST / is not routed", func(t *testing.T) {
		resp, _ := do(t, client, http.MethodPost, base+"/", strings.NewReader("x"), nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("POST / status = %d, want 404", resp.StatusCode)
		}
	})
}

func TestServer_SessionCacheBounded(t *testing.T) {
	srv := newServer(t)
	startServer(t, srv)
	base := "https://" + srv.Addr()

	resumed := false
	for i := 0; i < 20; i++ {
		// A fresh client per request forces new sessions into the cache.
		client := newClient()
		resp, _ := do(t, client, http.MethodGet, base+"/", nil, nil)
		if resp.TLS == nil {
			t.Fatal("response without TLS state")
		}

		// The same client again should resume.
		resp, _ = do(t, client, http.MethodGet, base+"/", nil, nil)
		if resp.TLS.DidResume {
			resumed = true
		}
	}

	if got := srv.Sessions().Capacity(); got != SessionCacheSize {
		t.Errorf("Capacity() = %d, want %d", got, SessionCacheSize)
	}
	if got := srv.Sessions().Len(); got > SessionCacheSize {
		t.Errorf("Len() = %d, exceeds capacity %d", got, SessionCacheSize)
	}
	if !resumed {
		t.Error("expected at least one resumed session")
	}
}

func TestServer_Lifecycle(t *testing.T) {
	srv := newServer(t)

	if srv.Status() != StatusClosed {
		t.Errorf("Status before Start = %v, want CLOSED", srv.Status())
	}
	if err := srv.Step(); err == nil {
		t.Error("Step before Start should fail")
	}
	if err := srv.Serve(context.Background()); err == nil {
		t.Error("Serve before Start should fail")
	}

	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if srv.Status() != StatusListen {
		t.Errorf("Status after Start = %v, want LISTEN", srv.Status())
	}
	if err := srv.Start(); err == nil {
		t.Error("second Start should fail")
	}
	if err := srv.Router().Handle("/late", func(http.ResponseWriter, *http.Request) {}); !errors.Is(err, ErrRouteTableFrozen) {
		t.Errorf("late registration = %v, want ErrRouteTableFrozen", err)
	}

	// No client: Step returns after the accept window without error.
	if err := srv.Step(); err != nil {
		t.Errorf("idle Step() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := srv.Serve(ctx); err != nil {
		t.Errorf("Serve() error = %v", err)
	}
	if srv.Status() != StatusClosed {
		t.Errorf("Status after Serve returns = %v, want CLOSED", srv.Status())
	}
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logging.SetLogger(zap.New(core))
	t.Cleanup(func() { logging.SetLogger(nil) })
	return logs
}

func statusEntries(logs *observer.ObservedLogs) []string {
	var states []string
	for _, entry := range logs.FilterMessage("Server status").All() {
		states = append(states, entry.ContextMap()["status"].(string))
	}
	return states
}

func TestServer_StatusLogged(t *testing.T) {
	logs := observeLogs(t)
	srv := newServer(t)

	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	states := statusEntries(logs)
	if len(states) != 1 || states[0] != "LISTEN" {
		t.Fatalf("status entries after Start = %v, want [LISTEN]", states)
	}
	entry := logs.FilterMessage("Server status").All()[0]
	if addr := entry.ContextMap()["addr"]; addr != srv.Addr() {
		t.Errorf("addr = %v, want %s", addr, srv.Addr())
	}

	if err := srv.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if states := statusEntries(logs); len(states) != 2 || states[1] != "CLOSED" {
		t.Errorf("status entries after Shutdown = %v, want [LISTEN CLOSED]", states)
	}
}

func TestServer_ServeStopsWhenListenerClosed(t *testing.T) {
	logs := observeLogs(t)
	srv := newServer(t)

	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := srv.listener.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after the listener was closed")
	}

	if srv.Status() != StatusClosed {
		t.Errorf("Status = %v, want CLOSED", srv.Status())
	}
	if states := statusEntries(logs); len(states) != 2 || states[1] != "CLOSED" {
		t.Errorf("status entries = %v, want [LISTEN CLOSED]", states)
	}
}

func TestServer_PlainHTTPClientIsDropped(t *testing.T) {
	srv := newServer(t)
	startServer(t, srv)

	resp, err := (&http.Client{Timeout: 2 * time.Second}).Get("http://" + srv.Addr() + "/")
	if err == nil {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			t.Error("plain HTTP must not be served")
		}
	}

	// The loop survives the bad client.
	r, _ := do(t, newClient(), http.MethodGet, "https://"+srv.Addr()+"/", nil, nil)
	if r.StatusCode != http.StatusOK {
		t.Errorf("status after bad client = %d", r.StatusCode)
	}
}

func TestNew_Validation(t *testing.T) {
	cred, _ := certs.ExampleCredential()
	set := pages.New(pages.Identity{}, &stubMetrics{})

	if _, err := New(Config{Credential: cred, Pages: set}); err == nil {
		t.Error("expected error without settings")
	}
	if _, err := New(Config{Settings: config.Defaults(), Pages: set}); !errors.Is(err, config.ErrNoCredential) {
		t.Errorf("expected ErrNoCredential, got %v", err)
	}
	if _, err := New(Config{Settings: config.Defaults(), Credential: cred}); err == nil {
		t.Error("expected error without pages")
	}
}

func TestHandlers(t *testing.T) {
	srv := newServer(t)

	tests := []struct {
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{http.MethodGet, "/", http.StatusOK, "chip-1"},
		{http.MethodPost, "/admin", http.StatusOK, "Administration"},
		{http.MethodGet, "/nope", http.StatusNotFound, "404 Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Header().Get("Content-Type") != "text/html; charset=utf-8" {
				t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body missing %q", tt.wantBody)
			}
		})
	}
}

func TestResponseWriter_WriteTo(t *testing.T) {
	w := newResponseWriter()
	writeHTML(w, http.StatusNotFound, "<p>gone</p>")
	w.WriteHeader(http.StatusOK) // ignored

	var buf bytes.Buffer
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if err := w.writeTo(&buf, req); err != nil {
		t.Fatalf("writeTo() error = %v", err)
	}

	resp, err := http.ReadResponse(bufio.NewReader(&buf), req)
	if err != nil {
		t.Fatalf("ReadResponse() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if resp.ContentLength != int64(len("<p>gone</p>")) {
		t.Errorf("ContentLength = %d", resp.ContentLength)
	}
	if !resp.Close {
		t.Error("response should close the connection")
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "<p>gone</p>" {
		t.Errorf("body = %q", body)
	}
}

func TestResponseWriter_Defaults(t *testing.T) {
	w := newResponseWriter()
	if w.StatusCode() != http.StatusOK {
		t.Errorf("default status = %d, want 200", w.StatusCode())
	}
	_, _ = w.Write([]byte("<html><body>hi</body></html>"))

	var buf bytes.Buffer
	if err := w.writeTo(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Content-Type: text/html") {
		t.Errorf("expected sniffed content type, got:\n%s", buf.String())
	}
}
