package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/maxverstappen583/Tribute/config"
	"github.com/maxverstappen583/Tribute/counter"
	"github.com/maxverstappen583/Tribute/page"
	"github.com/maxverstappen583/Tribute/tribute"
)

// fakeStore records calls and can be made to fail.
type fakeStore struct {
	mu    sync.Mutex
	n     int64
	incs  int
	gets  int
	fails bool
}

func (f *fakeStore) IncrementAndGet(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incs++
	if f.fails {
		return 0, counter.ErrStorageUnavailable
	}
	f.n++
	return f.n, nil
}

func (f *fakeStore) Get(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.fails {
		return 0, counter.ErrStorageUnavailable
	}
	return f.n, nil
}

type fakeBot struct{ platform, status string }

func (b fakeBot) Platform() string { return b.platform }
func (b fakeBot) Status() string   { return b.status }

func testConfig() *config.Config {
	return &config.Config{
		FriendName:     "chikatto",
		YourName:       "Max",
		StartYear:      "2023",
		EndYear:        "2025",
		EmbedImageURL:  "https://example.com/img.png",
		TributeCommand: "chikatto",
		CommandPrefix:  "!",
		CounterBackend: config.CounterFile,
	}
}

func newTestHandler(t *testing.T, cfg *config.Config, store counter.Store, bots ...StatusReporter) http.Handler {
	t.Helper()
	t.Setenv("RATE_LIMIT_ENABLED", "0")
	r, err := page.New()
	if err != nil {
		t.Fatalf("page.New() error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewMux(ctx, Deps{
		Config:   cfg,
		Texts:    tribute.Default(),
		Store:    store,
		Renderer: r,
		Bots:     bots,
	})
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthzOK(t *testing.T) {
	h := newTestHandler(t, testConfig(), nil)
	rr := do(h, http.MethodGet, "/healthz")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", rr.Code, rr.Body.String())
	}
	if got := rr.Body.String(); got != "ok" {
		t.Fatalf("expected ok body, got %q", got)
	}
}

func TestRawEndpoints(t *testing.T) {
	store := &fakeStore{}
	h := newTestHandler(t, testConfig(), store)

	tests := []struct {
		path string
		want string
	}{
		{"/raw/thanks", tribute.Thanks()},
		{"/raw/glory", tribute.Glory()},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := do(h, http.MethodGet, tt.path)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d", rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
				t.Errorf("Content-Type = %q", ct)
			}
			if got := rr.Body.String(); got != tt.want {
				t.Errorf("body differs from composed text:\n got %q\nwant %q", got, tt.want)
			}
		})
	}

	// raw endpoints are not visits
	if store.incs != 0 || store.gets != 0 {
		t.Errorf("raw endpoints touched the counter: incs=%d gets=%d", store.incs, store.gets)
	}
	// and are independent of prior page renders
	do(h, http.MethodGet, "/")
	if got := do(h, http.MethodGet, "/raw/thanks").Body.String(); got != tribute.Thanks() {
		t.Error("raw thanks changed after a page render")
	}
}

func TestIndexIncrementsFileCounter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visits.txt")
	h := newTestHandler(t, testConfig(), counter.NewFile(path))

	var rr *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		rr = do(h, http.MethodGet, "/")
		if rr.Code != http.StatusOK {
			t.Fatalf("GET / status = %d", rr.Code)
		}
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "Visits: 3") {
		t.Errorf("third render should show Visits: 3")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read counter file: %v", err)
	}
	if strings.TrimSpace(string(raw)) != "3" {
		t.Errorf("persisted count = %q, want 3", raw)
	}
}

func TestIndexHeadDoesNotCount(t *testing.T) {
	store := &fakeStore{n: 9}
	h := newTestHandler(t, testConfig(), store)

	rr := do(h, http.MethodHead, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("HEAD / status = %d", rr.Code)
	}
	if store.incs != 0 || store.gets != 1 {
		t.Fatalf("HEAD should read without counting: incs=%d gets=%d", store.incs, store.gets)
	}
}

func TestIndexDegradesOnStorageError(t *testing.T) {
	store := &fakeStore{fails: true}
	h := newTestHandler(t, testConfig(), store)

	rr := do(h, http.MethodGet, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, page must still render", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "Visits:") {
		t.Error("count shown despite storage failure")
	}
	if !strings.Contains(rr.Body.String(), "In Loving Memory") {
		t.Error("page body missing")
	}
}

func TestIndexUnwritableFileStore(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// parent of the counter file is a regular file, so nothing can be created
	h := newTestHandler(t, testConfig(), counter.NewFile(filepath.Join(blocker, "visits.txt")))

	rr := do(h, http.MethodGet, "/")
	if rr.Code != http.StatusOK || strings.Contains(rr.Body.String(), "Visits:") {
		t.Fatalf("expected 200 without count, got %d", rr.Code)
	}
}

func TestIndexWithoutStore(t *testing.T) {
	h := newTestHandler(t, testConfig(), nil)
	rr := do(h, http.MethodGet, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "Visits:") {
		t.Error("count shown with counting disabled")
	}
}

func TestIndexEscapesConfig(t *testing.T) {
	cfg := testConfig()
	cfg.FriendName = "<b>Name</b>"
	h := newTestHandler(t, cfg, nil)

	body := do(h, http.MethodGet, "/").Body.String()
	if strings.Contains(body, "<b>Name</b>") {
		t.Fatal("friend name rendered unescaped")
	}
	if !strings.Contains(body, "&lt;b&gt;Name&lt;/b&gt;") {
		t.Fatal("escaped friend name missing")
	}
}

func TestIndexOpenParameter(t *testing.T) {
	h := newTestHandler(t, testConfig(), nil)

	plain := do(h, http.MethodGet, "/").Body.String()
	unknown := do(h, http.MethodGet, "/?open=nonsense").Body.String()
	if plain != unknown {
		t.Error("unknown open value changed the page")
	}

	rr := do(h, http.MethodGet, "/?open=counter")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `<details id="counter" open>`) {
		t.Error("counter section not pre-expanded")
	}
}

func TestRoutingErrors(t *testing.T) {
	h := newTestHandler(t, testConfig(), &fakeStore{})

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/does-not-exist", http.StatusNotFound},
		{http.MethodGet, "/raw/other", http.StatusNotFound},
		{http.MethodPost, "/", http.StatusMethodNotAllowed},
		{http.MethodDelete, "/raw/thanks", http.StatusMethodNotAllowed},
		{http.MethodPut, "/raw/glory", http.StatusMethodNotAllowed},
		{http.MethodOptions, "/raw/thanks", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			if rr := do(h, tt.method, tt.path); rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestStatusReportsWithoutCounting(t *testing.T) {
	store := &fakeStore{n: 41}
	h := newTestHandler(t, testConfig(), store,
		fakeBot{"discord", "ready"}, fakeBot{"twitch", "disconnected"})

	rr := do(h, http.MethodGet, "/status")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var got statusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Visits == nil || *got.Visits != 41 {
		t.Errorf("visits = %v, want 41", got.Visits)
	}
	if got.Bots["discord"] != "ready" || got.Bots["twitch"] != "disconnected" {
		t.Errorf("bots = %v", got.Bots)
	}
	if got.CounterBackend != config.CounterFile {
		t.Errorf("counter_backend = %q", got.CounterBackend)
	}
	if store.incs != 0 {
		t.Errorf("/status incremented the counter")
	}

	store.fails = true
	rr = do(h, http.MethodGet, "/status")
	got = statusResponse{}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != "degraded" || got.Visits != nil {
		t.Errorf("expected degraded status without visits, got %+v", got)
	}
}

// pathStore fails with an error naming where the count is stored.
type pathStore struct{}

func (pathStore) IncrementAndGet(ctx context.Context) (int64, error) { return 0, pathStore{}.err() }
func (pathStore) Get(ctx context.Context) (int64, error)             { return 0, pathStore{}.err() }

func (pathStore) err() error {
	return fmt.Errorf("%w: open /srv/private/visits.txt: permission denied", counter.ErrStorageUnavailable)
}

func TestStatusHidesStorageDetails(t *testing.T) {
	h := newTestHandler(t, testConfig(), pathStore{})

	rr := do(h, http.MethodGet, "/status")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "/srv/private") {
		t.Fatalf("/status exposed the storage error: %s", rr.Body.String())
	}
	var got statusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != "degraded" || got.CounterError != counterUnavailableMsg {
		t.Errorf("got %+v, want degraded with %q", got, counterUnavailableMsg)
	}
}

func TestCorrelationHeader(t *testing.T) {
	h := newTestHandler(t, testConfig(), nil)

	rr := do(h, http.MethodGet, "/healthz")
	if rr.Header().Get("X-Correlation-ID") == "" {
		t.Error("correlation id not generated")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Correlation-ID"); got != "abc-123" {
		t.Errorf("correlation id = %q, want abc-123", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t, testConfig(), nil)
	if rr := do(h, http.MethodGet, "/metrics"); rr.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d", rr.Code)
	}
}

func TestRouteLabel(t *testing.T) {
	for path, want := range map[string]string{
		"/":           "/",
		"/raw/glory":  "/raw/glory",
		"/wp-admin":   "other",
		"/raw/thanks": "/raw/thanks",
	} {
		if got := routeLabel(path); got != want {
			t.Errorf("routeLabel(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestStartAndShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Run server in background on random port by using :0
	done := make(chan error, 1)
	go func() { done <- Start(ctx, http.NotFoundHandler(), "127.0.0.1:0") }()

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}

func TestStartListenError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := Start(ctx, http.NotFoundHandler(), "127.0.0.1:-1")
	if err == nil {
		t.Fatal("expected listen error")
	}
	if errors.Is(err, http.ErrServerClosed) {
		t.Fatalf("listen failure reported as a clean close: %v", err)
	}
}
