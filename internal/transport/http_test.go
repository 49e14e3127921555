package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/steveharianto/Flightly/internal/extract"
	"github.com/steveharianto/Flightly/internal/handlers"
	"github.com/steveharianto/Flightly/internal/intake"
	"github.com/steveharianto/Flightly/internal/memory"
	"github.com/steveharianto/Flightly/internal/models"
	"github.com/steveharianto/Flightly/internal/telemetry"
)

type testEnv struct {
	registry *intake.Registry
	journal  *memory.Manager
	server   *httptest.Server
}

func newTestEnv(t *testing.T, resolver intake.Resolver) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, resolver, memory.NewInMemoryStore(time.Minute))
}

func newTestEnvWithStore(t *testing.T, resolver intake.Resolver, store memory.Store) *testEnv {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	journal := memory.NewManager(store, nil)
	if resolver == nil {
		resolver = handlers.NewTravelHandler(extract.New(), handlers.WithMetrics(metrics))
	}
	registry := intake.NewRegistry(resolver,
		intake.WithJournal(journal), intake.WithMetrics(metrics), intake.WithDebounceDelay(time.Hour))

	srv := httptest.NewServer(NewHTTPHandler(registry, journal, reg, nil, metrics).Routes())
	t.Cleanup(func() {
		srv.Close()
		registry.CloseAll()
	})
	return &testEnv{registry: registry, journal: journal, server: srv}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestSessionFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/v1/sessions", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	created := decodeBody[models.SessionState](t, resp)
	base := "/v1/sessions/" + created.SessionID

	resp = env.do(t, http.MethodPost, base+"/transcript",
		`{"text":"3 passengers flying from Rome to Madrid, business class","listening":true}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("transcript status = %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, base+"/parse", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("parse status = %d", resp.StatusCode)
	}
	state := decodeBody[models.SessionState](t, resp)
	if state.Request.From != "Rome" || state.Request.To != "Madrid" || state.Request.Passengers != 3 {
		t.Errorf("request = %+v", state.Request)
	}
	if state.Source != string(handlers.SourceFallback) || !state.Listening {
		t.Errorf("source = %q listening = %v", state.Source, state.Listening)
	}

	resp = env.do(t, http.MethodGet, base+"/history", "")
	history := decodeBody[[]models.HistoryMessage](t, resp)
	if len(history) != 2 || history[0].Role != "user" {
		t.Errorf("history = %+v", history)
	}

	resp = env.do(t, http.MethodGet, base+"/history?format=text", "")
	text, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(text), "User: 3 passengers flying from Rome to Madrid") ||
		!strings.Contains(string(text), "Assistant: ") {
		t.Errorf("text history = %q", text)
	}

	resp = env.do(t, http.MethodDelete, base, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodGet, base, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d", resp.StatusCode)
	}
	if e := decodeBody[models.ErrorResponse](t, resp); e.ErrorCode != models.ErrorSessionNotFound {
		t.Errorf("error code = %q", e.ErrorCode)
	}
}

func TestParseWithInlineText(t *testing.T) {
	env := newTestEnv(t, nil)
	ctrl := env.registry.Create()

	resp := env.do(t, http.MethodPost, "/v1/sessions/"+ctrl.ID()+"/parse",
		`{"text":"my name is Anna Lee and I fly to Berlin"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	state := decodeBody[models.SessionState](t, resp)
	if state.Request.Name != "Anna Lee" || state.Request.To != "Berlin" {
		t.Errorf("request = %+v", state.Request)
	}
}

type blockingResolver struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingResolver) Resolve(ctx context.Context, text string) handlers.Resolution {
	close(b.started)
	<-b.release
	return handlers.Resolution{Source: handlers.SourceSkipped}
}

func TestParseConflictWhileBusy(t *testing.T) {
	b := &blockingResolver{started: make(chan struct{}), release: make(chan struct{})}
	env := newTestEnv(t, b)
	ctrl := env.registry.Create()
	ctrl.Submit("fly me somewhere warm")

	done := make(chan struct{})
	go func() {
		ctrl.ParseNow(context.Background())
		close(done)
	}()
	<-b.started

	resp := env.do(t, http.MethodPost, "/v1/sessions/"+ctrl.ID()+"/parse", "")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
	if e := decodeBody[models.ErrorResponse](t, resp); e.ErrorCode != models.ErrorExtractionBusy {
		t.Errorf("error code = %q", e.ErrorCode)
	}

	close(b.release)
	<-done
}

func TestBadTranscriptBody(t *testing.T) {
	env := newTestEnv(t, nil)
	ctrl := env.registry.Create()

	resp := env.do(t, http.MethodPost, "/v1/sessions/"+ctrl.ID()+"/transcript", "{not json")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, nil)
	env.registry.Create()

	resp := env.do(t, http.MethodGet, "/healthz", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "flightly_active_sessions 1") {
		t.Errorf("metrics output missing active session gauge")
	}
}

func TestHistoryForUnknownSession(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/v1/sessions/nobody/history", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if e := decodeBody[models.ErrorResponse](t, resp); e.ErrorCode != models.ErrorSessionNotFound {
		t.Errorf("error code = %q", e.ErrorCode)
	}
}

type unreachableStore struct{ *memory.InMemoryStore }

func (unreachableStore) Ping(ctx context.Context) error { return errors.New("dial tcp: connection refused") }

func TestHealthReportsJournalOutage(t *testing.T) {
	env := newTestEnvWithStore(t, nil, unreachableStore{memory.NewInMemoryStore(time.Minute)})

	resp := env.do(t, http.MethodGet, "/healthz", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	if body := decodeBody[map[string]any](t, resp); body["status"] != "degraded" {
		t.Errorf("body = %v", body)
	}
}
