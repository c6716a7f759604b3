package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"moogla-chat/internal/domain"
	"moogla-chat/internal/llm"
	"moogla-chat/internal/metrics"
	"moogla-chat/internal/repository"
	"moogla-chat/internal/service"
)

func newTestRouter(d llm.Dispatcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	repo := repository.NewMemoryKVRepository()
	recorder := metrics.NewRecorder()
	catalog := service.NewPluginCatalog([]domain.Plugin{{ID: "echo", Name: "Echo"}})
	prefs := service.NewPreferencesService(repo, "gpt-3.5-turbo", catalog)
	store := service.NewConversationStore(repo, logger).WithFailureReporter(recorder)
	ctrl := service.NewChatController(store, d, prefs, logger, true).WithMetrics(recorder)

	return NewRouter(
		logger,
		NewChatHandler(logger, ctrl),
		NewPreferencesHandler(logger, prefs, catalog),
		recorder,
		nil,
	)
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func chunk(content string) string {
	return `{"choices":[{"delta":{"content":"` + content + `"}}]}` + "\n"
}

func TestPostMessage_StreamsRenderEvents(t *testing.T) {
	r := newTestRouter(&llm.MockDispatcher{Chunks: []string{chunk("Hel"), chunk("lo")}})

	w := do(r, http.MethodPost, "/api/messages", `{"text":"hola"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Fatalf("expected event stream, got %q", ct)
	}

	body := w.Body.String()
	for _, want := range []string{
		"event:loading",
		"event:append",
		`"content":"hola"`,
		"event:update",
		`{"index":1,"content":"Hel"}`,
		`{"index":1,"content":"Hello"}`,
		"event:done",
		`{"count":2}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in stream, got %s", want, body)
		}
	}
	if strings.LastIndex(body, "event:done") < strings.LastIndex(body, "event:update") {
		t.Fatalf("expected done to be the last event, got %s", body)
	}

	w = do(r, http.MethodGet, "/api/history", "")
	var resp struct {
		Messages []domain.Message `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(resp.Messages) != 2 || resp.Messages[1].Content != "Hello" {
		t.Fatalf("unexpected history %+v", resp.Messages)
	}
}

func TestPostMessage_EmptyTextOnlyDone(t *testing.T) {
	d := &llm.MockDispatcher{Content: "hi"}
	r := newTestRouter(d)

	w := do(r, http.MethodPost, "/api/messages", `{"text":"   "}`)
	body := w.Body.String()
	if w.Code != http.StatusOK || !strings.Contains(body, "event:done") || strings.Contains(body, "event:append") {
		t.Fatalf("expected only done event, got %d %s", w.Code, body)
	}
	if d.Calls() != 0 {
		t.Fatalf("expected no dispatch")
	}
}

func TestPostMessage_InvalidBody(t *testing.T) {
	r := newTestRouter(&llm.MockDispatcher{})
	if w := do(r, http.MethodPost, "/api/messages", `{`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPostMessage_ConflictWhileSending(t *testing.T) {
	block := make(chan struct{})
	d := &llm.MockDispatcher{Content: "ok", Block: block}
	r := newTestRouter(d)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- do(r, http.MethodPost, "/api/messages", `{"text":"primero"}`) }()

	deadline := time.Now().Add(2 * time.Second)
	for d.Calls() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("first send never reached the dispatcher")
		}
		time.Sleep(5 * time.Millisecond)
	}

	w := do(r, http.MethodPost, "/api/messages", `{"text":"segundo"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if w := do(r, http.MethodDelete, "/api/history", ""); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for clear during send, got %d", w.Code)
	}

	close(block)
	first := <-done
	if !strings.Contains(first.Body.String(), `"content":"ok"`) {
		t.Fatalf("expected first send to complete, got %s", first.Body.String())
	}
}

func TestClearHistory(t *testing.T) {
	r := newTestRouter(&llm.MockDispatcher{Chunks: []string{chunk("hi")}})
	do(r, http.MethodPost, "/api/messages", `{"text":"hola"}`)

	if w := do(r, http.MethodDelete, "/api/history", ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	w := do(r, http.MethodGet, "/api/history", "")
	if strings.TrimSpace(w.Body.String()) != `{"messages":[]}` {
		t.Fatalf("expected empty history, got %s", w.Body.String())
	}
}

func TestPreferencesEndpoints(t *testing.T) {
	r := newTestRouter(&llm.MockDispatcher{})

	w := do(r, http.MethodGet, "/api/preferences", "")
	if !strings.Contains(w.Body.String(), `"model":"gpt-3.5-turbo"`) {
		t.Fatalf("expected default model, got %s", w.Body.String())
	}

	w = do(r, http.MethodPut, "/api/preferences", `{"model":"llama3","plugins":["echo"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	var prefs domain.Preferences
	if err := json.Unmarshal(w.Body.Bytes(), &prefs); err != nil {
		t.Fatalf("decode preferences: %v", err)
	}
	if prefs.Model != "llama3" || len(prefs.Plugins) != 1 || prefs.Plugins[0] != "echo" {
		t.Fatalf("unexpected preferences %+v", prefs)
	}

	w = do(r, http.MethodPut, "/api/preferences", `{"plugins":["nope"]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown plugin, got %d", w.Code)
	}

	w = do(r, http.MethodGet, "/api/plugins", "")
	if !strings.Contains(w.Body.String(), `"id":"echo"`) {
		t.Fatalf("expected catalog, got %s", w.Body.String())
	}
}

func TestBaseRoutes(t *testing.T) {
	r := newTestRouter(&llm.MockDispatcher{Content: "hi"})

	w := do(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health response %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Header().Get(requestIDHeader) != "abc-123" {
		t.Fatalf("expected request id propagated, got %q", rec.Header().Get(requestIDHeader))
	}

	w = do(r, http.MethodGet, "/", "")
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/html") || !strings.Contains(w.Body.String(), "/static/app.js") {
		t.Fatalf("expected index page, got %q", w.Header().Get("Content-Type"))
	}
	w = do(r, http.MethodGet, "/static/app.js", "")
	if !strings.Contains(w.Body.String(), "/api/messages") {
		t.Fatalf("expected app script")
	}

	do(r, http.MethodPost, "/api/messages", `{"text":"hola"}`)
	w = do(r, http.MethodGet, "/metrics", "")
	if !strings.Contains(w.Body.String(), `chat_sends_total{mode="complete",outcome="ok"} 1`) {
		t.Fatalf("expected send counter, got %s", w.Body.String())
	}
}
