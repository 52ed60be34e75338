package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

type stubResponder struct {
	answer  string
	err     error
	queries []string
}

func (s *stubResponder) Respond(_ context.Context, query string) (string, error) {
	s.queries = append(s.queries, query)
	return s.answer, s.err
}

func setupRouter(responder Responder) *chi.Mux {
	handler := New(responder, "Hi, how can I help?", "Test Assistant")

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func decodeMessage(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	return body["message"]
}

func TestWelcomeReturnsFormattedGreeting(t *testing.T) {
	r := setupRouter(&stubResponder{})

	req := httptest.NewRequest(http.MethodGet, "/welcome", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type: %s", ct)
	}
	msg := decodeMessage(t, resp)
	if !strings.Contains(msg, "<p>Hi, how can I help?</p>") {
		t.Fatalf("expected greeting paragraph, got %q", msg)
	}
	if !strings.Contains(msg, "<title>Test Assistant</title>") {
		t.Fatalf("expected configured title, got %q", msg)
	}
}

func TestQueryReturnsAnswer(t *testing.T) {
	responder := &stubResponder{answer: "Use **MFA**"}
	r := setupRouter(responder)

	payload := []byte(`{"query":"  secure my account  "}`)
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(decodeMessage(t, resp), "<p>Use <strong>MFA</strong></p>") {
		t.Fatal("expected formatted answer")
	}
	if len(responder.queries) != 1 || responder.queries[0] != "secure my account" {
		t.Fatalf("unexpected queries: %v", responder.queries)
	}
}

func TestQueryMissingQuery(t *testing.T) {
	responder := &stubResponder{}
	r := setupRouter(responder)

	for _, payload := range []string{`{}`, `{"query":"   "}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(payload))
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)

		if resp.Code != http.StatusBadRequest {
			t.Fatalf("payload %q: expected 400, got %d", payload, resp.Code)
		}
	}
	if len(responder.queries) != 0 {
		t.Fatalf("responder should not be called, got %v", responder.queries)
	}
}

func TestQueryResponderFailure(t *testing.T) {
	r := setupRouter(&stubResponder{err: errors.New("model down")})

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"hi"}`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
}
