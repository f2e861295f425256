package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func candidateBody(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	})
	return string(b)
}

func errorBody(code int, message, status string) string {
	b, _ := json.Marshal(map[string]any{
		"error": map[string]any{"code": code, "message": message, "status": status},
	})
	return string(b)
}

// newTestClient points a Client at the given handler with no retry delay noise.
func newTestClient(t *testing.T, handler http.Handler, retries int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "gemini-pro",
		Retries: retries,
	}, nil)
}

func TestGenerate_Success(t *testing.T) {
	t.Parallel()
	var gotPath, gotKey string
	var gotBody generateRequest

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(candidateBody("Summary: a fox jumps.")))
	}), 0)

	got, err := c.Generate(context.Background(), "Analyze this: The quick brown fox")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Summary: a fox jumps." {
		t.Errorf("result = %q, want %q", got, "Summary: a fox jumps.")
	}
	if gotPath != "/v1beta/models/gemini-pro:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q, want %q", gotKey, "test-key")
	}
	if len(gotBody.Contents) != 1 || len(gotBody.Contents[0].Parts) != 1 {
		t.Fatalf("request body shape: %+v", gotBody)
	}
	if !strings.Contains(gotBody.Contents[0].Parts[0].Text, "quick brown fox") {
		t.Errorf("prompt not sent verbatim: %q", gotBody.Contents[0].Parts[0].Text)
	}
}

func TestGenerate_AuthError_NotRetried(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(errorBody(403, "API key not valid", "PERMISSION_DENIED")))
	}), 3)

	_, err := c.Generate(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !IsAuth(err) {
		t.Errorf("IsAuth(err) = false for %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("upstream called %d times, want 1 (auth errors must not be retried)", n)
	}
	if !strings.Contains(err.Error(), "API key not valid") {
		t.Errorf("error message lost: %v", err)
	}
}

func TestGenerate_RateLimit_NotRetried(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(errorBody(429, "Resource has been exhausted", "RESOURCE_EXHAUSTED")))
	}), 3)

	_, err := c.Generate(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !IsRateLimit(err) {
		t.Errorf("IsRateLimit(err) = false for %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("upstream called %d times, want 1", n)
	}
}

func TestGenerate_InvalidRequest_NotRetried(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(errorBody(400, "Invalid value at 'contents'", "INVALID_ARGUMENT")))
	}), 3)

	_, err := c.Generate(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !IsInvalid(err) {
		t.Errorf("IsInvalid(err) = false for %v", err)
	}
	// A 400 can never succeed on retry.
	if n := calls.Load(); n != 1 {
		t.Errorf("upstream called %d times, want 1", n)
	}
}

func TestGenerate_UpstreamError_RetriedThenFails(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(errorBody(503, "backend unavailable", "UNAVAILABLE")))
	}), 2)

	_, err := c.Generate(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !IsUpstream(err) {
		t.Errorf("IsUpstream(err) = false for %v", err)
	}
	// One initial attempt plus two retries.
	if n := calls.Load(); n != 3 {
		t.Errorf("upstream called %d times, want 3", n)
	}
}

func TestGenerate_UpstreamError_RetrySucceeds(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(candidateBody("recovered")))
	}), 2)

	got, err := c.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "recovered" {
		t.Errorf("result = %q, want %q", got, "recovered")
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("upstream called %d times, want 2", n)
	}
}

func TestGenerate_MalformedBody_IsUpstream(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}), 0)

	_, err := c.Generate(context.Background(), "hello")
	if !IsUpstream(err) {
		t.Errorf("IsUpstream(err) = false for %v", err)
	}
}

func TestGenerate_NoCandidates_IsUpstream(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}), 0)

	_, err := c.Generate(context.Background(), "hello")
	if !IsUpstream(err) {
		t.Errorf("IsUpstream(err) = false for %v", err)
	}
}

func TestGenerate_ContextCancelled(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}), 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Generate(ctx, "hello")
	if err == nil {
		t.Fatal("expected error when context is cancelled, got nil")
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()
	tests := []struct {
		status int
		want   Kind
	}{
		{401, KindAuth},
		{403, KindAuth},
		{429, KindRateLimit},
		{400, KindInvalid},
		{404, KindInvalid},
		{500, KindUpstream},
		{503, KindUpstream},
	}
	for _, tt := range tests {
		if got := classify(tt.status); got != tt.want {
			t.Errorf("classify(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}
