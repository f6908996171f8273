package modelchain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mzaitsev/policy-assistant/internal/core/domain"
)

type attemptRecorderFake struct {
	mu       sync.Mutex
	attempts map[string][]string
}

func newAttemptRecorderFake() *attemptRecorderFake {
	return &attemptRecorderFake{attempts: make(map[string][]string)}
}

func (f *attemptRecorderFake) RecordModelAttempt(endpoint, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[endpoint] = append(f.attempts[endpoint], outcome)
}

func completionResponse(content string) string {
	payload := map[string]any{
		"id":     "cmpl-1",
		"object": "chat.completion",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	}
	out, _ := json.Marshal(payload)
	return string(out)
}

func newModelServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func testCandidates() []domain.Candidate {
	return []domain.Candidate{
		{PolicyID: 7, Title: "Remote Work Policy", Score: 0.9, Excerpt: "Employees may work remotely up to 3 days/week."},
	}
}

func TestInvokeFallsBackWhenPrimaryFails(t *testing.T) {
	primary, primaryCalls := newModelServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	})
	fallback, fallbackCalls := newModelServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse(`{"answer":"from fallback","confidence":0.8}`)))
	})

	recorder := newAttemptRecorderFake()
	client, err := New([]Endpoint{
		{Name: "primary", BaseURL: primary.URL + "/v1", Model: "m1", Timeout: 2 * time.Second},
		{Name: "fallback", BaseURL: fallback.URL + "/v1", Model: "m2", Timeout: 2 * time.Second},
	}, Options{Metrics: recorder})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Close()

	raw, err := client.Invoke(context.Background(), "remote work?", testCandidates())
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if raw != `{"answer":"from fallback","confidence":0.8}` {
		t.Fatalf("expected fallback output, got %q", raw)
	}

	if *primaryCalls != 1 {
		t.Fatalf("primary must be tried exactly once, got %d", *primaryCalls)
	}
	if *fallbackCalls != 1 {
		t.Fatalf("fallback must be tried exactly once, got %d", *fallbackCalls)
	}
	if got := recorder.attempts["primary"]; len(got) != 1 || got[0] != "http_status" {
		t.Fatalf("expected one http_status failure for primary, got %v", got)
	}
	if got := recorder.attempts["fallback"]; len(got) != 1 || got[0] != "success" {
		t.Fatalf("expected one success for fallback, got %v", got)
	}
}

func TestInvokeAllEndpointsExhausted(t *testing.T) {
	first, firstCalls := newModelServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	second, secondCalls := newModelServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	client, err := New([]Endpoint{
		{Name: "primary", BaseURL: first.URL + "/v1", Model: "m1", Timeout: 2 * time.Second},
		{Name: "fallback", BaseURL: second.URL + "/v1", Model: "m2", Timeout: 2 * time.Second},
	}, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Close()

	_, err = client.Invoke(context.Background(), "q", testCandidates())
	if !domain.IsKind(err, domain.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	if *firstCalls != 1 || *secondCalls != 1 {
		t.Fatalf("each endpoint gets exactly one attempt, got %d and %d", *firstCalls, *secondCalls)
	}
}

func TestInvokeTimeoutCountsAsEndpointFailure(t *testing.T) {
	slow, _ := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write([]byte(completionResponse("late")))
	})
	fast, _ := newModelServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse("fast answer")))
	})

	recorder := newAttemptRecorderFake()
	client, err := New([]Endpoint{
		{Name: "slow", BaseURL: slow.URL + "/v1", Model: "m1", Timeout: 50 * time.Millisecond},
		{Name: "fast", BaseURL: fast.URL + "/v1", Model: "m2", Timeout: 2 * time.Second},
	}, Options{Metrics: recorder})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Close()

	raw, err := client.Invoke(context.Background(), "q", testCandidates())
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if raw != "fast answer" {
		t.Fatalf("expected fast endpoint output, got %q", raw)
	}
	if got := recorder.attempts["slow"]; len(got) != 1 || got[0] != "timeout" {
		t.Fatalf("expected one timeout failure for slow endpoint, got %v", got)
	}
}

func TestInvokeConnectionErrorAdvances(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	dead.Close()
	alive, _ := newModelServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse("alive")))
	})

	recorder := newAttemptRecorderFake()
	client, err := New([]Endpoint{
		{Name: "dead", BaseURL: dead.URL + "/v1", Model: "m1", Timeout: time.Second},
		{Name: "alive", BaseURL: alive.URL + "/v1", Model: "m2", Timeout: 2 * time.Second},
	}, Options{Metrics: recorder})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Close()

	raw, err := client.Invoke(context.Background(), "q", testCandidates())
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if raw != "alive" {
		t.Fatalf("expected alive endpoint output, got %q", raw)
	}
	if got := recorder.attempts["dead"]; len(got) != 1 || got[0] != "connection" {
		t.Fatalf("expected one connection failure for dead endpoint, got %v", got)
	}
}

func TestInvokeBoundedConcurrencyStillServes(t *testing.T) {
	server, _ := newModelServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse("pooled")))
	})

	client, err := New([]Endpoint{
		{Name: "primary", BaseURL: server.URL + "/v1", Model: "m1", Timeout: 2 * time.Second},
	}, Options{MaxConcurrent: 2})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			raw, err := client.Invoke(context.Background(), "q", testCandidates())
			if err != nil {
				errs <- err
				return
			}
			if raw != "pooled" {
				errs <- context.DeadlineExceeded
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent Invoke() error = %v", err)
	}
}

func TestNewRequiresEndpoints(t *testing.T) {
	if _, err := New(nil, Options{}); err == nil {
		t.Fatalf("expected error for empty endpoint chain")
	}
}
