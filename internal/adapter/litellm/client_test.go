package litellm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/finchdesk/finch/internal/adapter/litellm"
	"github.com/finchdesk/finch/internal/resilience"
)

func TestGeneratorComplete(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"PRIMARY: billing (0.9)"}}]}`))
	}))
	defer srv.Close()

	client := litellm.NewClient(srv.URL, "test-key", 5*time.Second)
	gen := client.Generator("openai/gpt-4o-mini")

	got, err := gen.Complete(context.Background(), "You are a classifier.", "Customer query: invoice issue")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "PRIMARY: billing (0.9)" {
		t.Errorf("content = %q", got)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["model"] != "openai/gpt-4o-mini" {
		t.Errorf("model = %v", gotBody["model"])
	}
	if gotBody["temperature"] != float64(0) {
		t.Errorf("temperature = %v, want 0", gotBody["temperature"])
	}
	messages, ok := gotBody["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("messages = %v, want system+user", gotBody["messages"])
	}
}

func TestGeneratorOmitsEmptySystem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Messages) != 1 || body.Messages[0].Role != "user" {
			t.Errorf("messages = %+v, want single user message", body.Messages)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	gen := litellm.NewClient(srv.URL, "", time.Second).Generator("m")
	if _, err := gen.Complete(context.Background(), "", "hello"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
}

func TestGeneratorAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"model overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	gen := litellm.NewClient(srv.URL, "", time.Second).Generator("m")
	if _, err := gen.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestGeneratorEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	gen := litellm.NewClient(srv.URL, "", time.Second).Generator("m")
	if _, err := gen.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := litellm.NewClient(srv.URL, "", time.Second)
	client.SetBreaker(resilience.NewBreaker(2, time.Minute))
	gen := client.Generator("m")

	for n := 0; n < 2; n++ {
		if _, err := gen.Complete(context.Background(), "s", "u"); err == nil {
			t.Fatal("expected failure")
		}
	}

	// Circuit is open now; the server must not be reached again.
	_, err := gen.Complete(context.Background(), "s", "u")
	if err == nil {
		t.Fatal("expected circuit-open error")
	}
	if hits != 2 {
		t.Errorf("server hits = %d, want 2", hits)
	}
}
