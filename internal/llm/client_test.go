package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGenerateReply(t *testing.T) {
	var gotPath, gotAuth string
	var gotReq completionRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"We have Jollof Rice for ₦2,500!"}}]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "gsk-test"}, discardLogger(), nil)

	reply, err := c.GenerateReply(context.Background(), "You are ChefBot.", "What's on the menu?")
	if err != nil {
		t.Fatalf("GenerateReply: %v", err)
	}
	if reply != "We have Jollof Rice for ₦2,500!" {
		t.Fatalf("reply = %q", reply)
	}

	if gotPath != completionsPath {
		t.Errorf("path = %q, want %q", gotPath, completionsPath)
	}
	if gotAuth != "Bearer gsk-test" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotReq.Model != defaultModel {
		t.Errorf("model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
	if gotReq.Messages[1].Content != "What's on the menu?" {
		t.Errorf("user content = %q", gotReq.Messages[1].Content)
	}
	if gotReq.MaxTokens != defaultMaxTokens {
		t.Errorf("max_tokens = %d", gotReq.MaxTokens)
	}
}

func TestGenerateReplyProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit reached","type":"rate_limit_exceeded"}}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "gsk-test"}, discardLogger(), nil)

	if _, err := c.GenerateReply(context.Background(), "sys", "hi"); err == nil {
		t.Fatal("expected error for 429 response")
	}
}

func TestGenerateReplyEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "gsk-test"}, discardLogger(), nil)

	_, err := c.GenerateReply(context.Background(), "sys", "hi")
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("err = %v, want ErrEmptyCompletion", err)
	}
}

func TestGenerateReplyTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // closed on purpose

	c := New(Config{BaseURL: srv.URL, APIKey: "gsk-test"}, discardLogger(), nil)

	if _, err := c.GenerateReply(context.Background(), "sys", "hi"); err == nil {
		t.Fatal("expected transport error")
	}
}
