package wa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendTextPayload(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.X"}]}`))
	}))
	defer srv.Close()

	c := New(Config{GraphBaseURL: srv.URL, Token: "tok-123"}, discardLogger(), nil)

	if err := c.SendText(context.Background(), "111222333", "2348010000000", "hello there"); err != nil {
		t.Fatalf("SendText: %v", err)
	}

	if gotPath != "/111222333/messages" {
		t.Errorf("path = %q, want /111222333/messages", gotPath)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotBody["messaging_product"] != "whatsapp" {
		t.Errorf("messaging_product = %v", gotBody["messaging_product"])
	}
	if gotBody["to"] != "2348010000000" {
		t.Errorf("to = %v", gotBody["to"])
	}
	text, _ := gotBody["text"].(map[string]any)
	if text["body"] != "hello there" {
		t.Errorf("text.body = %v", text["body"])
	}
}

func TestSendTextErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid token"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(Config{GraphBaseURL: srv.URL, Token: "bad"}, discardLogger(), nil)

	if err := c.SendText(context.Background(), "111", "234", "hi"); err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestSendTextTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // closed on purpose

	c := New(Config{GraphBaseURL: srv.URL, Token: "tok"}, discardLogger(), nil)

	if err := c.SendText(context.Background(), "111", "234", "hi"); err == nil {
		t.Fatal("expected transport error")
	}
}
