package wa

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type recordingProcessor struct {
	payloads []json.RawMessage
}

func (r *recordingProcessor) ProcessEvent(ctx context.Context, payload json.RawMessage) {
	r.payloads = append(r.payloads, payload)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWebhookVerification(t *testing.T) {
	h := NewWebhookHandler(discardLogger(), nil, "secret-token", nil)

	cases := []struct {
		name       string
		query      string
		wantStatus int
		wantBody   string
	}{
		{"valid", "hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=12345", http.StatusOK, "12345"},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=12345", http.StatusForbidden, ""},
		{"wrong mode", "hub.mode=unsubscribe&hub.verify_token=secret-token&hub.challenge=12345", http.StatusForbidden, ""},
		{"missing params", "", http.StatusForbidden, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/webhook?"+tc.query, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if tc.wantBody != "" && rec.Body.String() != tc.wantBody {
				t.Fatalf("body = %q, want %q", rec.Body.String(), tc.wantBody)
			}
		})
	}
}

func TestWebhookDeliveryAlwaysAcknowledges(t *testing.T) {
	proc := &recordingProcessor{}
	h := NewWebhookHandler(discardLogger(), nil, "secret-token", proc)

	body := `{"entry":[{"changes":[{"value":{"messages":[{"from":"234","type":"text","text":{"body":"hi"}}]}}]}]}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Fatalf("response = %v, want status ok", resp)
	}
	if len(proc.payloads) != 1 {
		t.Fatalf("processor calls = %d, want 1", len(proc.payloads))
	}
	if string(proc.payloads[0]) != body {
		t.Fatalf("processor got %q", proc.payloads[0])
	}
}

func TestWebhookRejectsOtherMethods(t *testing.T) {
	h := NewWebhookHandler(discardLogger(), nil, "secret-token", nil)
	req := httptest.NewRequest(http.MethodDelete, "/webhook", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
