package middleware_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/finchdesk/finch/internal/middleware"
)

const (
	testSecret = "wh-secret"
	sigHeader  = "X-Finch-Signature"
)

func sign(body, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func webhookRequest(body, signature string) *httptest.ResponseRecorder {
	var gotBody string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 1024)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(gotBody))
	})

	handler := middleware.WebhookHMAC(testSecret, sigHeader)(next)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(sigHeader, signature)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestWebhookHMACValidSignature(t *testing.T) {
	body := `{"message":"hello"}`
	rec := webhookRequest(body, sign(body, testSecret))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	// Body must be re-readable by the handler after verification.
	if rec.Body.String() != body {
		t.Errorf("handler body = %q, want %q", rec.Body.String(), body)
	}
}

func TestWebhookHMACSha256Prefix(t *testing.T) {
	body := `{"message":"hello"}`
	rec := webhookRequest(body, "sha256="+sign(body, testSecret))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestWebhookHMACMissingSignature(t *testing.T) {
	if rec := webhookRequest("{}", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestWebhookHMACInvalidSignature(t *testing.T) {
	if rec := webhookRequest("{}", sign("{}", "wrong-secret")); rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestWebhookHMACGarbageSignature(t *testing.T) {
	if rec := webhookRequest("{}", "not-hex"); rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestWebhookHMACUnconfiguredSecret(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := middleware.WebhookHMAC("", sigHeader)(next)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{}"))
	req.Header.Set(sigHeader, "anything")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
