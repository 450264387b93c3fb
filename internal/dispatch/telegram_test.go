package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestTelegramDeliverSuccess(t *testing.T) {
	var gotPath string
	var gotPayload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"message_id": 987},
		})
	}))
	defer srv.Close()

	transport := NewTelegramTransport("BOT-TOKEN", srv.URL, time.Second, zerolog.Nop())
	ack, err := transport.Deliver(context.Background(), Request{ChatID: "77", Text: "hello", ParseMode: "HTML"})
	if err != nil {
		t.Fatalf("成功响应不应报错: %v", err)
	}

	if ack.MessageID != 987 {
		t.Fatalf("应解析 message_id, 实际 %d", ack.MessageID)
	}
	if gotPath != "/botBOT-TOKEN/sendMessage" {
		t.Fatalf("请求路径不正确: %s", gotPath)
	}
	if gotPayload["chat_id"] != "77" || gotPayload["parse_mode"] != "HTML" {
		t.Fatalf("请求体不正确: %v", gotPayload)
	}
}

func TestTelegramDeliverRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"description": "Too Many Requests",
			"parameters":  map[string]any{"retry_after": 7},
		})
	}))
	defer srv.Close()

	transport := NewTelegramTransport("BOT-TOKEN", srv.URL, time.Second, zerolog.Nop())
	_, err := transport.Deliver(context.Background(), Request{ChatID: "77", Text: "hello"})

	var rateLimited *RateLimitedError
	if !errors.As(err, &rateLimited) {
		t.Fatalf("HTTP 429 必须映射为 RateLimitedError, 实际 %v", err)
	}
	if rateLimited.RetryAfter != 7*time.Second {
		t.Fatalf("应解析 retry_after, 实际 %s", rateLimited.RetryAfter)
	}
}

func TestTelegramDeliverServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"description": "Bad Request: chat not found",
		})
	}))
	defer srv.Close()

	transport := NewTelegramTransport("BOT-TOKEN", srv.URL, time.Second, zerolog.Nop())
	_, err := transport.Deliver(context.Background(), Request{ChatID: "0", Text: "hello"})

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("非 429 失败应映射为 TransportError, 实际 %v", err)
	}
	if transportErr.Status != http.StatusBadRequest {
		t.Fatalf("应携带状态码 400, 实际 %d", transportErr.Status)
	}
	if transportErr.Reason != "Bad Request: chat not found" {
		t.Fatalf("应透传 description, 实际 %q", transportErr.Reason)
	}
}

func TestTelegramDeliverOKFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "something odd"})
	}))
	defer srv.Close()

	transport := NewTelegramTransport("BOT-TOKEN", srv.URL, time.Second, zerolog.Nop())
	_, err := transport.Deliver(context.Background(), Request{ChatID: "77", Text: "hello"})

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("ok=false 应映射为 TransportError, 实际 %v", err)
	}
}
