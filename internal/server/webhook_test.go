package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"scan-alert-relay/internal/config"
)

type stubAlertHandler struct {
	got    WebhookPayload
	called bool
}

func (h *stubAlertHandler) HandleAlert(ctx context.Context, payload WebhookPayload) (int, any) {
	h.called = true
	h.got = payload
	return http.StatusOK, map[string]bool{"success": true}
}

func newTestServer(handler AlertHandler) *Server {
	return New(config.ServerConfig{Listen: "127.0.0.1:0"}, handler, zerolog.Nop())
}

func TestWebhookAcceptsValidPayload(t *testing.T) {
	handler := &stubAlertHandler{}
	srv := newTestServer(handler)

	body := `{"stocks":"AAA,BBB","trigger_prices":"10,20","alert_name":"a","scan_name":"s","triggered_at":"t"}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("合法请求应返回 200, 实际 %d: %s", rec.Code, rec.Body.String())
	}
	if !handler.called {
		t.Fatal("合法请求必须到达 handler")
	}
	if handler.got.Stocks != "AAA,BBB" || handler.got.ScanName != "s" {
		t.Fatalf("payload 解析不正确: %+v", handler.got)
	}
}

func TestWebhookRejectsInvalidJSON(t *testing.T) {
	handler := &stubAlertHandler{}
	srv := newTestServer(handler)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("非法 JSON 应返回 400, 实际 %d", rec.Code)
	}
	if handler.called {
		t.Fatal("非法 JSON 不得到达 handler")
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("错误响应应为 JSON: %v", err)
	}
	if resp.Status != "error" {
		t.Fatalf("错误响应 status 字段不正确: %+v", resp)
	}
}

func TestWebhookRejectsEmptyStockList(t *testing.T) {
	handler := &stubAlertHandler{}
	srv := newTestServer(handler)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"stocks":" , ,"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("空股票列表应返回 400, 实际 %d", rec.Code)
	}
	if handler.called {
		t.Fatal("空股票列表不得到达 handler")
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(&stubAlertHandler{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("健康检查应返回 200, 实际 %d", rec.Code)
	}
}

func TestSplitList(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"AAA,BBB,CCC", []string{"AAA", "BBB", "CCC"}},
		{" AAA , BBB ", []string{"AAA", "BBB"}},
		{"AAA,,BBB,", []string{"AAA", "BBB"}},
		{"", nil},
		{" , ", nil},
	}

	for _, tc := range cases {
		got := SplitList(tc.in)
		if len(got) == 0 && len(tc.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("SplitList(%q) = %v, 期望 %v", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeSymbol(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"reliance", "NSE:RELIANCE-EQ"},
		{"  tcs ", "NSE:TCS-EQ"},
		{"NSE:INFY-EQ", "NSE:INFY-EQ"},
		{"NSE:INFY", "NSE:INFY-EQ"},
		{"BSE:SENSEXSTK", "BSE:SENSEXSTK-EQ"},
	}

	for _, tc := range cases {
		if got := NormalizeSymbol(tc.in); got != tc.want {
			t.Fatalf("NormalizeSymbol(%q) = %q, 期望 %q", tc.in, got, tc.want)
		}
	}
}
