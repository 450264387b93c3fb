package market

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"scan-alert-relay/internal/auth"
)

func candlesFromCloses(closes ...float64) [][]any {
	candles := make([][]any, len(closes))
	for i, c := range closes {
		candles[i] = []any{1700000000 + i*86400, c, c, c, c, 1000}
	}
	return candles
}

func newTestFyers(baseURL string) *Fyers {
	return NewFyers(FyersOptions{
		BaseURL: baseURL,
		AppID:   "APP-100",
		Timeout: time.Second,
	}, auth.Static{Value: "token"}, zerolog.Nop())
}

func TestFetchReturnsComputesHorizons(t *testing.T) {
	var authHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"s":       "ok",
			"candles": candlesFromCloses(100, 102, 105, 108, 110, 112, 115, 120),
		})
	}))
	defer srv.Close()

	stats, err := newTestFyers(srv.URL).FetchReturns(context.Background(), "NSE:ABC-EQ", 30)
	if err != nil {
		t.Fatalf("成功响应不应报错: %v", err)
	}

	if got := stats.OneDay.Round(2); !got.Equal(decimal.NewFromFloat(4.35)) {
		t.Fatalf("期望 1 日回报 4.35, 实际 %s", got)
	}
	if got := stats.ThreeDay.Round(2); !got.Equal(decimal.NewFromFloat(11.11)) {
		t.Fatalf("期望 3 日回报 11.11, 实际 %s", got)
	}
	if !stats.OneWeek.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("期望 1 周回报 20, 实际 %s", stats.OneWeek)
	}

	if authHeader != "APP-100:token" {
		t.Fatalf("Authorization 头不正确: %q", authHeader)
	}
}

func TestFetchReturnsShortHistoryFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"s":       "ok",
			"candles": candlesFromCloses(100, 105, 110),
		})
	}))
	defer srv.Close()

	stats, err := newTestFyers(srv.URL).FetchReturns(context.Background(), "NSE:ABC-EQ", 30)
	if err != nil {
		t.Fatalf("3 根K线不应报错: %v", err)
	}

	if !stats.ThreeDay.Equal(stats.OneDay) {
		t.Fatalf("3 日回报应回退到 1 日口径: %s vs %s", stats.ThreeDay, stats.OneDay)
	}
	if !stats.OneWeek.Equal(stats.OneDay) {
		t.Fatalf("1 周回报应回退到 1 日口径: %s vs %s", stats.OneWeek, stats.OneDay)
	}
}

func TestFetchReturnsInsufficientData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"s":       "ok",
			"candles": candlesFromCloses(100),
		})
	}))
	defer srv.Close()

	_, err := newTestFyers(srv.URL).FetchReturns(context.Background(), "NSE:ABC-EQ", 30)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("单根K线应返回 ErrInsufficientData, 实际 %v", err)
	}
}

func TestFetchReturnsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"s": "error", "message": "invalid symbol"})
	}))
	defer srv.Close()

	_, err := newTestFyers(srv.URL).FetchReturns(context.Background(), "NSE:BAD-EQ", 30)
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("s=error 应返回 UpstreamError, 实际 %v", err)
	}
	if upstream.Reason != "invalid symbol" {
		t.Fatalf("应透传 provider message, 实际 %q", upstream.Reason)
	}
}

func TestFetchReturnsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestFyers(srv.URL).FetchReturns(context.Background(), "NSE:ABC-EQ", 30)
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("HTTP 502 应返回 UpstreamError, 实际 %v", err)
	}
	if upstream.Status != http.StatusBadGateway {
		t.Fatalf("应携带状态码 502, 实际 %d", upstream.Status)
	}
}

func TestComputeReturnsVector(t *testing.T) {
	closes := []decimal.Decimal{
		decimal.NewFromInt(100),
		decimal.NewFromInt(102),
		decimal.NewFromInt(105),
		decimal.NewFromInt(108),
		decimal.NewFromInt(110),
		decimal.NewFromInt(112),
		decimal.NewFromInt(115),
		decimal.NewFromInt(120),
	}

	stats, err := computeReturns(closes)
	if err != nil {
		t.Fatalf("computeReturns 不应报错: %v", err)
	}

	if got := stats.OneDay.Round(2).String(); got != "4.35" {
		t.Fatalf("1 日回报应为 4.35, 实际 %s", got)
	}
	if got := stats.ThreeDay.Round(2).String(); got != "11.11" {
		t.Fatalf("3 日回报应为 11.11, 实际 %s", got)
	}
	if got := stats.OneWeek.String(); got != "20" {
		t.Fatalf("1 周回报应为 20, 实际 %s", got)
	}
}

func TestComputeReturnsZeroBase(t *testing.T) {
	closes := []decimal.Decimal{decimal.Zero, decimal.NewFromInt(10)}
	if _, err := computeReturns(closes); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("零基准价应视为数据不足, 实际 %v", err)
	}
}
