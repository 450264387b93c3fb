package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"scan-alert-relay/internal/auth"
)

const historyPath = "/history"

var hundred = decimal.NewFromInt(100)

// FyersOptions parameterise the Fyers history client.
type FyersOptions struct {
	BaseURL   string
	AppID     string
	Timeout   time.Duration
	UserAgent string
}

// Fyers fetches daily candles from the Fyers data API and computes returns.
type Fyers struct {
	opts    FyersOptions
	tokens  auth.Source
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	now     func() time.Time
}

// NewFyers constructs a history client.
func NewFyers(opts FyersOptions, tokens auth.Source, logger zerolog.Logger) *Fyers {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.fyers.in/data"
	}

	return &Fyers{
		opts:    opts,
		tokens:  tokens,
		logger:  logger.With().Str("component", "fyers_client").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		now:     time.Now,
	}
}

type historyRequest struct {
	Symbol     string `json:"symbol"`
	Resolution string `json:"resolution"`
	DateFormat string `json:"date_format"`
	RangeFrom  string `json:"range_from"`
	RangeTo    string `json:"range_to"`
	ContFlag   string `json:"cont_flag"`
}

type historyResponse struct {
	Status  string          `json:"s"`
	Message string          `json:"message"`
	Candles [][]json.Number `json:"candles"`
}

// FetchReturns requests at least lookbackDays of daily candles for symbol
// and derives 1-day, 3-day, and 1-week percentage returns from the closes.
func (f *Fyers) FetchReturns(ctx context.Context, symbol string, lookbackDays int) (ReturnStats, error) {
	if lookbackDays < 7 {
		lookbackDays = 7
	}

	token, err := f.tokens.Token(ctx)
	if err != nil {
		return ReturnStats{}, &UpstreamError{Reason: "acquire access token", Err: err}
	}

	today := f.now()
	payload := historyRequest{
		Symbol:     symbol,
		Resolution: "D",
		DateFormat: "1",
		RangeFrom:  today.AddDate(0, 0, -lookbackDays).Format("2006-01-02"),
		RangeTo:    today.Format("2006-01-02"),
		ContFlag:   "1",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return ReturnStats{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+historyPath, bytes.NewReader(body))
	if err != nil {
		return ReturnStats{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if f.opts.AppID != "" {
		req.Header.Set("Authorization", f.opts.AppID+":"+token)
	} else {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if ua := strings.TrimSpace(f.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return ReturnStats{}, &UpstreamError{Reason: "history request failed", Err: err}
	}
	defer resp.Body.Close()

	payloadBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return ReturnStats{}, &UpstreamError{Status: resp.StatusCode, Reason: "read response body", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return ReturnStats{}, &UpstreamError{Status: resp.StatusCode, Reason: strings.TrimSpace(string(payloadBytes))}
	}

	var envelope historyResponse
	if err := json.Unmarshal(payloadBytes, &envelope); err != nil {
		return ReturnStats{}, &UpstreamError{Status: resp.StatusCode, Reason: "malformed response", Err: err}
	}

	if envelope.Status != "ok" {
		reason := envelope.Message
		if reason == "" {
			reason = fmt.Sprintf("provider status %q", envelope.Status)
		}
		return ReturnStats{}, &UpstreamError{Status: resp.StatusCode, Reason: reason}
	}

	closes, err := extractCloses(envelope.Candles)
	if err != nil {
		return ReturnStats{}, err
	}

	stats, err := computeReturns(closes)
	if err != nil {
		return ReturnStats{}, err
	}

	f.logger.Debug().Str("symbol", symbol).Int("candles", len(closes)).Msg("returns computed")
	return stats, nil
}

// extractCloses pulls the close column out of [ts, o, h, l, c, v] rows,
// oldest first.
func extractCloses(candles [][]json.Number) ([]decimal.Decimal, error) {
	closes := make([]decimal.Decimal, 0, len(candles))
	for _, candle := range candles {
		if len(candle) < 5 {
			return nil, &UpstreamError{Reason: fmt.Sprintf("candle has %d fields, want at least 5", len(candle))}
		}
		c, err := decimal.NewFromString(candle[4].String())
		if err != nil {
			return nil, &UpstreamError{Reason: "parse close price", Err: err}
		}
		closes = append(closes, c)
	}
	return closes, nil
}

// computeReturns derives the three returns from daily closes. Each horizon
// compares the latest close against the close k candles back (k = 1, 4, 7),
// falling back to the next shorter comparator when history is too short.
func computeReturns(closes []decimal.Decimal) (ReturnStats, error) {
	n := len(closes)
	if n < 2 {
		return ReturnStats{}, ErrInsufficientData
	}

	latest := closes[n-1]

	oneDayBase := closes[n-2]
	threeDayBase := oneDayBase
	if n >= 5 {
		threeDayBase = closes[n-5]
	}
	oneWeekBase := threeDayBase
	if n >= 8 {
		oneWeekBase = closes[n-8]
	}

	oneDay, err := percentReturn(latest, oneDayBase)
	if err != nil {
		return ReturnStats{}, err
	}
	threeDay, err := percentReturn(latest, threeDayBase)
	if err != nil {
		return ReturnStats{}, err
	}
	oneWeek, err := percentReturn(latest, oneWeekBase)
	if err != nil {
		return ReturnStats{}, err
	}

	return ReturnStats{OneDay: oneDay, ThreeDay: threeDay, OneWeek: oneWeek}, nil
}

func percentReturn(latest, base decimal.Decimal) (decimal.Decimal, error) {
	if base.IsZero() {
		return decimal.Decimal{}, ErrInsufficientData
	}
	return latest.Sub(base).Div(base).Mul(hundred), nil
}

var _ HistoryFetcher = (*Fyers)(nil)
