package processor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"scan-alert-relay/internal/dispatch"
	"scan-alert-relay/internal/market"
	"scan-alert-relay/internal/storage"
)

// TriggeredStock is one (symbol, trigger price) pair from a scan alert.
// TriggerPrice is kept verbatim as scanner output; it may be empty when the
// inbound price list was shorter than the symbol list.
type TriggeredStock struct {
	Symbol       string
	TriggerPrice string
}

// Alert is an immutable inbound scan alert. Stock order is input order and
// symbols are unique; TriggeredAt is an opaque scanner timestamp passed
// through unmodified.
type Alert struct {
	AlertName   string
	ScanName    string
	TriggeredAt string
	Stocks      []TriggeredStock
}

// Symbols returns the alert's symbols in input order.
func (a Alert) Symbols() []string {
	symbols := make([]string, len(a.Stocks))
	for i, stock := range a.Stocks {
		symbols[i] = stock.Symbol
	}
	return symbols
}

// Returns is the JSON shape of per-horizon percentage returns.
type Returns struct {
	OneDay   float64 `json:"one_day"`
	ThreeDay float64 `json:"three_day"`
	OneWeek  float64 `json:"one_week"`
}

// Analysis combines the trigger price with resolved returns for one symbol.
type Analysis struct {
	TriggerPrice string  `json:"trigger_price"`
	Returns      Returns `json:"returns"`
}

// Response is the structured record surfaced to the alert originator.
// Enrichment and delivery outcomes are reported independently: a failed
// dispatch still carries the full per-symbol analysis.
type Response struct {
	Success     bool                `json:"success"`
	Message     string              `json:"message"`
	AlertName   string              `json:"alert_name"`
	ScanName    string              `json:"scan_name"`
	TriggeredAt string              `json:"triggered_at"`
	Analysis    map[string]Analysis `json:"stock_analysis"`
}

// Resolver resolves per-symbol returns.
type Resolver interface {
	Resolve(ctx context.Context, symbols []string) map[string]market.ReturnStats
}

// Sender delivers a formatted notification.
type Sender interface {
	Send(ctx context.Context, req dispatch.Request) (dispatch.Ack, error)
}

// Processor orchestrates enrichment, formatting, dispatch, and response
// assembly for one alert.
type Processor struct {
	resolver  Resolver
	sender    Sender
	store     storage.AlertLogStore
	chatID    string
	parseMode string
	logger    zerolog.Logger
	now       func() time.Time
}

// New constructs a processor. store may be nil when persistence is not
// configured.
func New(resolver Resolver, sender Sender, store storage.AlertLogStore, chatID, parseMode string, logger zerolog.Logger) *Processor {
	return &Processor{
		resolver:  resolver,
		sender:    sender,
		store:     store,
		chatID:    chatID,
		parseMode: parseMode,
		logger:    logger.With().Str("component", "processor").Logger(),
		now:       time.Now,
	}
}

// Process enriches the alert, dispatches the formatted notification, and
// builds the response. Every failure path produces a well-formed response;
// nothing propagates.
func (p *Processor) Process(ctx context.Context, alert Alert) Response {
	symbols := alert.Symbols()
	returns := p.resolver.Resolve(ctx, symbols)

	analysis := make(map[string]Analysis, len(alert.Stocks))
	for _, stock := range alert.Stocks {
		price := stock.TriggerPrice
		if price == "" {
			price = "N/A"
		}
		stats := returns[stock.Symbol]
		analysis[stock.Symbol] = Analysis{
			TriggerPrice: price,
			Returns: Returns{
				OneDay:   stats.OneDay.InexactFloat64(),
				ThreeDay: stats.ThreeDay.InexactFloat64(),
				OneWeek:  stats.OneWeek.InexactFloat64(),
			},
		}
	}

	text := renderMessage(alert, analysis)

	response := Response{
		AlertName:   alert.AlertName,
		ScanName:    alert.ScanName,
		TriggeredAt: alert.TriggeredAt,
		Analysis:    analysis,
	}

	ack, err := p.sender.Send(ctx, dispatch.Request{
		ChatID:    p.chatID,
		Text:      text,
		ParseMode: p.parseMode,
	})
	if err != nil {
		p.logger.Error().Err(err).Str("scan", alert.ScanName).Int("attempts", ack.Attempts).Msg("failed to dispatch alert")
		response.Success = false
		response.Message = "Failed to send message: " + err.Error()
	} else {
		p.logger.Info().Str("scan", alert.ScanName).Int("symbols", len(symbols)).Int("attempts", ack.Attempts).Msg("alert dispatched")
		response.Success = true
		response.Message = "Webhook processed successfully"
	}

	p.persist(ctx, alert, text, response, err)
	return response
}

func (p *Processor) persist(ctx context.Context, alert Alert, text string, response Response, dispatchErr error) {
	if p.store == nil {
		return
	}

	payload, err := json.Marshal(response.Analysis)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to encode analysis for persistence")
		return
	}

	record := storage.AlertLog{
		ReceivedAt:  p.now().UTC(),
		AlertName:   alert.AlertName,
		ScanName:    alert.ScanName,
		TriggeredAt: alert.TriggeredAt,
		Symbols:     alert.Symbols(),
		Message:     text,
		Success:     response.Success,
		Analysis:    payload,
	}
	if dispatchErr != nil {
		msg := dispatchErr.Error()
		record.Error = &msg
	}

	if _, err := p.store.InsertAlertLog(ctx, record); err != nil {
		p.logger.Error().Err(err).Str("scan", alert.ScanName).Msg("failed to persist alert log")
	}
}
