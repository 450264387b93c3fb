package app

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"scan-alert-relay/internal/processor"
	"scan-alert-relay/internal/server"
)

// alertHandler adapts the raw webhook payload into an Alert and runs it
// through the processor.
type alertHandler struct {
	processor *processor.Processor
	logger    zerolog.Logger
}

// HandleAlert builds the Alert value from the scanner's parallel
// comma-delimited lists. Symbols keep input order; duplicates keep their
// first occurrence; a short price list leaves the tail without trigger
// prices.
func (h *alertHandler) HandleAlert(ctx context.Context, payload server.WebhookPayload) (int, any) {
	symbols := server.SplitList(payload.Stocks)
	prices := server.SplitList(payload.TriggerPrices)

	seen := make(map[string]struct{}, len(symbols))
	stocks := make([]processor.TriggeredStock, 0, len(symbols))
	for i, raw := range symbols {
		symbol := server.NormalizeSymbol(raw)
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}

		stock := processor.TriggeredStock{Symbol: symbol}
		if i < len(prices) {
			stock.TriggerPrice = prices[i]
		}
		stocks = append(stocks, stock)
	}

	alert := processor.Alert{
		AlertName:   payload.AlertName,
		ScanName:    payload.ScanName,
		TriggeredAt: payload.TriggeredAt,
		Stocks:      stocks,
	}

	h.logger.Info().Str("scan", alert.ScanName).Int("symbols", len(stocks)).Msg("alert received")
	return http.StatusOK, h.processor.Process(ctx, alert)
}

var _ server.AlertHandler = (*alertHandler)(nil)
