package server

import (
	"encoding/json"
	"net/http"
	"strings"
)

// WebhookPayload is the raw scanner request: comma-delimited symbol and
// price lists plus free-text metadata.
type WebhookPayload struct {
	Stocks        string `json:"stocks"`
	TriggerPrices string `json:"trigger_prices"`
	AlertName     string `json:"alert_name"`
	ScanName      string `json:"scan_name"`
	TriggeredAt   string `json:"triggered_at"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleWebhook(handler AlertHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload WebhookPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: "invalid JSON payload"})
			return
		}

		if len(SplitList(payload.Stocks)) == 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: "no stocks received"})
			return
		}

		status, body := handler.HandleAlert(r.Context(), payload)
		writeJSON(w, status, body)
	}
}

// SplitList splits a comma-delimited scanner list, trimming whitespace and
// dropping empty entries.
func SplitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// NormalizeSymbol applies the exchange prefix and series suffix the data
// provider expects, leaving already-qualified symbols alone.
func NormalizeSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !strings.HasPrefix(symbol, "NSE:") && !strings.HasPrefix(symbol, "BSE:") {
		symbol = "NSE:" + symbol
	}
	if !strings.HasSuffix(symbol, "-EQ") {
		symbol += "-EQ"
	}
	return symbol
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
