package dispatch

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
)

// TelegramTransport 通过 Telegram Bot API 推送消息。
type TelegramTransport struct {
	botToken string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramTransport constructs a Telegram transport.
func NewTelegramTransport(botToken, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramTransport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramTransport{
		botToken: botToken,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "telegram_transport").Logger(),
	}
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
	Parameters struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Deliver calls the sendMessage API. HTTP 429 yields *RateLimitedError so
// the dispatcher can retry; every other failure is a *TransportError.
func (t *TelegramTransport) Deliver(ctx context.Context, req Request) (Ack, error) {
	payload := map[string]string{
		"chat_id": req.ChatID,
		"text":    req.Text,
	}
	if req.ParseMode != "" {
		payload["parse_mode"] = req.ParseMode
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Ack{}, &TransportError{Reason: "marshal payload", Err: err}
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Ack{}, &TransportError{Reason: "create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return Ack{}, &TransportError{Reason: "send request", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Ack{}, &TransportError{Status: resp.StatusCode, Reason: "read response", Err: err}
	}

	var result telegramResponse
	if len(respBody) > 0 {
		// Telegram error bodies still decode; a parse failure here only
		// costs us the description.
		_ = json.Unmarshal(respBody, &result)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return Ack{}, &RateLimitedError{RetryAfter: time.Duration(result.Parameters.RetryAfter) * time.Second}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := result.Description
		if reason == "" {
			reason = strings.TrimSpace(string(respBody))
		}
		return Ack{}, &TransportError{Status: resp.StatusCode, Reason: reason}
	}

	if !result.OK {
		return Ack{}, &TransportError{Status: resp.StatusCode, Reason: "telegram 返回 ok=false: " + result.Description}
	}

	t.logger.Info().Str("chat_id", req.ChatID).Int64("message_id", result.Result.MessageID).Msg("消息已送达 (Telegram)")
	return Ack{MessageID: result.Result.MessageID}, nil
}

var _ Transport = (*TelegramTransport)(nil)
