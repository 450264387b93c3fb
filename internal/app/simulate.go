package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"scan-alert-relay/internal/ratelimit"
	"scan-alert-relay/internal/server"
)

// SimulateAlert 构造一条合成告警并走完整的处理管线（含真实推送）。
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if opts.Stocks == "" {
		return errors.New("--stocks is required")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	budget := ratelimit.NewBudget(a.Config.Dispatch.MaxPerSecond, a.Logger)
	replenishCtx, stopReplenisher := context.WithCancel(ctx)
	defer stopReplenisher()
	go func() {
		_ = budget.RunReplenisher(replenishCtx, time.Second)
	}()

	proc := a.newProcessor(store, budget)
	handler := &alertHandler{processor: proc, logger: a.Logger}

	payload := server.WebhookPayload{
		Stocks:        opts.Stocks,
		TriggerPrices: opts.TriggerPrices,
		AlertName:     opts.AlertName,
		ScanName:      opts.ScanName,
		TriggeredAt:   time.Now().UTC().Format(time.RFC3339),
	}

	_, response := handler.HandleAlert(ctx, payload)

	encoded, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(encoded))
	return nil
}
