package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// Show prints recent alert history.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show alert history")
	}
	if closeStore != nil {
		defer closeStore()
	}

	logs, err := store.ListRecentAlertLogs(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Received (UTC)\tScan\tAlert\tSymbols\tDispatched\tError")

	for _, record := range logs {
		errMsg := ""
		if record.Error != nil {
			errMsg = sanitizeInline(*record.Error)
		}
		dispatched := "yes"
		if !record.Success {
			dispatched = "no"
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\n",
			record.ReceivedAt.UTC().Format(time.RFC3339),
			record.ScanName,
			record.AlertName,
			strings.Join(record.Symbols, ","),
			dispatched,
			errMsg,
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	v = strings.ReplaceAll(v, "\n", " ")
	v = strings.ReplaceAll(v, "\t", " ")
	if len(v) > 120 {
		return v[:117] + "..."
	}
	return v
}
