package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"scan-alert-relay/internal/app"
)

var (
	exportSymbol    string
	exportFrom      string
	exportTo        string
	exportCSVPath   string
	exportPNGPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a symbol's stored return history as CSV and/or PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			Symbol:    exportSymbol,
			CSVPath:   exportCSVPath,
			PNGPath:   exportPNGPath,
			MaxPoints: exportMaxPoints,
		}

		from, err := parseTimeFlag(exportFrom)
		if err != nil {
			return errors.New("--from 必须为 RFC3339 时间戳")
		}
		opts.From = from

		to, err := parseTimeFlag(exportTo)
		if err != nil {
			return errors.New("--to 必须为 RFC3339 时间戳")
		}
		opts.To = to

		return getApp().Export(cmd.Context(), opts)
	},
}

func parseTimeFlag(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func init() {
	exportCmd.Flags().StringVar(&exportSymbol, "symbol", "", "Symbol to export (e.g. NSE:RELIANCE-EQ)")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Window start (RFC3339, default one month back)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "Window end (RFC3339, default now)")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "CSV output path")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "PNG output path")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Override export.max_data_points")
}
