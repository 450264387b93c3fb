package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"scan-alert-relay/internal/app"
)

var (
	simulateAlertName string
	simulateScanName  string
	simulateStocks    string
	simulatePrices    string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一条扫描告警并走完整推送管线",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateStocks == "" {
			return errors.New("--stocks 不能为空")
		}

		return getApp().SimulateAlert(cmd.Context(), app.SimulateOptions{
			AlertName:     simulateAlertName,
			ScanName:      simulateScanName,
			Stocks:        simulateStocks,
			TriggerPrices: simulatePrices,
		})
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateAlertName, "alert-name", "Simulated alert", "Alert name")
	simulateCmd.Flags().StringVar(&simulateScanName, "scan-name", "Simulated scan", "Scan name")
	simulateCmd.Flags().StringVar(&simulateStocks, "stocks", "", "Comma-delimited symbol list")
	simulateCmd.Flags().StringVar(&simulatePrices, "prices", "", "Comma-delimited trigger price list")
}
