package processor

import (
	"fmt"
	"strings"
)

// renderMessage formats one human-readable HTML notification covering every
// symbol in the alert, in input order.
func renderMessage(alert Alert, analysis map[string]Analysis) string {
	builder := strings.Builder{}
	builder.WriteString("🔔 <b>")
	builder.WriteString(escapeHTML(fallback(alert.AlertName, "N/A")))
	builder.WriteString("</b>\n")
	builder.WriteString("📊 <b>")
	builder.WriteString(escapeHTML(fallback(alert.ScanName, "Unknown Scan")))
	builder.WriteString("</b>\n\n")

	builder.WriteString("<b>Stock Analysis:</b>\n")
	for _, stock := range alert.Stocks {
		entry := analysis[stock.Symbol]
		builder.WriteString("📈 <b>")
		builder.WriteString(escapeHTML(stock.Symbol))
		builder.WriteString("</b> @ ₹")
		builder.WriteString(escapeHTML(entry.TriggerPrice))
		builder.WriteString("\n")
		builder.WriteString(fmt.Sprintf("   Returns: 1D: %+.2f%% | 3D: %+.2f%% | 1W: %+.2f%%\n\n",
			entry.Returns.OneDay, entry.Returns.ThreeDay, entry.Returns.OneWeek))
	}

	builder.WriteString("🕒 <b>Triggered At:</b> ")
	builder.WriteString(escapeHTML(fallback(alert.TriggeredAt, "N/A")))

	return builder.String()
}

func escapeHTML(text string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return replacer.Replace(text)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
