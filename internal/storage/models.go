package storage

import (
	"encoding/json"
	"time"
)

// AlertLog captures one processed scan alert and its dispatch outcome.
type AlertLog struct {
	ID          int64
	ReceivedAt  time.Time
	AlertName   string
	ScanName    string
	TriggeredAt string
	Symbols     []string
	Message     string
	Success     bool
	Error       *string
	Analysis    json.RawMessage
	CreatedAt   time.Time
}

// SymbolReturnPoint is one historical observation of a symbol's returns,
// extracted from the stored analysis payloads.
type SymbolReturnPoint struct {
	At       time.Time
	OneDay   float64
	ThreeDay float64
	OneWeek  float64
}
