package usage

import "time"

// UsageData represents the root structure stored in persistence.
type UsageData struct {
	Version   string          `json:"version"`
	Aggregate AggregatedStats `json:"aggregate"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// UsageEvent represents a single oracle call.
type UsageEvent struct {
	Model         string
	InputTokens   int
	OutputTokens  int
	SessionID     string
	OperationType string // roll, roll_qec
}

// AggregatedStats holds counters broken down by various dimensions.
type AggregatedStats struct {
	TotalProject TokenCounts            `json:"total_project"`
	Calls        int64                  `json:"calls"`
	ByModel      map[string]TokenCounts `json:"by_model"`
	ByOperation  map[string]TokenCounts `json:"by_operation"`
	BySession    map[string]TokenCounts `json:"by_session"`
}

// TokenCounts holds input/output sums.
type TokenCounts struct {
	Input  int64 `json:"input"`
	Output int64 `json:"output"`
	Total  int64 `json:"total"`
}

func (tc *TokenCounts) Add(input, output int) {
	tc.Input += int64(input)
	tc.Output += int64(output)
	tc.Total += int64(input + output)
}
