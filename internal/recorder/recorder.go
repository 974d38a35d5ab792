package recorder

import (
	"time"

	"GoldSentinel/internal/model"
)

// FetchEvent is the outcome of one upstream attempt.
type FetchEvent struct {
	Series   string
	Duration time.Duration
	OK       bool
	Code     int // upstream error code, 0 when none
	Error    string
}

// QuotaEvent is a point-in-time copy of the call budget.
type QuotaEvent struct {
	Period string // "daily" or "monthly"
	Status model.QuotaStatus
}

// Recorder journals evaluations for offline analysis. Nothing is ever read
// back at runtime.
type Recorder interface {
	RecordSnapshot(snap *model.Snapshot) error
	RecordFetch(evt *FetchEvent) error
	RecordQuota(evt *QuotaEvent) error
	Close() error
}
