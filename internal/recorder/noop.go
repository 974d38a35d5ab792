package recorder

import "GoldSentinel/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSnapshot(_ *model.Snapshot) error { return nil }
func (n *NoopRecorder) RecordFetch(_ *FetchEvent) error        { return nil }
func (n *NoopRecorder) RecordQuota(_ *QuotaEvent) error        { return nil }
func (n *NoopRecorder) Close() error                           { return nil }
