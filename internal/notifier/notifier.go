package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"GoldSentinel/internal/model"
)

// Sink receives every published snapshot.
type Sink interface {
	Publish(ctx context.Context, snap *model.Snapshot) error
}

// ConsoleSink writes snapshots to a writer as text or indented JSON.
type ConsoleSink struct {
	mu   sync.Mutex
	w    io.Writer
	json bool
}

// NewConsoleSink creates a sink writing to w.
func NewConsoleSink(w io.Writer, asJSON bool) *ConsoleSink {
	return &ConsoleSink{w: w, json: asJSON}
}

func (c *ConsoleSink) Publish(_ context.Context, snap *model.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.json {
		enc := json.NewEncoder(c.w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		return nil
	}
	if _, err := io.WriteString(c.w, FormatText(snap)); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Multi fans a snapshot out to several sinks. Every sink is tried; the
// first error is returned.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, snap *model.Snapshot) error {
	var first error
	for _, s := range m {
		if err := s.Publish(ctx, snap); err != nil && first == nil {
			first = err
		}
	}
	return first
}
