package memory

import (
	"context"
	"log/slog"
	"sync"

	appoutbox "staycal/internal/app/outbox"
)

// Outbox buffers events in memory; Flush hands them to the logger, if any,
// and keeps a copy for inspection.
type Outbox struct {
	mu      sync.Mutex
	pending []appoutbox.EventRecord
	flushed []appoutbox.EventRecord
	Logger  *slog.Logger
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, record)
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, rec := range o.pending {
		if o.Logger != nil {
			o.Logger.Info("event", "name", rec.Name, "aggregate", rec.Aggregate, "id", rec.ID)
		}
	}
	o.flushed = append(o.flushed, o.pending...)
	o.pending = nil
	return nil
}

// Records returns every flushed event in order.
func (o *Outbox) Records() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]appoutbox.EventRecord(nil), o.flushed...)
}

var _ appoutbox.Outbox = (*Outbox)(nil)
