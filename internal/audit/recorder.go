// Package audit appends immutable who-did-what records after business
// operations commit. Recording is best-effort: a failed append is reported on
// the returned error and the diagnostic log, and must never roll back the
// committed operation it describes.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tinybooks/tinybooks/internal/books"
	"github.com/tinybooks/tinybooks/internal/errs"
)

var recordFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "tinybooks",
	Name:      "audit_record_failures_total",
	Help:      "Audit entries that could not be persisted",
})

// Store persists audit entries.
type Store interface {
	InsertAuditEntry(ctx context.Context, e books.AuditEntry) error
}

// Recorder appends audit log entries.
type Recorder struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// New constructs a Recorder.
func New(store Store, log *slog.Logger) *Recorder {
	return &Recorder{store: store, log: log, now: time.Now}
}

// Record appends one entry. The returned error is diagnostic only; callers
// log it and carry on.
func (r *Recorder) Record(ctx context.Context, e books.AuditEntry) error {
	if e.Actor == "" || e.Action == "" || e.EntityType == "" || e.EntityID == "" {
		err := fmt.Errorf("audit: actor/action/entity required: %w", errs.ErrInvalid)
		r.fail(e, err)
		return err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.At.IsZero() {
		e.At = r.now().UTC()
	}
	if err := r.store.InsertAuditEntry(ctx, e); err != nil {
		err = fmt.Errorf("audit: append entry: %w", err)
		r.fail(e, err)
		return err
	}
	return nil
}

func (r *Recorder) fail(e books.AuditEntry, err error) {
	recordFailures.Inc()
	if r.log != nil {
		r.log.Warn("audit record dropped",
			"action", string(e.Action),
			"entity_type", e.EntityType,
			"entity_id", e.EntityID,
			"err", err,
		)
	}
}
