// Package numbering generates human-readable voucher numbers: a kind prefix,
// the current date, and a zero-padded per-day sequence counted from existing
// vouchers of that kind. Two concurrent calls may produce the same candidate;
// the store's unique constraint on voucher number is the final arbiter and
// the voucher engine retries once on conflict.
package numbering

import (
	"context"
	"fmt"
	"time"

	"github.com/tinybooks/tinybooks/internal/books"
	"github.com/tinybooks/tinybooks/internal/errs"
)

// Counter reports how many vouchers of a kind exist for a given day. It is
// satisfied both by the store (for previews) and by an open transaction (for
// generation inside the voucher transaction).
type Counter interface {
	CountVouchers(ctx context.Context, kind books.VoucherKind, day time.Time) (int, error)
}

// Service produces voucher numbers of the form PREFIX-YYYYMMDD-NNNN.
type Service struct {
	now func() time.Time
}

// New constructs a Service using the wall clock.
func New() *Service { return &Service{now: time.Now} }

// NewWithClock constructs a Service with an injected clock for tests.
func NewWithClock(now func() time.Time) *Service { return &Service{now: now} }

// Next returns the next number for the kind, e.g. "SL-20240110-0003".
func (s *Service) Next(ctx context.Context, c Counter, kind books.VoucherKind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("numbering: unknown voucher kind %q: %w", kind, errs.ErrInvalid)
	}
	day := s.now().UTC()
	n, err := c.CountVouchers(ctx, kind, day)
	if err != nil {
		return "", fmt.Errorf("numbering: count %s vouchers: %w", kind, err)
	}
	return fmt.Sprintf("%s-%s-%04d", kind.Prefix(), day.Format("20060102"), n+1), nil
}
