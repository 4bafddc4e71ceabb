package httpapi

import (
	"context"
	"time"

	"github.com/tinybooks/tinybooks/internal/books"
	"github.com/tinybooks/tinybooks/internal/service/voucher"
)

// Engine abstracts the voucher engine operations the HTTP surface exposes.
type Engine interface {
	// CreateVoucher validates and persists a draft atomically.
	CreateVoucher(ctx context.Context, actor books.Actor, d voucher.Draft) (books.Voucher, error)
	// CancelVoucher reverses a voucher's side effects and marks it cancelled.
	CancelVoucher(ctx context.Context, actor books.Actor, number string) (books.Voucher, error)
	// CreateProduct registers a product ahead of its first purchase.
	CreateProduct(ctx context.Context, actor books.Actor, p books.Product) (books.Product, error)
	// NextNumber previews the next voucher number for a kind.
	NextNumber(ctx context.Context, kind books.VoucherKind) (string, error)

	ListVouchers(ctx context.Context) ([]books.Voucher, error)
	GetVoucher(ctx context.Context, number string) (books.Voucher, error)
	LedgerStatement(ctx context.Context, account string, from, to time.Time) ([]books.LedgerTransaction, error)
	ProductByName(ctx context.Context, name string) (books.Product, error)
	SearchProducts(ctx context.Context, query string) ([]books.Product, error)
	ListAccounts(ctx context.Context) ([]books.Account, error)
	AuditTrail(ctx context.Context, limit int) ([]books.AuditEntry, error)
}

// ReadyChecker is optionally implemented by stores to indicate readiness.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}
