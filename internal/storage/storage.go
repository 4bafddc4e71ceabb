// Package storage declares the contract between the voucher engine and its
// persistent stores. Implementations live in storage/memory and
// storage/postgres.
package storage

import (
	"context"
	"time"

	"github.com/tinybooks/tinybooks/internal/books"
)

// Tx is one open atomic transaction. Reads through it observe the
// transaction's own writes; ProductByName and AccountByName lock the row for
// the remainder of the transaction on stores that support row locks, so a
// concurrent voucher cannot read a stale balance or stock level.
type Tx interface {
	InsertVoucher(ctx context.Context, v books.Voucher) error
	InsertLineItem(ctx context.Context, it books.LineItem) error
	VoucherByNumber(ctx context.Context, number string) (books.Voucher, error)
	ItemsByVoucher(ctx context.Context, number string) ([]books.LineItem, error)
	LedgerByVoucher(ctx context.Context, number string) ([]books.LedgerTransaction, error)
	UpdateVoucherStatus(ctx context.Context, number string, status books.VoucherStatus) error
	CountVouchers(ctx context.Context, kind books.VoucherKind, day time.Time) (int, error)

	ProductByName(ctx context.Context, name string) (books.Product, error)
	SaveProduct(ctx context.Context, p books.Product) error
	InsertStockMovement(ctx context.Context, m books.StockMovement) error

	AccountByName(ctx context.Context, name string) (books.Account, error)
	SaveAccount(ctx context.Context, a books.Account) error
	InsertLedgerTransaction(ctx context.Context, lt books.LedgerTransaction) error
}

// Store is the persistent ledger store. WithTx runs fn inside one atomic
// transaction: fn returning an error rolls every write back. An insert that
// violates the voucher-number or product-code unique constraint surfaces as
// errs.ErrConflict.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error

	VoucherByNumber(ctx context.Context, number string) (books.Voucher, error)
	ListVouchers(ctx context.Context) ([]books.Voucher, error)
	LedgerStatement(ctx context.Context, account string, from, to time.Time) ([]books.LedgerTransaction, error)
	ProductByName(ctx context.Context, name string) (books.Product, error)
	SearchProducts(ctx context.Context, query string) ([]books.Product, error)
	CreateProduct(ctx context.Context, p books.Product) error
	ListAccounts(ctx context.Context) ([]books.Account, error)
	ListStockMovements(ctx context.Context, productName string) ([]books.StockMovement, error)
	CountVouchers(ctx context.Context, kind books.VoucherKind, day time.Time) (int, error)

	InsertAuditEntry(ctx context.Context, e books.AuditEntry) error
	ListAuditEntries(ctx context.Context, limit int) ([]books.AuditEntry, error)
}
