// Package stock applies signed quantity deltas to product stock as a side
// effect of sales and purchase vouchers. Every adjustment mutates exactly one
// product and appends exactly one stock movement, always inside the caller's
// voucher transaction so a later failure rolls both back together.
package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinybooks/tinybooks/internal/books"
	"github.com/tinybooks/tinybooks/internal/errs"
)

// Tx is the slice of the voucher transaction the adjuster needs.
type Tx interface {
	ProductByName(ctx context.Context, name string) (books.Product, error)
	SaveProduct(ctx context.Context, p books.Product) error
	InsertStockMovement(ctx context.Context, m books.StockMovement) error
}

// Adjustment describes one signed stock change tied to a voucher.
type Adjustment struct {
	ProductName   string
	Delta         decimal.Decimal
	UnitPrice     money.Amount
	VoucherNumber string
	Type          books.MovementType
	At            time.Time
}

// Adjuster mutates product stock through signed deltas.
type Adjuster struct {
	allowNegative bool
}

// New constructs an Adjuster. When allowNegative is false an adjustment that
// would drive stock below zero fails with errs.ErrInsufficientStock and
// aborts the enclosing transaction.
func New(allowNegative bool) *Adjuster {
	return &Adjuster{allowNegative: allowNegative}
}

// EnsureProduct returns the product by name, creating it from defaults when
// unknown. This is the explicit first-purchase branch: a purchase of a new
// product creates its row with zero stock before the delta applies.
func (a *Adjuster) EnsureProduct(ctx context.Context, tx Tx, name string, defaults books.Product) (books.Product, error) {
	if strings.TrimSpace(name) == "" {
		return books.Product{}, fmt.Errorf("stock: product name required: %w", errs.ErrInvalid)
	}
	p, err := tx.ProductByName(ctx, name)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return books.Product{}, fmt.Errorf("stock: lookup product %q: %w", name, err)
	}
	p = defaults
	p.ID = uuid.New()
	p.Name = name
	if p.Code == "" {
		p.Code = "P-" + strings.ToUpper(uuid.NewString()[:8])
	}
	if p.Unit == "" {
		p.Unit = "pcs"
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if err := tx.SaveProduct(ctx, p); err != nil {
		return books.Product{}, fmt.Errorf("stock: create product %q: %w", name, err)
	}
	return p, nil
}

// Adjust applies one signed delta and appends the matching movement record.
// The product is created implicitly when unknown (first-time purchases).
func (a *Adjuster) Adjust(ctx context.Context, tx Tx, adj Adjustment) (books.Product, error) {
	if adj.Delta.IsZero() {
		return books.Product{}, fmt.Errorf("stock: zero quantity delta: %w", errs.ErrInvalid)
	}
	if adj.VoucherNumber == "" {
		return books.Product{}, fmt.Errorf("stock: voucher number required: %w", errs.ErrInvalid)
	}
	p, err := a.EnsureProduct(ctx, tx, adj.ProductName, books.Product{
		UnitPrice: adj.UnitPrice,
	})
	if err != nil {
		return books.Product{}, err
	}

	newStock, err := p.Stock.Add(adj.Delta)
	if err != nil {
		return books.Product{}, fmt.Errorf("stock: apply delta: %w", err)
	}
	if newStock.IsNeg() && !a.allowNegative {
		return books.Product{}, fmt.Errorf("stock: %q has %s in stock, delta %s: %w",
			p.Name, p.Stock, adj.Delta, errs.ErrInsufficientStock)
	}
	p.Stock = newStock
	if err := tx.SaveProduct(ctx, p); err != nil {
		return books.Product{}, fmt.Errorf("stock: save product %q: %w", p.Name, err)
	}

	qty := adj.Delta.Abs()
	total, err := adj.UnitPrice.Mul(qty)
	if err != nil {
		return books.Product{}, fmt.Errorf("stock: movement total: %w", err)
	}
	at := adj.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	m := books.StockMovement{
		ID:            uuid.New(),
		ProductName:   p.Name,
		Type:          adj.Type,
		Quantity:      qty,
		UnitPrice:     adj.UnitPrice,
		Total:         total,
		VoucherNumber: adj.VoucherNumber,
		OccurredAt:    at,
	}
	if err := tx.InsertStockMovement(ctx, m); err != nil {
		return books.Product{}, fmt.Errorf("stock: record movement: %w", err)
	}
	return p, nil
}
