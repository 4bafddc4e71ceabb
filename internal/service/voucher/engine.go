// Package voucher orchestrates voucher creation: validation, one atomic
// store transaction covering the voucher row, its line items, stock
// adjustments and ledger postings, then best-effort audit recording after
// commit. A failed step rolls the whole transaction back; callers never
// observe a partially applied voucher.
package voucher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinybooks/tinybooks/internal/audit"
	"github.com/tinybooks/tinybooks/internal/books"
	"github.com/tinybooks/tinybooks/internal/errs"
	"github.com/tinybooks/tinybooks/internal/meta"
	"github.com/tinybooks/tinybooks/internal/service/numbering"
	"github.com/tinybooks/tinybooks/internal/service/posting"
	"github.com/tinybooks/tinybooks/internal/service/stock"
	"github.com/tinybooks/tinybooks/internal/storage"
)

// Tx and Store are the storage contracts the engine drives; see the storage
// package for their semantics.
type (
	Tx    = storage.Tx
	Store = storage.Store
)

// Config carries engine settings.
type Config struct {
	// Currency is the ISO code all amounts are kept in.
	Currency string
	// AllowNegativeStock permits sales to overdraw stock instead of failing.
	AllowNegativeStock bool
}

// Engine is the voucher posting orchestrator and the read surface exposed to
// the UI/report layer.
type Engine struct {
	store     Store
	numbering *numbering.Service
	adjuster  *stock.Adjuster
	poster    *posting.Poster
	audit     *audit.Recorder
	currency  string
	log       *slog.Logger
	now       func() time.Time
}

// New constructs an Engine over the store.
func New(store Store, recorder *audit.Recorder, log *slog.Logger, cfg Config) *Engine {
	currency := cfg.Currency
	if currency == "" {
		currency = "INR"
	}
	return &Engine{
		store:     store,
		numbering: numbering.New(),
		adjuster:  stock.New(cfg.AllowNegativeStock),
		poster:    posting.New(currency),
		audit:     recorder,
		currency:  currency,
		log:       log,
		now:       time.Now,
	}
}

// Draft is a proposed voucher as built by the caller.
type Draft struct {
	Kind          books.VoucherKind
	Number        string // generated when empty
	Date          time.Time
	Party         string
	Description   string
	Mode          books.PaymentMode // receipts and payments
	Amount        money.Amount      // required when Items is empty
	DebitAccount  string            // journal vouchers
	CreditAccount string            // journal vouchers
	Items         []DraftItem
}

// DraftItem is one proposed line item.
type DraftItem struct {
	Particulars string
	Quantity    decimal.Decimal
	UnitPrice   money.Amount
}

// CreateVoucher validates the draft, persists it atomically with its stock
// and ledger side effects, and records an audit entry after commit. A
// duplicate generated number is retried once with a fresh number; a
// caller-supplied duplicate surfaces as errs.ErrConflict.
func (e *Engine) CreateVoucher(ctx context.Context, actor books.Actor, d Draft) (books.Voucher, error) {
	if err := e.validateDraft(actor, &d); err != nil {
		return books.Voucher{}, err
	}
	generated := d.Number == ""

	var created books.Voucher
	attempt := func() error {
		return e.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
			number := d.Number
			if generated {
				var err error
				if number, err = e.numbering.Next(ctx, tx, d.Kind); err != nil {
					return err
				}
			}
			v, items, err := e.buildVoucher(actor, d, number)
			if err != nil {
				return err
			}
			if err := tx.InsertVoucher(ctx, v); err != nil {
				return fmt.Errorf("insert voucher %s: %w", number, err)
			}
			for _, it := range items {
				if err := tx.InsertLineItem(ctx, it); err != nil {
					return fmt.Errorf("insert item %q of %s: %w", it.Particulars, number, err)
				}
			}
			if d.Kind.AffectsStock() {
				if err := e.adjustStock(ctx, tx, v, items); err != nil {
					return err
				}
			}
			if d.Kind.PostsToLedger() {
				legs, err := books.Recipe(books.RecipeInput{
					Kind:          d.Kind,
					Party:         d.Party,
					Amount:        v.Amount,
					Mode:          d.Mode,
					DebitAccount:  d.DebitAccount,
					CreditAccount: d.CreditAccount,
					Particulars:   d.Description,
				})
				if err != nil {
					return err
				}
				if err := e.poster.PostVoucher(ctx, tx, v, legs); err != nil {
					return err
				}
			}
			created = v
			created.Items = items
			return nil
		})
	}

	err := attempt()
	if err != nil && generated && errors.Is(err, errs.ErrConflict) {
		numberRetries.Inc()
		e.log.Warn("voucher number collision, regenerating", "kind", string(d.Kind))
		err = attempt()
	}
	if err != nil {
		return books.Voucher{}, err
	}

	vouchersCreated.WithLabelValues(string(d.Kind)).Inc()
	e.recordAudit(ctx, actor, books.AuditEntry{
		Action:     books.ActionCreate,
		EntityType: "VOUCHER",
		EntityID:   created.Number,
		Details:    fmt.Sprintf("%s voucher %s", created.Kind, created.Number),
		NewValues:  voucherSnapshot(created),
		Module:     "vouchers",
	})
	return created, nil
}

// CancelVoucher transitions an active voucher to cancelled, reversing its
// stock movements and ledger legs in one transaction. Vouchers are never
// physically deleted.
func (e *Engine) CancelVoucher(ctx context.Context, actor books.Actor, number string) (books.Voucher, error) {
	if actor.Username == "" {
		return books.Voucher{}, fmt.Errorf("acting user required: %w", errs.ErrInvalid)
	}
	if number == "" {
		return books.Voucher{}, fmt.Errorf("voucher number required: %w", errs.ErrInvalid)
	}
	var cancelled books.Voucher
	err := e.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		v, err := tx.VoucherByNumber(ctx, number)
		if err != nil {
			return err
		}
		if v.Status == books.StatusCancelled {
			return fmt.Errorf("voucher %s already cancelled: %w", number, errs.ErrCancelled)
		}
		if v.Kind.AffectsStock() {
			items, err := tx.ItemsByVoucher(ctx, number)
			if err != nil {
				return err
			}
			if err := e.reverseStock(ctx, tx, v, items); err != nil {
				return err
			}
		}
		if v.Kind.PostsToLedger() {
			orig, err := tx.LedgerByVoucher(ctx, number)
			if err != nil {
				return err
			}
			legs := make([]books.Leg, 0, len(orig))
			for _, lt := range orig {
				legs = append(legs, books.Leg{Account: lt.Account, Party: lt.Party, Debit: lt.Debit, Credit: lt.Credit})
			}
			rv := v
			rv.Date = e.now().UTC()
			rv.CreatedBy = actor.Username
			if err := e.poster.PostVoucher(ctx, tx, rv, books.ReversalLegs(legs, "cancellation of "+number)); err != nil {
				return err
			}
		}
		if err := tx.UpdateVoucherStatus(ctx, number, books.StatusCancelled); err != nil {
			return err
		}
		v.Status = books.StatusCancelled
		cancelled = v
		return nil
	})
	if err != nil {
		return books.Voucher{}, err
	}

	vouchersCancelled.Inc()
	e.recordAudit(ctx, actor, books.AuditEntry{
		Action:     books.ActionUpdate,
		EntityType: "VOUCHER",
		EntityID:   number,
		Details:    "voucher cancelled",
		OldValues:  meta.New(map[string]string{"status": string(books.StatusActive)}),
		NewValues:  meta.New(map[string]string{"status": string(books.StatusCancelled)}),
		Module:     "vouchers",
	})
	return cancelled, nil
}

// CreateProduct registers a product explicitly (product management), as
// opposed to the implicit creation on first purchase.
func (e *Engine) CreateProduct(ctx context.Context, actor books.Actor, p books.Product) (books.Product, error) {
	if actor.Username == "" {
		return books.Product{}, fmt.Errorf("acting user required: %w", errs.ErrInvalid)
	}
	if strings.TrimSpace(p.Name) == "" {
		return books.Product{}, fmt.Errorf("product name required: %w", errs.ErrInvalid)
	}
	if p.UnitPrice.IsNeg() || p.Stock.IsNeg() || p.MinStock.IsNeg() {
		return books.Product{}, fmt.Errorf("product price and stock must be non-negative: %w", errs.ErrUnprocessable)
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Code == "" {
		p.Code = "P-" + strings.ToUpper(uuid.NewString()[:8])
	}
	if p.Unit == "" {
		p.Unit = "pcs"
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = e.now().UTC()
	}
	if err := e.store.CreateProduct(ctx, p); err != nil {
		return books.Product{}, err
	}
	e.recordAudit(ctx, actor, books.AuditEntry{
		Action:     books.ActionCreate,
		EntityType: "PRODUCT",
		EntityID:   p.Name,
		Details:    fmt.Sprintf("product %s (%s)", p.Name, p.Code),
		Module:     "products",
	})
	return p, nil
}

// NextNumber previews the next voucher number for a kind. The number is only
// reserved once a voucher is committed with it.
func (e *Engine) NextNumber(ctx context.Context, kind books.VoucherKind) (string, error) {
	return e.numbering.Next(ctx, e.store, kind)
}

// ListVouchers returns all vouchers, newest first.
func (e *Engine) ListVouchers(ctx context.Context) ([]books.Voucher, error) {
	return e.store.ListVouchers(ctx)
}

// GetVoucher returns one voucher with its line items.
func (e *Engine) GetVoucher(ctx context.Context, number string) (books.Voucher, error) {
	return e.store.VoucherByNumber(ctx, number)
}

// LedgerStatement returns an account's postings between from and to,
// inclusive, in posting order.
func (e *Engine) LedgerStatement(ctx context.Context, account string, from, to time.Time) ([]books.LedgerTransaction, error) {
	if account == "" {
		return nil, fmt.Errorf("account name required: %w", errs.ErrInvalid)
	}
	return e.store.LedgerStatement(ctx, account, from, to)
}

// ProductByName returns one product.
func (e *Engine) ProductByName(ctx context.Context, name string) (books.Product, error) {
	return e.store.ProductByName(ctx, name)
}

// SearchProducts returns products whose name or code contains query.
func (e *Engine) SearchProducts(ctx context.Context, query string) ([]books.Product, error) {
	return e.store.SearchProducts(ctx, query)
}

// ListAccounts returns all ledger accounts with their cached balances.
func (e *Engine) ListAccounts(ctx context.Context) ([]books.Account, error) {
	return e.store.ListAccounts(ctx)
}

// AuditTrail returns the most recent audit entries.
func (e *Engine) AuditTrail(ctx context.Context, limit int) ([]books.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	return e.store.ListAuditEntries(ctx, limit)
}

// --- internals ---

func (e *Engine) validateDraft(actor books.Actor, d *Draft) error {
	if actor.Username == "" {
		return fmt.Errorf("acting user required: %w", errs.ErrInvalid)
	}
	if !d.Kind.Valid() {
		return fmt.Errorf("unknown voucher kind %q: %w", d.Kind, errs.ErrInvalid)
	}
	if d.Date.IsZero() {
		d.Date = e.now().UTC()
	}
	switch d.Kind {
	case books.KindSales, books.KindStockPurchase, books.KindReceipt, books.KindPayment:
		if strings.TrimSpace(d.Party) == "" {
			return fmt.Errorf("%s voucher requires a party: %w", d.Kind, errs.ErrInvalid)
		}
	}
	if d.Kind == books.KindReceipt || d.Kind == books.KindPayment {
		if d.Mode == "" {
			d.Mode = books.ModeCash
		}
		if d.Mode != books.ModeCash && d.Mode != books.ModeBank {
			return fmt.Errorf("unknown payment mode %q: %w", d.Mode, errs.ErrInvalid)
		}
	}
	if d.Kind.AffectsStock() && len(d.Items) == 0 {
		return fmt.Errorf("%s voucher requires line items: %w", d.Kind, errs.ErrInvalid)
	}
	for i := range d.Items {
		it := &d.Items[i]
		if strings.TrimSpace(it.Particulars) == "" {
			return fmt.Errorf("item %d: particulars required: %w", i, errs.ErrInvalid)
		}
		if it.Quantity.Sign() <= 0 {
			return fmt.Errorf("item %d: quantity must be positive: %w", i, errs.ErrUnprocessable)
		}
		if it.UnitPrice.IsNeg() {
			return fmt.Errorf("item %d: unit price must be non-negative: %w", i, errs.ErrUnprocessable)
		}
		if it.UnitPrice.Curr().Code() != e.currency {
			return fmt.Errorf("item %d: currency %s, want %s: %w", i, it.UnitPrice.Curr().Code(), e.currency, errs.ErrUnprocessable)
		}
	}
	if len(d.Items) == 0 {
		if d.Amount.IsZero() || d.Amount.IsNeg() {
			return fmt.Errorf("voucher amount must be positive: %w", errs.ErrUnprocessable)
		}
		if d.Amount.Curr().Code() != e.currency {
			return fmt.Errorf("voucher currency %s, want %s: %w", d.Amount.Curr().Code(), e.currency, errs.ErrUnprocessable)
		}
	}
	return nil
}

// buildVoucher freezes the draft into rows: item totals are computed once
// here and never recomputed later, and the voucher amount is the sum of them
// (or the declared amount when there are no items).
func (e *Engine) buildVoucher(actor books.Actor, d Draft, number string) (books.Voucher, []books.LineItem, error) {
	id := uuid.New()
	amount := books.ZeroAmount(e.currency)
	items := make([]books.LineItem, 0, len(d.Items))
	for _, it := range d.Items {
		total, err := it.UnitPrice.Mul(it.Quantity)
		if err != nil {
			return books.Voucher{}, nil, fmt.Errorf("item %q total: %w", it.Particulars, err)
		}
		if amount, err = amount.Add(total); err != nil {
			return books.Voucher{}, nil, fmt.Errorf("voucher amount: %w", err)
		}
		items = append(items, books.LineItem{
			ID:            uuid.New(),
			VoucherID:     id,
			VoucherNumber: number,
			Particulars:   it.Particulars,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			Total:         total,
		})
	}
	if len(items) == 0 {
		amount = d.Amount
	} else if !d.Amount.IsZero() {
		declared, _ := d.Amount.MinorUnits()
		computed, _ := amount.MinorUnits()
		if declared != computed {
			return books.Voucher{}, nil, fmt.Errorf("declared amount %s does not match line items %s: %w",
				d.Amount, amount, errs.ErrUnprocessable)
		}
	}
	v := books.Voucher{
		ID:          id,
		Number:      number,
		Kind:        d.Kind,
		Date:        d.Date,
		Party:       d.Party,
		Amount:      amount,
		Description: d.Description,
		Status:      books.StatusActive,
		CreatedBy:   actor.Username,
		CreatedAt:   e.now().UTC(),
	}
	return v, items, nil
}

func (e *Engine) adjustStock(ctx context.Context, tx Tx, v books.Voucher, items []books.LineItem) error {
	for _, it := range items {
		delta := it.Quantity
		typ := books.MovementPurchase
		if v.Kind == books.KindSales {
			delta = delta.Neg()
			typ = books.MovementSale
		}
		if _, err := e.adjuster.Adjust(ctx, tx, stock.Adjustment{
			ProductName:   it.Particulars,
			Delta:         delta,
			UnitPrice:     it.UnitPrice,
			VoucherNumber: v.Number,
			Type:          typ,
			At:            v.CreatedAt,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) reverseStock(ctx context.Context, tx Tx, v books.Voucher, items []books.LineItem) error {
	for _, it := range items {
		delta := it.Quantity
		typ := books.MovementPurchase
		if v.Kind == books.KindStockPurchase {
			delta = delta.Neg()
			typ = books.MovementSale
		}
		if _, err := e.adjuster.Adjust(ctx, tx, stock.Adjustment{
			ProductName:   it.Particulars,
			Delta:         delta,
			UnitPrice:     it.UnitPrice,
			VoucherNumber: v.Number,
			Type:          typ,
			At:            e.now().UTC(),
		}); err != nil {
			return err
		}
	}
	return nil
}

// recordAudit runs after a successful commit; a failure here is diagnostic
// only and never reverses the committed transaction.
func (e *Engine) recordAudit(ctx context.Context, actor books.Actor, entry books.AuditEntry) {
	entry.Actor = actor.Username
	entry.Role = actor.Role
	if err := e.audit.Record(ctx, entry); err != nil {
		e.log.Warn("audit entry not recorded", "entity", entry.EntityID, "err", err)
	}
}

func voucherSnapshot(v books.Voucher) meta.Metadata {
	m := meta.New(nil)
	m.Set("number", v.Number)
	m.Set("kind", string(v.Kind))
	m.Set("party", v.Party)
	m.Set("amount", v.Amount.String())
	m.Set("status", string(v.Status))
	return m
}
