package books

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinybooks/tinybooks/internal/meta"
)

// VoucherKind identifies the business event a voucher records.
type VoucherKind string

const (
	// KindSales records a sale of stocked goods to a customer.
	KindSales VoucherKind = "sales"
	// KindStockPurchase records a purchase of goods into stock.
	KindStockPurchase VoucherKind = "stock_purchase"
	// KindReceipt records money received from a debtor.
	KindReceipt VoucherKind = "receipt"
	// KindPayment records money paid to a creditor.
	KindPayment VoucherKind = "payment"
	// KindJournal is a generic two-leg journal entry with caller-supplied accounts.
	KindJournal VoucherKind = "journal"
	// KindEstimate is a quotation; it never touches stock or the ledger.
	KindEstimate VoucherKind = "estimate"
)

// Valid reports whether k is one of the known voucher kinds.
func (k VoucherKind) Valid() bool {
	switch k {
	case KindSales, KindStockPurchase, KindReceipt, KindPayment, KindJournal, KindEstimate:
		return true
	}
	return false
}

// AffectsStock reports whether vouchers of this kind move product stock.
func (k VoucherKind) AffectsStock() bool {
	return k == KindSales || k == KindStockPurchase
}

// PostsToLedger reports whether vouchers of this kind produce ledger legs.
// Estimates are explicitly exempt.
func (k VoucherKind) PostsToLedger() bool {
	return k.Valid() && k != KindEstimate
}

// Prefix returns the short code used in generated voucher numbers.
func (k VoucherKind) Prefix() string {
	switch k {
	case KindSales:
		return "SL"
	case KindStockPurchase:
		return "PU"
	case KindReceipt:
		return "RC"
	case KindPayment:
		return "PY"
	case KindJournal:
		return "JV"
	case KindEstimate:
		return "ES"
	}
	return "XX"
}

// VoucherStatus is the lifecycle state of a voucher.
type VoucherStatus string

const (
	StatusActive    VoucherStatus = "active"
	StatusCancelled VoucherStatus = "cancelled"
)

// PaymentMode selects the money account for receipts and payments.
type PaymentMode string

const (
	ModeCash PaymentMode = "cash"
	ModeBank PaymentMode = "bank"
)

// Account returns the ledger account name backing the payment mode.
func (m PaymentMode) Account() string {
	if m == ModeBank {
		return AccountBank
	}
	return AccountCash
}

// MovementType marks the direction of a stock movement.
type MovementType string

const (
	MovementSale     MovementType = "SALE"
	MovementPurchase MovementType = "PURCHASE"
)

// Convention is an account's normal balance side.
type Convention string

const (
	// ConventionDebit accounts grow with debits (cash, debtors, purchases).
	ConventionDebit Convention = "Dr"
	// ConventionCredit accounts grow with credits (sales, creditors).
	ConventionCredit Convention = "Cr"
)

// AuditAction enumerates recorded audit actions.
type AuditAction string

const (
	ActionCreate AuditAction = "CREATE"
	ActionUpdate AuditAction = "UPDATE"
	ActionDelete AuditAction = "DELETE"
	ActionView   AuditAction = "VIEW"
	ActionPrint  AuditAction = "PRINT"
	ActionExport AuditAction = "EXPORT"
)

// Actor is the acting user on whose behalf an operation runs. It is threaded
// explicitly through engine and audit calls; there is no ambient current-user
// state.
type Actor struct {
	Username string
	Role     string
}

// Voucher records one business event. Created once inside a single
// transaction, never mutated except the status transition to cancelled,
// never deleted.
type Voucher struct {
	ID          uuid.UUID
	Number      string
	Kind        VoucherKind
	Date        time.Time
	Party       string
	Amount      money.Amount
	Description string
	Status      VoucherStatus
	CreatedBy   string
	CreatedAt   time.Time
	Items       []LineItem
}

// LineItem belongs to exactly one voucher. Total is fixed at insertion time
// as Quantity x UnitPrice and never recomputed.
type LineItem struct {
	ID            uuid.UUID
	VoucherID     uuid.UUID
	VoucherNumber string
	Particulars   string
	Quantity      decimal.Decimal
	UnitPrice     money.Amount
	Total         money.Amount
}

// Product is a distinct tradeable item. Stock mutates only through signed
// deltas tied to a voucher.
type Product struct {
	ID        uuid.UUID
	Name      string
	Code      string
	UnitPrice money.Amount
	Stock     decimal.Decimal
	Unit      string
	MinStock  decimal.Decimal
	Metadata  meta.Metadata `json:"metadata,omitempty"`
	CreatedAt time.Time
}

// StockMovement is one append-only record of a stock change. Quantity is
// unsigned; the sign is implied by Type.
type StockMovement struct {
	ID            uuid.UUID
	ProductName   string
	Type          MovementType
	Quantity      decimal.Decimal
	UnitPrice     money.Amount
	Total         money.Amount
	VoucherNumber string
	OccurredAt    time.Time
}

// Account is a named double-entry ledger account with a cached running
// balance. Balance always equals the convention-adjusted cumulative sum of
// all postings to the account.
type Account struct {
	ID         uuid.UUID
	Name       string
	Convention Convention
	Balance    money.Amount
}

// LedgerTransaction is one leg of a double-entry pair, carrying the account's
// running balance after the posting. Append-only.
type LedgerTransaction struct {
	ID            uuid.UUID
	Date          time.Time
	Kind          VoucherKind
	VoucherNumber string
	Account       string
	Party         string
	Particulars   string
	Debit         money.Amount
	Credit        money.Amount
	Balance       money.Amount
	CreatedBy     string
}

// AuditEntry is one immutable record of who did what. Written strictly after
// the commit it describes.
type AuditEntry struct {
	ID         uuid.UUID
	Actor      string
	Role       string
	Action     AuditAction
	EntityType string
	EntityID   string
	Details    string
	OldValues  meta.Metadata `json:"old_values,omitempty"`
	NewValues  meta.Metadata `json:"new_values,omitempty"`
	Origin     string
	Module     string
	At         time.Time
}
