package httpapi

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinybooks/tinybooks/internal/books"
	"github.com/tinybooks/tinybooks/internal/service/voucher"
)

type postVoucherRequest struct {
	Kind          string            `json:"kind" validate:"required"`
	Number        string            `json:"number,omitempty"`
	Date          *time.Time        `json:"date,omitempty"`
	Party         string            `json:"party,omitempty"`
	Description   string            `json:"description,omitempty"`
	Mode          string            `json:"mode,omitempty" validate:"omitempty,oneof=cash bank"`
	AmountMinor   int64             `json:"amount_minor,omitempty" validate:"gte=0"`
	DebitAccount  string            `json:"debit_account,omitempty"`
	CreditAccount string            `json:"credit_account,omitempty"`
	Items         []postVoucherItem `json:"items,omitempty" validate:"dive"`
}

type postVoucherItem struct {
	Particulars    string `json:"particulars" validate:"required"`
	Quantity       string `json:"quantity" validate:"required"`
	UnitPriceMinor int64  `json:"unit_price_minor" validate:"gte=0"`
}

// toDraft converts the request into an engine draft, building amounts in the
// server's currency.
func (s *Server) toDraft(req postVoucherRequest) (voucher.Draft, error) {
	d := voucher.Draft{
		Kind:          books.VoucherKind(req.Kind),
		Number:        req.Number,
		Party:         req.Party,
		Description:   req.Description,
		Mode:          books.PaymentMode(req.Mode),
		DebitAccount:  req.DebitAccount,
		CreditAccount: req.CreditAccount,
	}
	if req.Date != nil {
		d.Date = *req.Date
	}
	if req.AmountMinor > 0 {
		a, err := money.NewAmountFromMinorUnits(s.currency, req.AmountMinor)
		if err != nil {
			return voucher.Draft{}, fmt.Errorf("amount_minor: %w", err)
		}
		d.Amount = a
	}
	for i, it := range req.Items {
		qty, err := decimal.Parse(it.Quantity)
		if err != nil {
			return voucher.Draft{}, fmt.Errorf("items[%d].quantity: %w", i, err)
		}
		price, err := money.NewAmountFromMinorUnits(s.currency, it.UnitPriceMinor)
		if err != nil {
			return voucher.Draft{}, fmt.Errorf("items[%d].unit_price_minor: %w", i, err)
		}
		d.Items = append(d.Items, voucher.DraftItem{Particulars: it.Particulars, Quantity: qty, UnitPrice: price})
	}
	return d, nil
}

type voucherResponse struct {
	ID          uuid.UUID      `json:"id"`
	Number      string         `json:"number"`
	Kind        string         `json:"kind"`
	Date        time.Time      `json:"date"`
	Party       string         `json:"party,omitempty"`
	AmountMinor int64          `json:"amount_minor"`
	Amount      string         `json:"amount"`
	Description string         `json:"description,omitempty"`
	Status      string         `json:"status"`
	CreatedBy   string         `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	Items       []itemResponse `json:"items,omitempty"`
}

type itemResponse struct {
	ID             uuid.UUID `json:"id"`
	Particulars    string    `json:"particulars"`
	Quantity       string    `json:"quantity"`
	UnitPriceMinor int64     `json:"unit_price_minor"`
	TotalMinor     int64     `json:"total_minor"`
	Total          string    `json:"total"`
}

func toVoucherResponse(v books.Voucher) voucherResponse {
	amountMinor, _ := v.Amount.MinorUnits()
	out := voucherResponse{
		ID:          v.ID,
		Number:      v.Number,
		Kind:        string(v.Kind),
		Date:        v.Date,
		Party:       v.Party,
		AmountMinor: amountMinor,
		Amount:      v.Amount.String(),
		Description: v.Description,
		Status:      string(v.Status),
		CreatedBy:   v.CreatedBy,
		CreatedAt:   v.CreatedAt,
	}
	for _, it := range v.Items {
		priceMinor, _ := it.UnitPrice.MinorUnits()
		totalMinor, _ := it.Total.MinorUnits()
		out.Items = append(out.Items, itemResponse{
			ID:             it.ID,
			Particulars:    it.Particulars,
			Quantity:       it.Quantity.String(),
			UnitPriceMinor: priceMinor,
			TotalMinor:     totalMinor,
			Total:          it.Total.String(),
		})
	}
	return out
}

type listVouchersResponse struct {
	Items []voucherResponse `json:"items"`
}

type nextNumberResponse struct {
	Kind   string `json:"kind"`
	Number string `json:"number"`
}

type accountResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Convention   string    `json:"convention"`
	BalanceMinor int64     `json:"balance_minor"`
	Balance      string    `json:"balance"`
}

func toAccountResponse(a books.Account) accountResponse {
	minor, _ := a.Balance.MinorUnits()
	return accountResponse{ID: a.ID, Name: a.Name, Convention: string(a.Convention), BalanceMinor: minor, Balance: a.Balance.String()}
}

type ledgerRowResponse struct {
	ID            uuid.UUID `json:"id"`
	Date          time.Time `json:"date"`
	Kind          string    `json:"kind"`
	VoucherNumber string    `json:"voucher_number"`
	Account       string    `json:"account"`
	Party         string    `json:"party,omitempty"`
	Particulars   string    `json:"particulars,omitempty"`
	DebitMinor    int64     `json:"debit_minor"`
	CreditMinor   int64     `json:"credit_minor"`
	BalanceMinor  int64     `json:"balance_minor"`
	Balance       string    `json:"balance"`
	CreatedBy     string    `json:"created_by,omitempty"`
}

func toLedgerRowResponse(lt books.LedgerTransaction) ledgerRowResponse {
	debitMinor, _ := lt.Debit.MinorUnits()
	creditMinor, _ := lt.Credit.MinorUnits()
	balanceMinor, _ := lt.Balance.MinorUnits()
	return ledgerRowResponse{
		ID:            lt.ID,
		Date:          lt.Date,
		Kind:          string(lt.Kind),
		VoucherNumber: lt.VoucherNumber,
		Account:       lt.Account,
		Party:         lt.Party,
		Particulars:   lt.Particulars,
		DebitMinor:    debitMinor,
		CreditMinor:   creditMinor,
		BalanceMinor:  balanceMinor,
		Balance:       lt.Balance.String(),
		CreatedBy:     lt.CreatedBy,
	}
}

type statementResponse struct {
	Account string              `json:"account"`
	Items   []ledgerRowResponse `json:"items"`
}

type postProductRequest struct {
	Name           string            `json:"name" validate:"required"`
	Code           string            `json:"code,omitempty"`
	UnitPriceMinor int64             `json:"unit_price_minor" validate:"gte=0"`
	Stock          string            `json:"stock,omitempty"`
	Unit           string            `json:"unit,omitempty"`
	MinStock       string            `json:"min_stock,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

type productResponse struct {
	ID             uuid.UUID         `json:"id"`
	Name           string            `json:"name"`
	Code           string            `json:"code"`
	UnitPriceMinor int64             `json:"unit_price_minor"`
	UnitPrice      string            `json:"unit_price"`
	Stock          string            `json:"stock"`
	Unit           string            `json:"unit"`
	MinStock       string            `json:"min_stock"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

func toProductResponse(p books.Product) productResponse {
	minor, _ := p.UnitPrice.MinorUnits()
	return productResponse{
		ID:             p.ID,
		Name:           p.Name,
		Code:           p.Code,
		UnitPriceMinor: minor,
		UnitPrice:      p.UnitPrice.String(),
		Stock:          p.Stock.String(),
		Unit:           p.Unit,
		MinStock:       p.MinStock.String(),
		Metadata:       p.Metadata,
		CreatedAt:      p.CreatedAt,
	}
}

type auditEntryResponse struct {
	ID         uuid.UUID         `json:"id"`
	Actor      string            `json:"actor"`
	Role       string            `json:"role,omitempty"`
	Action     string            `json:"action"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Details    string            `json:"details,omitempty"`
	OldValues  map[string]string `json:"old_values,omitempty"`
	NewValues  map[string]string `json:"new_values,omitempty"`
	Module     string            `json:"module,omitempty"`
	At         time.Time         `json:"at"`
}

func toAuditEntryResponse(e books.AuditEntry) auditEntryResponse {
	return auditEntryResponse{
		ID:         e.ID,
		Actor:      e.Actor,
		Role:       e.Role,
		Action:     string(e.Action),
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Details:    e.Details,
		OldValues:  e.OldValues,
		NewValues:  e.NewValues,
		Module:     e.Module,
		At:         e.At,
	}
}
