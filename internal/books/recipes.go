package books

import (
	"fmt"

	"github.com/govalues/money"

	"github.com/tinybooks/tinybooks/internal/errs"
)

// Leg is one side of a double-entry pair: a debit or credit to a named
// account, optionally qualified by a sub-ledger party.
type Leg struct {
	Account     string
	Party       string
	Particulars string
	Debit       money.Amount
	Credit      money.Amount
}

// RecipeInput carries everything needed to derive the ledger legs for a
// voucher. DebitAccount/CreditAccount are only consulted for journal
// vouchers; Mode only for receipts and payments.
type RecipeInput struct {
	Kind          VoucherKind
	Party         string
	Amount        money.Amount
	Mode          PaymentMode
	DebitAccount  string
	CreditAccount string
	Particulars   string
}

// Recipe maps a voucher kind to its double-entry legs. Keeping the mapping in
// one place makes the balance law checkable in one place: every returned set
// satisfies BalancedLegs by construction.
//
//	sales:          Dr Sundry Debtors/party, Cr Sales
//	stock_purchase: Dr Purchase,             Cr Sundry Creditors/party
//	receipt:        Dr Cash|Bank,            Cr Sundry Debtors/party
//	payment:        Dr Sundry Creditors/party, Cr Cash|Bank
//	journal:        Dr caller debit account, Cr caller credit account
//	estimate:       no legs
func Recipe(in RecipeInput) ([]Leg, error) {
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("recipe: unknown voucher kind %q: %w", in.Kind, errs.ErrInvalid)
	}
	if !in.Kind.PostsToLedger() {
		return nil, nil
	}
	zero := ZeroAmount(in.Amount.Curr().Code())
	pair := func(dr Leg, cr Leg) []Leg {
		dr.Debit, dr.Credit = in.Amount, zero
		cr.Debit, cr.Credit = zero, in.Amount
		dr.Particulars, cr.Particulars = in.Particulars, in.Particulars
		return []Leg{dr, cr}
	}
	switch in.Kind {
	case KindSales:
		return pair(Leg{Account: AccountSundryDebtors, Party: in.Party}, Leg{Account: AccountSales}), nil
	case KindStockPurchase:
		return pair(Leg{Account: AccountPurchase}, Leg{Account: AccountSundryCreditors, Party: in.Party}), nil
	case KindReceipt:
		return pair(Leg{Account: in.Mode.Account()}, Leg{Account: AccountSundryDebtors, Party: in.Party}), nil
	case KindPayment:
		return pair(Leg{Account: AccountSundryCreditors, Party: in.Party}, Leg{Account: in.Mode.Account()}), nil
	case KindJournal:
		if in.DebitAccount == "" || in.CreditAccount == "" {
			return nil, fmt.Errorf("recipe: journal requires debit and credit accounts: %w", errs.ErrInvalid)
		}
		if in.DebitAccount == in.CreditAccount {
			return nil, fmt.Errorf("recipe: journal accounts must differ: %w", errs.ErrInvalid)
		}
		return pair(Leg{Account: in.DebitAccount}, Leg{Account: in.CreditAccount}), nil
	}
	return nil, nil
}

// BalancedLegs reports whether the debit total equals the credit total, in
// minor units. Empty leg sets are balanced.
func BalancedLegs(legs []Leg) bool {
	var debits, credits int64
	for _, l := range legs {
		if d, ok := l.Debit.MinorUnits(); ok {
			debits += d
		}
		if c, ok := l.Credit.MinorUnits(); ok {
			credits += c
		}
	}
	return debits == credits
}

// ReversalLegs swaps the debit and credit of each leg, producing the
// balancing set posted when a voucher is cancelled.
func ReversalLegs(legs []Leg, particulars string) []Leg {
	out := make([]Leg, 0, len(legs))
	for _, l := range legs {
		out = append(out, Leg{
			Account:     l.Account,
			Party:       l.Party,
			Particulars: particulars,
			Debit:       l.Credit,
			Credit:      l.Debit,
		})
	}
	return out
}

// ZeroAmount returns the zero amount for a currency code.
func ZeroAmount(curr string) money.Amount {
	a, _ := money.NewAmountFromMinorUnits(curr, 0)
	return a
}
