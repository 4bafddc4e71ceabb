// Package posting implements double-entry bookkeeping: for each leg of a
// voucher it reads the account's last balance under the voucher transaction,
// applies the account's balance convention, appends a ledger transaction
// carrying the new running balance, and updates the account's cached balance.
// A leg set whose debits do not equal its credits is refused before any leg
// is written.
package posting

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinybooks/tinybooks/internal/books"
	"github.com/tinybooks/tinybooks/internal/errs"
)

// Tx is the slice of the voucher transaction the poster needs. AccountByName
// must lock the row for the remainder of the transaction on stores that
// support it, so a concurrent voucher cannot read a stale prior balance.
type Tx interface {
	AccountByName(ctx context.Context, name string) (books.Account, error)
	SaveAccount(ctx context.Context, a books.Account) error
	InsertLedgerTransaction(ctx context.Context, lt books.LedgerTransaction) error
}

// Poster posts balanced leg sets to the ledger.
type Poster struct {
	currency string
}

// New constructs a Poster for the given currency code.
func New(currency string) *Poster { return &Poster{currency: currency} }

// PostVoucher applies every leg of a voucher. Failure of any leg aborts the
// whole posting; the caller's transaction rollback discards the earlier legs.
func (p *Poster) PostVoucher(ctx context.Context, tx Tx, v books.Voucher, legs []books.Leg) error {
	if len(legs) == 0 {
		return nil
	}
	if !books.BalancedLegs(legs) {
		return fmt.Errorf("posting: voucher %s: %w", v.Number, errs.ErrUnbalancedLegs)
	}
	for _, leg := range legs {
		if _, err := p.Post(ctx, tx, v, leg); err != nil {
			return err
		}
	}
	return nil
}

// Post applies a single leg and returns the account's new running balance.
// Unknown accounts start at zero with their default convention.
func (p *Poster) Post(ctx context.Context, tx Tx, v books.Voucher, leg books.Leg) (money.Amount, error) {
	zero := books.ZeroAmount(p.currency)
	if leg.Account == "" {
		return zero, fmt.Errorf("posting: account name required: %w", errs.ErrInvalid)
	}
	acc, err := tx.AccountByName(ctx, leg.Account)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		acc = books.Account{
			ID:         uuid.New(),
			Name:       leg.Account,
			Convention: books.DefaultConvention(leg.Account),
			Balance:    zero,
		}
	case err != nil:
		return zero, fmt.Errorf("posting: read account %q: %w", leg.Account, err)
	}

	balance, err := nextBalance(acc, leg)
	if err != nil {
		return zero, fmt.Errorf("posting: balance of %q: %w", leg.Account, err)
	}
	acc.Balance = balance
	if err := tx.SaveAccount(ctx, acc); err != nil {
		return zero, fmt.Errorf("posting: save account %q: %w", leg.Account, err)
	}

	particulars := leg.Particulars
	if particulars == "" {
		particulars = v.Description
	}
	lt := books.LedgerTransaction{
		ID:            uuid.New(),
		Date:          v.Date,
		Kind:          v.Kind,
		VoucherNumber: v.Number,
		Account:       acc.Name,
		Party:         leg.Party,
		Particulars:   particulars,
		Debit:         leg.Debit,
		Credit:        leg.Credit,
		Balance:       balance,
		CreatedBy:     v.CreatedBy,
	}
	if err := tx.InsertLedgerTransaction(ctx, lt); err != nil {
		return zero, fmt.Errorf("posting: append leg for %q: %w", leg.Account, err)
	}
	return balance, nil
}

// nextBalance applies the convention: debit-normal accounts grow with debits,
// credit-normal accounts grow with credits.
func nextBalance(acc books.Account, leg books.Leg) (money.Amount, error) {
	var grow, shrink money.Amount
	if acc.Convention == books.ConventionCredit {
		grow, shrink = leg.Credit, leg.Debit
	} else {
		grow, shrink = leg.Debit, leg.Credit
	}
	b, err := acc.Balance.Add(grow)
	if err != nil {
		return acc.Balance, err
	}
	return b.Sub(shrink)
}
