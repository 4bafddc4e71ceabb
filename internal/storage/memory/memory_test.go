package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"
	"github.com/stretchr/testify/require"

	"github.com/tinybooks/tinybooks/internal/books"
	"github.com/tinybooks/tinybooks/internal/errs"
	"github.com/tinybooks/tinybooks/internal/storage"
	"github.com/tinybooks/tinybooks/internal/storage/memory"
)

func inr(t *testing.T, minor int64) money.Amount {
	t.Helper()
	a, err := money.NewAmountFromMinorUnits("INR", minor)
	require.NoError(t, err)
	return a
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.Parse(s)
	require.NoError(t, err)
	return d
}

func voucherFixture(number string, kind books.VoucherKind, at time.Time) books.Voucher {
	return books.Voucher{
		ID:        uuid.New(),
		Number:    number,
		Kind:      kind,
		Date:      at,
		Status:    books.StatusActive,
		CreatedBy: "asha",
		CreatedAt: at,
	}
}

func TestWithTx_CommitsAllWrites(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	at := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	err := s.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.InsertVoucher(ctx, voucherFixture("SL-20240110-0001", books.KindSales, at)); err != nil {
			return err
		}
		if err := tx.SaveProduct(ctx, books.Product{Name: "Widget", Code: "P-1", Stock: dec(t, "5"), UnitPrice: inr(t, 50000)}); err != nil {
			return err
		}
		return tx.InsertStockMovement(ctx, books.StockMovement{ID: uuid.New(), ProductName: "Widget", Type: books.MovementSale, Quantity: dec(t, "5"), UnitPrice: inr(t, 50000), Total: inr(t, 250000), VoucherNumber: "SL-20240110-0001", OccurredAt: at})
	})
	require.NoError(t, err)

	v, err := s.VoucherByNumber(ctx, "SL-20240110-0001")
	require.NoError(t, err)
	require.Equal(t, books.KindSales, v.Kind)
	p, err := s.ProductByName(ctx, "Widget")
	require.NoError(t, err)
	require.Equal(t, 0, p.Stock.Cmp(dec(t, "5")))
	moves, err := s.ListStockMovements(ctx, "Widget")
	require.NoError(t, err)
	require.Len(t, moves, 1)
}

func TestWithTx_ErrorRestoresEveryTable(t *testing.T) {
	s := memory.New()
	s.SeedChart("INR")
	s.SeedProduct(books.Product{Name: "Widget", Code: "P-1", Stock: dec(t, "5"), UnitPrice: inr(t, 50000)})
	ctx := context.Background()
	at := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	boom := errors.New("late failure")

	err := s.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.InsertVoucher(ctx, voucherFixture("SL-20240110-0001", books.KindSales, at)); err != nil {
			return err
		}
		p, err := tx.ProductByName(ctx, "Widget")
		if err != nil {
			return err
		}
		p.Stock = dec(t, "3")
		if err := tx.SaveProduct(ctx, p); err != nil {
			return err
		}
		if err := tx.InsertStockMovement(ctx, books.StockMovement{ID: uuid.New(), ProductName: "Widget", Type: books.MovementSale, Quantity: dec(t, "2"), UnitPrice: inr(t, 50000), Total: inr(t, 100000), VoucherNumber: "SL-20240110-0001", OccurredAt: at}); err != nil {
			return err
		}
		acc, err := tx.AccountByName(ctx, books.AccountSales)
		if err != nil {
			return err
		}
		acc.Balance = inr(t, 100000)
		if err := tx.SaveAccount(ctx, acc); err != nil {
			return err
		}
		if err := tx.InsertLedgerTransaction(ctx, books.LedgerTransaction{ID: uuid.New(), Account: books.AccountSales, VoucherNumber: "SL-20240110-0001", Date: at, Credit: inr(t, 100000), Debit: inr(t, 0), Balance: inr(t, 100000)}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.VoucherByNumber(ctx, "SL-20240110-0001")
	require.ErrorIs(t, err, errs.ErrNotFound)
	p, err := s.ProductByName(ctx, "Widget")
	require.NoError(t, err)
	require.Equal(t, 0, p.Stock.Cmp(dec(t, "5")))
	moves, err := s.ListStockMovements(ctx, "")
	require.NoError(t, err)
	require.Empty(t, moves)
	legs, err := s.LedgerStatement(ctx, books.AccountSales, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Empty(t, legs)
	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	for _, a := range accounts {
		require.True(t, a.Balance.IsZero())
	}
}

func TestWithTx_ReadsSeeOwnWrites(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	at := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	err := s.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.InsertVoucher(ctx, voucherFixture("JV-20240110-0001", books.KindJournal, at)); err != nil {
			return err
		}
		v, err := tx.VoucherByNumber(ctx, "JV-20240110-0001")
		if err != nil {
			return err
		}
		require.Equal(t, books.KindJournal, v.Kind)
		n, err := tx.CountVouchers(ctx, books.KindJournal, at)
		if err != nil {
			return err
		}
		require.Equal(t, 1, n, "count includes the uncommitted insert")
		return nil
	})
	require.NoError(t, err)
}

func TestInsertVoucher_DuplicateNumberConflicts(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	at := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.InsertVoucher(ctx, voucherFixture("SL-20240110-0001", books.KindSales, at))
	}))
	err := s.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.InsertVoucher(ctx, voucherFixture("SL-20240110-0001", books.KindSales, at))
	})
	require.ErrorIs(t, err, errs.ErrConflict)
}

func TestCountVouchers_ScopedToKindAndDay(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	day1 := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 11, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		for _, v := range []books.Voucher{
			voucherFixture("SL-20240110-0001", books.KindSales, day1),
			voucherFixture("SL-20240110-0002", books.KindSales, day1),
			voucherFixture("PU-20240110-0001", books.KindStockPurchase, day1),
			voucherFixture("SL-20240111-0001", books.KindSales, day2),
		} {
			if err := tx.InsertVoucher(ctx, v); err != nil {
				return err
			}
		}
		return nil
	}))

	n, err := s.CountVouchers(ctx, books.KindSales, day1)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	n, err = s.CountVouchers(ctx, books.KindStockPurchase, day1)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	n, err = s.CountVouchers(ctx, books.KindSales, day2)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestSearchProducts_MatchesNameAndCode(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	s.SeedProduct(books.Product{Name: "Blue Widget", Code: "P-BW01", UnitPrice: inr(t, 50000)})
	s.SeedProduct(books.Product{Name: "Gadget", Code: "P-GA01", UnitPrice: inr(t, 5000)})

	byName, err := s.SearchProducts(ctx, "widg")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	require.Equal(t, "Blue Widget", byName[0].Name)

	byCode, err := s.SearchProducts(ctx, "p-ga")
	require.NoError(t, err)
	require.Len(t, byCode, 1)
	require.Equal(t, "Gadget", byCode[0].Name)

	all, err := s.SearchProducts(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestListAuditEntries_NewestFirstWithLimit(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	for i, id := range []string{"first", "second", "third"} {
		require.NoError(t, s.InsertAuditEntry(ctx, books.AuditEntry{
			ID:         uuid.New(),
			Actor:      "asha",
			Action:     books.ActionCreate,
			EntityType: "VOUCHER",
			EntityID:   id,
			At:         time.Date(2024, 1, 10, 9, i, 0, 0, time.UTC),
		}))
	}

	got, err := s.ListAuditEntries(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "third", got[0].EntityID)
	require.Equal(t, "second", got[1].EntityID)
}
