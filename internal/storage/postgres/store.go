package postgres

// Package postgres provides a pgx-backed storage implementation satisfying the
// contracts in the storage package.
//
// It is intentionally small and explicit. Migrations that create the expected
// schema live under db/migrations. Amounts are stored as bigint minor units in
// the store's single configured currency; quantities are numeric and travel as
// text so they round-trip through decimal exactly.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/govalues/decimal"
	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tinybooks/tinybooks/internal/books"
	"github.com/tinybooks/tinybooks/internal/errs"
	"github.com/tinybooks/tinybooks/internal/meta"
	"github.com/tinybooks/tinybooks/internal/storage"
)

// Store holds a pgx connection pool and implements storage.Store. All methods
// are safe for concurrent use.
type Store struct {
	pool     *pgxpool.Pool
	currency string
}

// Open establishes a pgx pool using the provided connection string. currency
// is the ISO code amounts are reconstructed in.
func Open(ctx context.Context, dsn, currency string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil { return nil, err }
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil { return nil, err }
	if err := pool.Ping(ctx); err != nil { pool.Close(); return nil, err }
	return &Store{pool: pool, currency: currency}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() { if s.pool != nil { s.pool.Close() } }

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// WithTx runs fn inside one repeatable-read transaction. Any error from fn
// rolls every write back. Unique-constraint violations surface as
// errs.ErrConflict so the engine can retry generated numbers.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, storage.Tx) error) error {
	pgtx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil { return err }
	defer func() { _ = pgtx.Rollback(ctx) }()
	if err := fn(ctx, &tx{tx: pgtx, currency: s.currency}); err != nil { return err }
	return pgtx.Commit(ctx)
}

// mapErr folds driver-level errors into the shared sentinels.
func mapErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { return fmt.Errorf("%v: %w", pgErr.ConstraintName, errs.ErrConflict) }
	return err
}

func (s *Store) amount(minor int64) money.Amount {
	a, _ := money.NewAmountFromMinorUnits(s.currency, minor)
	return a
}

func minorOf(a money.Amount) int64 { m, _ := a.MinorUnits(); return m }

// querier is the subset shared by the pool and an open pgx.Tx, letting reads
// run both inside and outside transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// tx implements storage.Tx over an open pgx transaction.
type tx struct {
	tx       pgx.Tx
	currency string
}

func (t *tx) amount(minor int64) money.Amount {
	a, _ := money.NewAmountFromMinorUnits(t.currency, minor)
	return a
}

// --- voucher rows ---

func (t *tx) InsertVoucher(ctx context.Context, v books.Voucher) error {
	_, err := t.tx.Exec(ctx, `
		insert into vouchers (id, number, kind, date, party, amount_minor, description, status, created_by, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, v.ID, v.Number, v.Kind, v.Date, v.Party, minorOf(v.Amount), v.Description, v.Status, v.CreatedBy, v.CreatedAt)
	return mapErr(err)
}

func (t *tx) InsertLineItem(ctx context.Context, it books.LineItem) error {
	_, err := t.tx.Exec(ctx, `
		insert into voucher_items (id, voucher_id, voucher_number, particulars, quantity, unit_price_minor, total_minor)
		values ($1,$2,$3,$4,$5,$6,$7)
	`, it.ID, it.VoucherID, it.VoucherNumber, it.Particulars, it.Quantity.String(), minorOf(it.UnitPrice), minorOf(it.Total))
	return mapErr(err)
}

func (t *tx) VoucherByNumber(ctx context.Context, number string) (books.Voucher, error) {
	return scanVoucher(ctx, t.tx, t.currency, number)
}

func (t *tx) ItemsByVoucher(ctx context.Context, number string) ([]books.LineItem, error) {
	return scanItems(ctx, t.tx, t.currency, number)
}

func (t *tx) LedgerByVoucher(ctx context.Context, number string) ([]books.LedgerTransaction, error) {
	rows, err := t.tx.Query(ctx, `
		select id, date, kind, voucher_number, account, party, particulars, debit_minor, credit_minor, balance_minor, created_by
		from ledger_transactions
		where voucher_number = $1
		order by seq asc
	`, number)
	if err != nil { return nil, err }
	defer rows.Close()
	return collectLegs(rows, t.currency)
}

func (t *tx) UpdateVoucherStatus(ctx context.Context, number string, status books.VoucherStatus) error {
	ct, err := t.tx.Exec(ctx, `update vouchers set status=$1 where number=$2`, status, number)
	if err != nil { return err }
	if ct.RowsAffected() == 0 { return errs.ErrNotFound }
	return nil
}

func (t *tx) CountVouchers(ctx context.Context, kind books.VoucherKind, day time.Time) (int, error) {
	return countVouchers(ctx, t.tx, kind, day)
}

// --- product rows ---

// ProductByName locks the row for the remainder of the transaction so a
// concurrent voucher cannot apply a delta against a stale stock level.
func (t *tx) ProductByName(ctx context.Context, name string) (books.Product, error) {
	row := t.tx.QueryRow(ctx, `
		select id, name, code, unit_price_minor, stock::text, unit, min_stock::text, metadata, created_at
		from products
		where name = $1
		for update
	`, name)
	return scanProduct(row, t.currency)
}

func (t *tx) SaveProduct(ctx context.Context, p books.Product) error {
	md, _ := p.Metadata.MarshalStableJSON()
	_, err := t.tx.Exec(ctx, `
		insert into products (id, name, code, unit_price_minor, stock, unit, min_stock, metadata, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		on conflict (name) do update
		set unit_price_minor = excluded.unit_price_minor,
		    stock = excluded.stock,
		    unit = excluded.unit,
		    min_stock = excluded.min_stock,
		    metadata = excluded.metadata
	`, p.ID, p.Name, p.Code, minorOf(p.UnitPrice), p.Stock.String(), p.Unit, p.MinStock.String(), md, p.CreatedAt)
	return mapErr(err)
}

func (t *tx) InsertStockMovement(ctx context.Context, m books.StockMovement) error {
	_, err := t.tx.Exec(ctx, `
		insert into stock_movements (id, product_name, type, quantity, unit_price_minor, total_minor, voucher_number, occurred_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
	`, m.ID, m.ProductName, m.Type, m.Quantity.String(), minorOf(m.UnitPrice), minorOf(m.Total), m.VoucherNumber, m.OccurredAt)
	return mapErr(err)
}

// --- account rows ---

// AccountByName locks the row so running balances are computed against the
// latest committed posting.
func (t *tx) AccountByName(ctx context.Context, name string) (books.Account, error) {
	var a books.Account
	var minor int64
	err := t.tx.QueryRow(ctx, `
		select id, name, convention, balance_minor from accounts where name = $1 for update
	`, name).Scan(&a.ID, &a.Name, &a.Convention, &minor)
	if errors.Is(err, pgx.ErrNoRows) { return books.Account{}, errs.ErrNotFound }
	if err != nil { return books.Account{}, err }
	a.Balance = t.amount(minor)
	return a, nil
}

func (t *tx) SaveAccount(ctx context.Context, a books.Account) error {
	_, err := t.tx.Exec(ctx, `
		insert into accounts (id, name, convention, balance_minor)
		values ($1,$2,$3,$4)
		on conflict (name) do update set balance_minor = excluded.balance_minor
	`, a.ID, a.Name, a.Convention, minorOf(a.Balance))
	return mapErr(err)
}

func (t *tx) InsertLedgerTransaction(ctx context.Context, lt books.LedgerTransaction) error {
	_, err := t.tx.Exec(ctx, `
		insert into ledger_transactions (id, date, kind, voucher_number, account, party, particulars, debit_minor, credit_minor, balance_minor, created_by)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, lt.ID, lt.Date, lt.Kind, lt.VoucherNumber, lt.Account, lt.Party, lt.Particulars, minorOf(lt.Debit), minorOf(lt.Credit), minorOf(lt.Balance), lt.CreatedBy)
	return mapErr(err)
}

// --- reads outside transactions ---

func (s *Store) VoucherByNumber(ctx context.Context, number string) (books.Voucher, error) {
	v, err := scanVoucher(ctx, s.pool, s.currency, number)
	if err != nil { return books.Voucher{}, err }
	items, err := scanItems(ctx, s.pool, s.currency, number)
	if err != nil { return books.Voucher{}, err }
	v.Items = items
	return v, nil
}

func (s *Store) ListVouchers(ctx context.Context) ([]books.Voucher, error) {
	rows, err := s.pool.Query(ctx, `
		select id, number, kind, date, party, amount_minor, description, status, created_by, created_at
		from vouchers
		order by created_at desc, number desc
	`)
	if err != nil { return nil, err }
	defer rows.Close()
	out := make([]books.Voucher, 0)
	for rows.Next() {
		v, err := scanVoucherRow(rows, s.currency)
		if err != nil { return nil, err }
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) LedgerStatement(ctx context.Context, account string, from, to time.Time) ([]books.LedgerTransaction, error) {
	rows, err := s.pool.Query(ctx, `
		select id, date, kind, voucher_number, account, party, particulars, debit_minor, credit_minor, balance_minor, created_by
		from ledger_transactions
		where account = $1
		  and ($2::timestamptz is null or date >= $2)
		  and ($3::timestamptz is null or date <= $3)
		order by seq asc
	`, account, nullableTime(from), nullableTime(to))
	if err != nil { return nil, err }
	defer rows.Close()
	return collectLegs(rows, s.currency)
}

func (s *Store) ProductByName(ctx context.Context, name string) (books.Product, error) {
	row := s.pool.QueryRow(ctx, `
		select id, name, code, unit_price_minor, stock::text, unit, min_stock::text, metadata, created_at
		from products
		where name = $1
	`, name)
	return scanProduct(row, s.currency)
}

func (s *Store) SearchProducts(ctx context.Context, query string) ([]books.Product, error) {
	rows, err := s.pool.Query(ctx, `
		select id, name, code, unit_price_minor, stock::text, unit, min_stock::text, metadata, created_at
		from products
		where $1 = '' or name ilike '%' || $1 || '%' or code ilike '%' || $1 || '%'
		order by name asc
	`, query)
	if err != nil { return nil, err }
	defer rows.Close()
	out := make([]books.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows, s.currency)
		if err != nil { return nil, err }
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) CreateProduct(ctx context.Context, p books.Product) error {
	md, _ := p.Metadata.MarshalStableJSON()
	_, err := s.pool.Exec(ctx, `
		insert into products (id, name, code, unit_price_minor, stock, unit, min_stock, metadata, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, p.ID, p.Name, p.Code, minorOf(p.UnitPrice), p.Stock.String(), p.Unit, p.MinStock.String(), md, p.CreatedAt)
	return mapErr(err)
}

func (s *Store) ListAccounts(ctx context.Context) ([]books.Account, error) {
	rows, err := s.pool.Query(ctx, `select id, name, convention, balance_minor from accounts order by name asc`)
	if err != nil { return nil, err }
	defer rows.Close()
	out := make([]books.Account, 0)
	for rows.Next() {
		var a books.Account
		var minor int64
		if err := rows.Scan(&a.ID, &a.Name, &a.Convention, &minor); err != nil { return nil, err }
		a.Balance = s.amount(minor)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ListStockMovements(ctx context.Context, productName string) ([]books.StockMovement, error) {
	rows, err := s.pool.Query(ctx, `
		select id, product_name, type, quantity::text, unit_price_minor, total_minor, voucher_number, occurred_at
		from stock_movements
		where $1 = '' or product_name = $1
		order by seq asc
	`, productName)
	if err != nil { return nil, err }
	defer rows.Close()
	out := make([]books.StockMovement, 0)
	for rows.Next() {
		var m books.StockMovement
		var qtyText string
		var priceMinor, totalMinor int64
		if err := rows.Scan(&m.ID, &m.ProductName, &m.Type, &qtyText, &priceMinor, &totalMinor, &m.VoucherNumber, &m.OccurredAt); err != nil { return nil, err }
		if m.Quantity, err = decimal.Parse(qtyText); err != nil { return nil, err }
		m.UnitPrice = s.amount(priceMinor)
		m.Total = s.amount(totalMinor)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) CountVouchers(ctx context.Context, kind books.VoucherKind, day time.Time) (int, error) {
	return countVouchers(ctx, s.pool, kind, day)
}

// --- audit rows ---

func (s *Store) InsertAuditEntry(ctx context.Context, e books.AuditEntry) error {
	oldMD, _ := e.OldValues.MarshalStableJSON()
	newMD, _ := e.NewValues.MarshalStableJSON()
	_, err := s.pool.Exec(ctx, `
		insert into audit_logs (id, actor, role, action, entity_type, entity_id, details, old_values, new_values, origin, module, at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, e.ID, e.Actor, e.Role, e.Action, e.EntityType, e.EntityID, e.Details, oldMD, newMD, e.Origin, e.Module, e.At)
	return mapErr(err)
}

func (s *Store) ListAuditEntries(ctx context.Context, limit int) ([]books.AuditEntry, error) {
	rows, err := s.pool.Query(ctx, `
		select id, actor, role, action, entity_type, entity_id, details, old_values, new_values, origin, module, at
		from audit_logs
		order by seq desc
		limit $1
	`, limit)
	if err != nil { return nil, err }
	defer rows.Close()
	out := make([]books.AuditEntry, 0)
	for rows.Next() {
		var e books.AuditEntry
		var oldMD, newMD []byte
		if err := rows.Scan(&e.ID, &e.Actor, &e.Role, &e.Action, &e.EntityType, &e.EntityID, &e.Details, &oldMD, &newMD, &e.Origin, &e.Module, &e.At); err != nil { return nil, err }
		if len(oldMD) > 0 {
			var m meta.Metadata
			if err := m.UnmarshalJSON(oldMD); err == nil { e.OldValues = m }
		}
		if len(newMD) > 0 {
			var m meta.Metadata
			if err := m.UnmarshalJSON(newMD); err == nil { e.NewValues = m }
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- shared scan helpers ---

func scanVoucher(ctx context.Context, q querier, currency, number string) (books.Voucher, error) {
	row := q.QueryRow(ctx, `
		select id, number, kind, date, party, amount_minor, description, status, created_by, created_at
		from vouchers
		where number = $1
	`, number)
	return scanVoucherRow(row, currency)
}

func scanVoucherRow(row pgx.Row, currency string) (books.Voucher, error) {
	var v books.Voucher
	var minor int64
	err := row.Scan(&v.ID, &v.Number, &v.Kind, &v.Date, &v.Party, &minor, &v.Description, &v.Status, &v.CreatedBy, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) { return books.Voucher{}, errs.ErrNotFound }
	if err != nil { return books.Voucher{}, err }
	v.Amount, _ = money.NewAmountFromMinorUnits(currency, minor)
	return v, nil
}

func scanItems(ctx context.Context, q querier, currency, number string) ([]books.LineItem, error) {
	rows, err := q.Query(ctx, `
		select id, voucher_id, voucher_number, particulars, quantity::text, unit_price_minor, total_minor
		from voucher_items
		where voucher_number = $1
		order by id asc
	`, number)
	if err != nil { return nil, err }
	defer rows.Close()
	out := make([]books.LineItem, 0)
	for rows.Next() {
		var it books.LineItem
		var qtyText string
		var priceMinor, totalMinor int64
		if err := rows.Scan(&it.ID, &it.VoucherID, &it.VoucherNumber, &it.Particulars, &qtyText, &priceMinor, &totalMinor); err != nil { return nil, err }
		if it.Quantity, err = decimal.Parse(qtyText); err != nil { return nil, err }
		it.UnitPrice, _ = money.NewAmountFromMinorUnits(currency, priceMinor)
		it.Total, _ = money.NewAmountFromMinorUnits(currency, totalMinor)
		out = append(out, it)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row, currency string) (books.Product, error) {
	var p books.Product
	var stockText, minStockText string
	var priceMinor int64
	var mdBytes []byte
	err := row.Scan(&p.ID, &p.Name, &p.Code, &priceMinor, &stockText, &p.Unit, &minStockText, &mdBytes, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) { return books.Product{}, errs.ErrNotFound }
	if err != nil { return books.Product{}, err }
	p.UnitPrice, _ = money.NewAmountFromMinorUnits(currency, priceMinor)
	if p.Stock, err = decimal.Parse(stockText); err != nil { return books.Product{}, err }
	if p.MinStock, err = decimal.Parse(minStockText); err != nil { return books.Product{}, err }
	if len(mdBytes) > 0 {
		var m meta.Metadata
		if err := m.UnmarshalJSON(mdBytes); err == nil { p.Metadata = m }
	}
	return p, nil
}

func collectLegs(rows pgx.Rows, currency string) ([]books.LedgerTransaction, error) {
	out := make([]books.LedgerTransaction, 0)
	for rows.Next() {
		var lt books.LedgerTransaction
		var debitMinor, creditMinor, balanceMinor int64
		if err := rows.Scan(&lt.ID, &lt.Date, &lt.Kind, &lt.VoucherNumber, &lt.Account, &lt.Party, &lt.Particulars, &debitMinor, &creditMinor, &balanceMinor, &lt.CreatedBy); err != nil { return nil, err }
		lt.Debit, _ = money.NewAmountFromMinorUnits(currency, debitMinor)
		lt.Credit, _ = money.NewAmountFromMinorUnits(currency, creditMinor)
		lt.Balance, _ = money.NewAmountFromMinorUnits(currency, balanceMinor)
		out = append(out, lt)
	}
	return out, rows.Err()
}

func countVouchers(ctx context.Context, q querier, kind books.VoucherKind, day time.Time) (int, error) {
	var n int
	err := q.QueryRow(ctx, `
		select count(*) from vouchers
		where kind = $1 and created_at >= $2 and created_at < $3
	`, kind, startOfDay(day), startOfDay(day).Add(24*time.Hour)).Scan(&n)
	return n, err
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func nullableTime(t time.Time) any {
	if t.IsZero() { return nil }
	return t
}
