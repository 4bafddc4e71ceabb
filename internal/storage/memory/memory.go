// Package memory provides an in-memory store used for development and tests.
// WithTx stages nothing: it runs the callback against the live maps under the
// store lock and restores a pre-transaction snapshot on error, giving the
// same all-or-nothing semantics as the Postgres store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tinybooks/tinybooks/internal/books"
	"github.com/tinybooks/tinybooks/internal/errs"
	"github.com/tinybooks/tinybooks/internal/storage"
)

// Store is an in-memory implementation of the voucher engine's store and the
// audit recorder's store. All methods are safe for concurrent use; WithTx
// serializes writers, which matches the single-writer embedded-store model.
type Store struct {
	mu        sync.RWMutex
	vouchers  map[string]books.Voucher
	items     map[string][]books.LineItem
	products  map[string]books.Product
	codes     map[string]string // product code -> product name
	movements []books.StockMovement
	accounts  map[string]books.Account
	ledger    []books.LedgerTransaction
	auditLog  []books.AuditEntry
}

// New constructs an empty store.
func New() *Store {
	return &Store{
		vouchers: make(map[string]books.Voucher),
		items:    make(map[string][]books.LineItem),
		products: make(map[string]books.Product),
		codes:    make(map[string]string),
		accounts: make(map[string]books.Account),
	}
}

// SeedAccount inserts an account directly (dev/tests).
func (s *Store) SeedAccount(a books.Account) {
	s.mu.Lock()
	s.accounts[a.Name] = a
	s.mu.Unlock()
}

// SeedProduct inserts a product directly (dev/tests).
func (s *Store) SeedProduct(p books.Product) {
	s.mu.Lock()
	s.products[p.Name] = p
	if p.Code != "" {
		s.codes[p.Code] = p.Name
	}
	s.mu.Unlock()
}

// SeedChart creates the reserved accounts of the default chart with zero
// balances in the given currency.
func (s *Store) SeedChart(currency string) {
	zero := books.ZeroAmount(currency)
	for _, e := range books.DefaultChart {
		s.SeedAccount(books.Account{Name: e.Name, Convention: e.Convention, Balance: zero})
	}
}

// Ready reports the store as always available.
func (s *Store) Ready(_ context.Context) error { return nil }

type snapshot struct {
	vouchers  map[string]books.Voucher
	items     map[string][]books.LineItem
	products  map[string]books.Product
	codes     map[string]string
	movements []books.StockMovement
	accounts  map[string]books.Account
	ledger    []books.LedgerTransaction
}

func (s *Store) capture() snapshot {
	snap := snapshot{
		vouchers:  make(map[string]books.Voucher, len(s.vouchers)),
		items:     make(map[string][]books.LineItem, len(s.items)),
		products:  make(map[string]books.Product, len(s.products)),
		codes:     make(map[string]string, len(s.codes)),
		accounts:  make(map[string]books.Account, len(s.accounts)),
		movements: s.movements[:len(s.movements):len(s.movements)],
		ledger:    s.ledger[:len(s.ledger):len(s.ledger)],
	}
	for k, v := range s.vouchers {
		snap.vouchers[k] = v
	}
	for k, v := range s.items {
		snap.items[k] = v
	}
	for k, v := range s.products {
		snap.products[k] = v
	}
	for k, v := range s.codes {
		snap.codes[k] = v
	}
	for k, v := range s.accounts {
		snap.accounts[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.vouchers = snap.vouchers
	s.items = snap.items
	s.products = snap.products
	s.codes = snap.codes
	s.accounts = snap.accounts
	s.movements = snap.movements
	s.ledger = snap.ledger
}

// tx exposes the transactional view. It operates on the live maps; the
// enclosing WithTx restores the snapshot when fn fails.
type tx struct{ s *Store }

// WithTx runs fn atomically under the store lock.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.capture()
	if err := fn(ctx, &tx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// --- transactional writes ---

func (t *tx) InsertVoucher(_ context.Context, v books.Voucher) error {
	if _, exists := t.s.vouchers[v.Number]; exists {
		return errs.ErrConflict
	}
	v.Items = nil
	t.s.vouchers[v.Number] = v
	return nil
}

func (t *tx) InsertLineItem(_ context.Context, it books.LineItem) error {
	t.s.items[it.VoucherNumber] = append(t.s.items[it.VoucherNumber], it)
	return nil
}

func (t *tx) VoucherByNumber(_ context.Context, number string) (books.Voucher, error) {
	v, ok := t.s.vouchers[number]
	if !ok {
		return books.Voucher{}, errs.ErrNotFound
	}
	return v, nil
}

func (t *tx) ItemsByVoucher(_ context.Context, number string) ([]books.LineItem, error) {
	items := t.s.items[number]
	out := make([]books.LineItem, len(items))
	copy(out, items)
	return out, nil
}

func (t *tx) LedgerByVoucher(_ context.Context, number string) ([]books.LedgerTransaction, error) {
	var out []books.LedgerTransaction
	for _, lt := range t.s.ledger {
		if lt.VoucherNumber == number {
			out = append(out, lt)
		}
	}
	return out, nil
}

func (t *tx) UpdateVoucherStatus(_ context.Context, number string, status books.VoucherStatus) error {
	v, ok := t.s.vouchers[number]
	if !ok {
		return errs.ErrNotFound
	}
	v.Status = status
	t.s.vouchers[number] = v
	return nil
}

func (t *tx) CountVouchers(_ context.Context, kind books.VoucherKind, day time.Time) (int, error) {
	return t.s.countVouchersLocked(kind, day), nil
}

func (t *tx) ProductByName(_ context.Context, name string) (books.Product, error) {
	p, ok := t.s.products[name]
	if !ok {
		return books.Product{}, errs.ErrNotFound
	}
	return p, nil
}

func (t *tx) SaveProduct(_ context.Context, p books.Product) error {
	if owner, ok := t.s.codes[p.Code]; ok && owner != p.Name {
		return errs.ErrConflict
	}
	t.s.products[p.Name] = p
	if p.Code != "" {
		t.s.codes[p.Code] = p.Name
	}
	return nil
}

func (t *tx) InsertStockMovement(_ context.Context, m books.StockMovement) error {
	t.s.movements = append(t.s.movements, m)
	return nil
}

func (t *tx) AccountByName(_ context.Context, name string) (books.Account, error) {
	a, ok := t.s.accounts[name]
	if !ok {
		return books.Account{}, errs.ErrNotFound
	}
	return a, nil
}

func (t *tx) SaveAccount(_ context.Context, a books.Account) error {
	t.s.accounts[a.Name] = a
	return nil
}

func (t *tx) InsertLedgerTransaction(_ context.Context, lt books.LedgerTransaction) error {
	t.s.ledger = append(t.s.ledger, lt)
	return nil
}

// --- reads outside transactions ---

func (s *Store) VoucherByNumber(_ context.Context, number string) (books.Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vouchers[number]
	if !ok {
		return books.Voucher{}, errs.ErrNotFound
	}
	items := s.items[number]
	v.Items = make([]books.LineItem, len(items))
	copy(v.Items, items)
	return v, nil
}

func (s *Store) ListVouchers(_ context.Context) ([]books.Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]books.Voucher, 0, len(s.vouchers))
	for _, v := range s.vouchers {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Number > out[j].Number
	})
	return out, nil
}

func (s *Store) LedgerStatement(_ context.Context, account string, from, to time.Time) ([]books.LedgerTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]books.LedgerTransaction, 0)
	for _, lt := range s.ledger {
		if lt.Account != account {
			continue
		}
		if !from.IsZero() && lt.Date.Before(from) {
			continue
		}
		if !to.IsZero() && lt.Date.After(to) {
			continue
		}
		out = append(out, lt)
	}
	return out, nil
}

func (s *Store) ProductByName(_ context.Context, name string) (books.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[name]
	if !ok {
		return books.Product{}, errs.ErrNotFound
	}
	return p, nil
}

func (s *Store) SearchProducts(_ context.Context, query string) ([]books.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]books.Product, 0)
	for _, p := range s.products {
		if q == "" || strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Code), q) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateProduct(_ context.Context, p books.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.products[p.Name]; exists {
		return errs.ErrConflict
	}
	if owner, ok := s.codes[p.Code]; ok && owner != p.Name {
		return errs.ErrConflict
	}
	s.products[p.Name] = p
	if p.Code != "" {
		s.codes[p.Code] = p.Name
	}
	return nil
}

func (s *Store) ListAccounts(_ context.Context) ([]books.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]books.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CountVouchers(_ context.Context, kind books.VoucherKind, day time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countVouchersLocked(kind, day), nil
}

func (s *Store) countVouchersLocked(kind books.VoucherKind, day time.Time) int {
	y, m, d := day.UTC().Date()
	n := 0
	for _, v := range s.vouchers {
		vy, vm, vd := v.CreatedAt.UTC().Date()
		if v.Kind == kind && vy == y && vm == m && vd == d {
			n++
		}
	}
	return n
}

// --- movements and audit ---

// ListStockMovements returns all movements for a product in insertion order.
func (s *Store) ListStockMovements(_ context.Context, productName string) ([]books.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]books.StockMovement, 0)
	for _, m := range s.movements {
		if productName == "" || m.ProductName == productName {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) InsertAuditEntry(_ context.Context, e books.AuditEntry) error {
	s.mu.Lock()
	s.auditLog = append(s.auditLog, e)
	s.mu.Unlock()
	return nil
}

func (s *Store) ListAuditEntries(_ context.Context, limit int) ([]books.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.auditLog)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]books.AuditEntry, 0, n)
	for i := len(s.auditLog) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.auditLog[i])
	}
	return out, nil
}
