package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinybooks/tinybooks/internal/audit"
	"github.com/tinybooks/tinybooks/internal/books"
	"github.com/tinybooks/tinybooks/internal/service/voucher"
	"github.com/tinybooks/tinybooks/internal/storage/memory"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	store.SeedChart("INR")
	price, err := money.NewAmountFromMinorUnits("INR", 50000)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	stock, err := decimal.Parse("10")
	if err != nil {
		t.Fatalf("stock: %v", err)
	}
	store.SeedProduct(books.Product{Name: "Widget", Code: "P-WID1", UnitPrice: price, Stock: stock, Unit: "pcs"})
	eng := voucher.New(store, audit.New(store, logger), logger, voucher.Config{Currency: "INR"})
	return New(eng, store, "INR", logger), store
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, actor string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != "" {
		req.Header.Set("X-Actor", actor)
		req.Header.Set("X-Actor-Role", "admin")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func salesBody(quantity string) map[string]any {
	return map[string]any{
		"kind":  "sales",
		"party": "Customer A",
		"items": []map[string]any{
			{"particulars": "Widget", "quantity": quantity, "unit_price_minor": 50000},
		},
	}
}

func TestPostVoucher_SalesFlow(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/v1/vouchers", salesBody("2"), "asha")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	created := decodeBody[voucherResponse](t, rec)
	if created.Number == "" || created.AmountMinor != 100000 || created.Status != "active" {
		t.Fatalf("unexpected voucher: %+v", created)
	}
	if len(created.Items) != 1 || created.Items[0].TotalMinor != 100000 {
		t.Fatalf("unexpected items: %+v", created.Items)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/vouchers/"+created.Number, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get voucher: %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/accounts/Sundry%20Debtors/ledger", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("statement: %d body=%s", rec.Code, rec.Body.String())
	}
	stmt := decodeBody[statementResponse](t, rec)
	if len(stmt.Items) != 1 || stmt.Items[0].DebitMinor != 100000 {
		t.Fatalf("unexpected statement: %+v", stmt)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/products/Widget", nil, "")
	p := decodeBody[productResponse](t, rec)
	if p.Stock != "8" {
		t.Fatalf("stock = %s, want 8", p.Stock)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/audit", nil, "")
	trail := decodeBody[struct {
		Items []auditEntryResponse `json:"items"`
	}](t, rec)
	if len(trail.Items) != 1 || trail.Items[0].Actor != "asha" {
		t.Fatalf("unexpected audit trail: %+v", trail.Items)
	}
}

func TestPostVoucher_RequiresActor(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Handler(), http.MethodPost, "/v1/vouchers", salesBody("1"), "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestPostVoucher_RequiresJSONContentType(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/vouchers", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("X-Actor", "asha")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", rec.Code)
	}
}

func TestPostVoucher_InvalidJSON(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/vouchers", bytes.NewReader([]byte(`{"kind":`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor", "asha")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPostVoucher_InsufficientStock(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Handler(), http.MethodPost, "/v1/vouchers", salesBody("11"), "asha")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	resp := decodeBody[errorResponse](t, rec)
	if resp.Code != "insufficient_stock" {
		t.Fatalf("code = %q, want insufficient_stock", resp.Code)
	}
}

func TestPostVoucher_DuplicateNumber(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()
	body := salesBody("1")
	body["number"] = "SL-MANUAL-1"

	if rec := doJSON(t, h, http.MethodPost, "/v1/vouchers", body, "asha"); rec.Code != http.StatusCreated {
		t.Fatalf("first insert: %d", rec.Code)
	}
	rec := doJSON(t, h, http.MethodPost, "/v1/vouchers", body, "asha")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestNextNumber(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodGet, "/v1/vouchers/next-number?kind=sales", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeBody[nextNumberResponse](t, rec)
	if resp.Kind != "sales" || resp.Number == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	if rec := doJSON(t, h, http.MethodGet, "/v1/vouchers/next-number?kind=nope", nil, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid kind: %d, want 400", rec.Code)
	}
}

func TestCancelVoucher(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/v1/vouchers", salesBody("2"), "asha")
	created := decodeBody[voucherResponse](t, rec)

	rec = doJSON(t, h, http.MethodPost, "/v1/vouchers/"+created.Number+"/cancel", nil, "asha")
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: %d body=%s", rec.Code, rec.Body.String())
	}
	cancelled := decodeBody[voucherResponse](t, rec)
	if cancelled.Status != "cancelled" {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/vouchers/"+created.Number+"/cancel", nil, "asha")
	if rec.Code != http.StatusConflict {
		t.Fatalf("second cancel: %d, want 409", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/products/Widget", nil, "")
	if p := decodeBody[productResponse](t, rec); p.Stock != "10" {
		t.Fatalf("stock after cancel = %s, want 10", p.Stock)
	}
}

func TestGetVoucher_NotFound(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Handler(), http.MethodGet, "/v1/vouchers/SL-NOPE-1", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestProducts_CreateSearchConflict(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()
	body := map[string]any{"name": "Sprocket", "unit_price_minor": 7500, "unit": "box"}

	rec := doJSON(t, h, http.MethodPost, "/v1/products", body, "asha")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d body=%s", rec.Code, rec.Body.String())
	}
	created := decodeBody[productResponse](t, rec)
	if created.Code == "" {
		t.Fatalf("expected generated code, got %+v", created)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/products?q=sprock", nil, "")
	list := decodeBody[struct {
		Items []productResponse `json:"items"`
	}](t, rec)
	if len(list.Items) != 1 || list.Items[0].Name != "Sprocket" {
		t.Fatalf("unexpected search result: %+v", list.Items)
	}

	if rec := doJSON(t, h, http.MethodPost, "/v1/products", body, "asha"); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: %d, want 409", rec.Code)
	}
}

func TestListAccounts(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Handler(), http.MethodGet, "/v1/accounts", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	list := decodeBody[struct {
		Items []accountResponse `json:"items"`
	}](t, rec)
	if len(list.Items) != len(books.DefaultChart) {
		t.Fatalf("accounts = %d, want %d", len(list.Items), len(books.DefaultChart))
	}
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()
	for _, path := range []string{"/healthz", "/readyz"} {
		if rec := doJSON(t, h, http.MethodGet, path, nil, ""); rec.Code != http.StatusOK {
			t.Fatalf("%s: %d", path, rec.Code)
		}
	}
}
