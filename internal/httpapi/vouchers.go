package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"

	chi "github.com/go-chi/chi/v5"

	"github.com/tinybooks/tinybooks/internal/books"
)

// postVoucher handles POST /v1/vouchers.
func (s *Server) postVoucher(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req postVoucherRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		badRequest(w, err.Error())
		return
	}
	d, err := s.toDraft(req)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	v, err := s.eng.CreateVoucher(r.Context(), actorFrom(r.Context()), d)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toVoucherResponse(v))
}

// listVouchers handles GET /v1/vouchers.
func (s *Server) listVouchers(w http.ResponseWriter, r *http.Request) {
	vouchers, err := s.eng.ListVouchers(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := listVouchersResponse{Items: make([]voucherResponse, 0, len(vouchers))}
	for _, v := range vouchers {
		out.Items = append(out.Items, toVoucherResponse(v))
	}
	toJSON(w, http.StatusOK, out)
}

// getVoucher handles GET /v1/vouchers/{number}.
func (s *Server) getVoucher(w http.ResponseWriter, r *http.Request) {
	number := pathParam(r, "number")
	if number == "" {
		badRequest(w, "voucher number is required")
		return
	}
	v, err := s.eng.GetVoucher(r.Context(), number)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toVoucherResponse(v))
}

// cancelVoucher handles POST /v1/vouchers/{number}/cancel.
func (s *Server) cancelVoucher(w http.ResponseWriter, r *http.Request) {
	number := pathParam(r, "number")
	if number == "" {
		badRequest(w, "voucher number is required")
		return
	}
	v, err := s.eng.CancelVoucher(r.Context(), actorFrom(r.Context()), number)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toVoucherResponse(v))
}

// nextNumber handles GET /v1/vouchers/next-number?kind=sales.
func (s *Server) nextNumber(w http.ResponseWriter, r *http.Request) {
	kind := books.VoucherKind(r.URL.Query().Get("kind"))
	if !kind.Valid() {
		badRequest(w, "kind is required and must be a known voucher kind")
		return
	}
	number, err := s.eng.NextNumber(r.Context(), kind)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, nextNumberResponse{Kind: string(kind), Number: number})
}

// pathParam returns the decoded URL parameter. Account and product names may
// contain spaces, which arrive percent-encoded.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
