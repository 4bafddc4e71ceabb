package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinybooks/tinybooks/internal/books"
	"github.com/tinybooks/tinybooks/internal/meta"
)

// postProduct handles POST /v1/products.
func (s *Server) postProduct(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req postProductRequest
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
	price, err := money.NewAmountFromMinorUnits(s.currency, req.UnitPriceMinor)
	if err != nil {
		badRequest(w, "unit_price_minor: "+err.Error())
		return
	}
	p := books.Product{Name: req.Name, Code: req.Code, UnitPrice: price, Unit: req.Unit}
	if req.Stock != "" {
		if p.Stock, err = decimal.Parse(req.Stock); err != nil {
			badRequest(w, "stock: "+err.Error())
			return
		}
	}
	if req.MinStock != "" {
		if p.MinStock, err = decimal.Parse(req.MinStock); err != nil {
			badRequest(w, "min_stock: "+err.Error())
			return
		}
	}
	if req.Metadata != nil {
		m := meta.New(req.Metadata)
		if err := m.Validate(); err != nil {
			badRequest(w, "metadata: "+err.Error())
			return
		}
		p.Metadata = m
	}
	created, err := s.eng.CreateProduct(r.Context(), actorFrom(r.Context()), p)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toProductResponse(created))
}

// listProducts handles GET /v1/products?q=...
func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.eng.SearchProducts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := struct {
		Items []productResponse `json:"items"`
	}{Items: make([]productResponse, 0, len(products))}
	for _, p := range products {
		out.Items = append(out.Items, toProductResponse(p))
	}
	toJSON(w, http.StatusOK, out)
}

// getProduct handles GET /v1/products/{name}.
func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	if name == "" {
		badRequest(w, "product name is required")
		return
	}
	p, err := s.eng.ProductByName(r.Context(), name)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toProductResponse(p))
}
