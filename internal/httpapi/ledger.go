package httpapi

import (
	"net/http"
	"time"
)

// listAccounts handles GET /v1/accounts.
func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.eng.ListAccounts(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := struct {
		Items []accountResponse `json:"items"`
	}{Items: make([]accountResponse, 0, len(accounts))}
	for _, a := range accounts {
		out.Items = append(out.Items, toAccountResponse(a))
	}
	toJSON(w, http.StatusOK, out)
}

// ledgerStatement handles GET /v1/accounts/{name}/ledger?from=...&to=...
// Dates are RFC 3339 or plain YYYY-MM-DD; both bounds are inclusive.
func (s *Server) ledgerStatement(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	if name == "" {
		badRequest(w, "account name is required")
		return
	}
	from, err := parseDateParam(r.URL.Query().Get("from"), false)
	if err != nil {
		badRequest(w, "from: "+err.Error())
		return
	}
	to, err := parseDateParam(r.URL.Query().Get("to"), true)
	if err != nil {
		badRequest(w, "to: "+err.Error())
		return
	}
	rows, err := s.eng.LedgerStatement(r.Context(), name, from, to)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := statementResponse{Account: name, Items: make([]ledgerRowResponse, 0, len(rows))}
	for _, lt := range rows {
		out.Items = append(out.Items, toLedgerRowResponse(lt))
	}
	toJSON(w, http.StatusOK, out)
}

// parseDateParam accepts RFC 3339 timestamps or bare dates. A bare date used
// as an upper bound covers the whole day.
func parseDateParam(raw string, endOfDay bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
