package httpapi

import (
	"net/http"
	"strconv"
)

// auditTrail handles GET /v1/audit?limit=...
func (s *Server) auditTrail(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	entries, err := s.eng.AuditTrail(r.Context(), limit)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := struct {
		Items []auditEntryResponse `json:"items"`
	}{Items: make([]auditEntryResponse, 0, len(entries))}
	for _, e := range entries {
		out.Items = append(out.Items, toAuditEntryResponse(e))
	}
	toJSON(w, http.StatusOK, out)
}
