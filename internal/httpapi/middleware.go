package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/tinybooks/tinybooks/internal/books"
)

type ctxKey string

const ctxKeyActor ctxKey = "actor"

// requireActor resolves the acting user from the X-Actor and X-Actor-Role
// headers and stores it in the request context. Mutating endpoints refuse
// requests without an actor so every write can be attributed in the audit
// trail.
func (s *Server) requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username := strings.TrimSpace(r.Header.Get("X-Actor"))
		if username == "" {
			writeErr(w, http.StatusUnauthorized, "X-Actor header is required", "actor_required")
			return
		}
		actor := books.Actor{Username: username, Role: strings.TrimSpace(r.Header.Get("X-Actor-Role"))}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyActor, actor)))
	})
}

func actorFrom(ctx context.Context) books.Actor {
	a, _ := ctx.Value(ctxKeyActor).(books.Actor)
	return a
}

// requireJSON ensures the request has Content-Type application/json
// (optionally with params). Writes 415 and returns false otherwise.
func requireJSON(w http.ResponseWriter, r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		writeErr(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "unsupported_media_type")
		return false
	}
	mime := strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
	if mime != "application/json" {
		writeErr(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "unsupported_media_type")
		return false
	}
	return true
}
