package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const ContextKeyUserID contextKey = "user_id"

// HeaderUserID names the acting user. Authentication happens upstream; the
// value is only used for attribution of created rows.
const HeaderUserID = "X-User-ID"

func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyUserID).(string)
	return v, ok && v != ""
}

// Identify copies the X-User-ID header into the request context.
func Identify() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := strings.TrimSpace(r.Header.Get(HeaderUserID)); id != "" {
				r = r.WithContext(context.WithValue(r.Context(), ContextKeyUserID, id))
			}
			next.ServeHTTP(w, r)
		})
	}
}
