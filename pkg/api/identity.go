package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/jwtauth"
)

type contextKey string

// CallerIDKey holds the authenticated principal of a request
const CallerIDKey contextKey = "caller_id"

// principalClaims are checked in order for the caller identity
var principalClaims = []string{"sub", "id", "user_id"}

// CallerID returns the authenticated principal stored in ctx, or "".
func CallerID(ctx context.Context) string {
	id, _ := ctx.Value(CallerIDKey).(string)
	return id
}

// WithCallerID returns a copy of ctx carrying id as the principal.
func WithCallerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CallerIDKey, id)
}

// Identify resolves the caller from a bearer token verified with ja. Requests
// without a valid token continue anonymously; operations that need an
// identity reject them. A nil ja disables token resolution.
func Identify(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if ja == nil {
			return next
		}
		resolve := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, claims, err := jwtauth.FromContext(r.Context())
			if err != nil {
				if !errors.Is(err, jwtauth.ErrNoTokenFound) {
					slog.Debug("rejected bearer token", "path", r.URL.Path, "err", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			if id := principal(claims); id != "" {
				r = r.WithContext(WithCallerID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
		return jwtauth.Verifier(ja)(resolve)
	}
}

func principal(claims map[string]interface{}) string {
	for _, name := range principalClaims {
		switch v := claims[name].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case nil:
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}
