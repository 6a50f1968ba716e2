package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	authuc "example.com/storefront-checkout/app/internal/usecase/auth"
)

const sessionHeader = "X-Session-ID"

var (
	ctxSessionKey     = struct{ name string }{"session"}
	errMissingSession = errors.New("missing or invalid " + sessionHeader + " header")
)

// identityMiddleware attaches shopper claims when a bearer token is present.
// Anonymous requests pass through; a bad token is rejected.
func (a *API) identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || a.authSvc == nil {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := a.authSvc.Identify(r.Context(), authHeader)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(authuc.WithClaims(r.Context(), claims)))
	})
}

func sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := strings.TrimSpace(r.Header.Get(sessionHeader))
		if sid == "" || len(sid) > 64 {
			respondError(w, http.StatusBadRequest, errMissingSession)
			return
		}
		ctx := context.WithValue(r.Context(), ctxSessionKey, sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getSessionID(ctx context.Context) string {
	sid, _ := ctx.Value(ctxSessionKey).(string)
	return sid
}
