package auth

import (
	"io"
	"net/http"
	"strings"

	"github.com/ederlyn/pairwise/internal/middleware"
)

// Middleware validates the Authorization bearer token and stores the
// authenticated user ID in the request context. Requests without a valid
// token get a 401 with the standard error envelope.
func Middleware(svc *JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeUnauthorized(w, r, "Missing bearer token")
				return
			}

			claims, err := svc.ValidateToken(token)
			if err != nil {
				msg := "Invalid token"
				if err == ErrExpiredToken {
					msg = "Token has expired"
				}
				writeUnauthorized(w, r, msg)
				return
			}
			if claims.Subject == "" {
				writeUnauthorized(w, r, "Token has no subject")
				return
			}

			ctx := middleware.SetUserID(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	ctx := middleware.SetErrorCode(r.Context(), "auth_failed")
	middleware.UpdateResponseContext(w, ctx)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = io.WriteString(w, `{"error":{"code":"auth_failed","message":"`+message+`"}}`)
}
