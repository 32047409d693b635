package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/booking-engine/internal/identity"
)

// ActorClaims is the token body accepted by ActorJWT.
type ActorClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// ActorJWT verifies an HMAC-signed bearer token and stores the caller as an
// identity.Actor on the request context. Paths in public skip verification.
func ActorJWT(secret string, public ...string) func(http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(public))
	for _, p := range public {
		skip[p] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			if secret == "" {
				http.Error(w, "auth disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			claims := ActorClaims{}
			token, err := jwt.ParseWithClaims(strings.TrimPrefix(auth, "Bearer "), &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			role := identity.Role(claims.Role)
			// system is reserved for background jobs
			if claims.Subject == "" || !role.Valid() || role == identity.RoleSystem {
				http.Error(w, "invalid token claims", http.StatusUnauthorized)
				return
			}
			actor := identity.Actor{ID: claims.Subject, Role: role}
			next.ServeHTTP(w, r.WithContext(identity.WithActor(r.Context(), actor)))
		})
	}
}
