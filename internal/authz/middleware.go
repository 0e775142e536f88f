package authz

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// JWTMiddleware validates the bearer token minted by the auth collaborator
// and puts the business_id claim on the request context. Token issuance,
// users, and roles all live outside this service.
func JWTMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				http.Error(w, "Missing or invalid Authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "Invalid token claims", http.StatusUnauthorized)
				return
			}
			businessID, _ := claims["business_id"].(string)
			if businessID == "" {
				http.Error(w, "Token missing business context", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithBusiness(r.Context(), businessID)))
		})
	}
}
