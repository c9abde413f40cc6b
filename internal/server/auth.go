package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hyperjump/ridewise/internal/config"
)

// requireAuth accepts "Authorization: Bearer <token>" where the token equals
// the static token or is an HS256 JWT signed with the configured secret.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
			s.respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		token := strings.TrimSpace(header[7:])
		if !validToken(s.auth, token) {
			s.respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func validToken(auth config.AuthConfig, token string) bool {
	if token == "" {
		return false
	}
	if auth.Token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(auth.Token)) == 1 {
		return true
	}
	if auth.JWTSecret == "" {
		return false
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return []byte(auth.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return err == nil && parsed.Valid
}
