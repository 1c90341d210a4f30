package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// sessionCookie is the fallback token carrier for browser EventSource
// clients, which cannot set an Authorization header.
const sessionCookie = "echomail_session"

var errInvalidToken = errors.New("invalid token")

type contextKey string

const contextKeyIdentity contextKey = "identity"

// identityFrom returns the authenticated subject from the request
// context.
func identityFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKeyIdentity).(string)
	return id, ok && id != ""
}

// authenticate validates the caller's JWT and injects the subject claim
// into the request context. Unauthenticated requests get a 401 JSON
// error, never a stream.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if c, err := r.Cookie(sessionCookie); err == nil {
				token = c.Value
			}
		}
		if token == "" {
			writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required")
			return
		}

		subject, err := s.validateToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyIdentity, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validateToken parses an HS256 JWT and returns its subject claim.
func (s *Server) validateToken(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return "", errInvalidToken
	}

	subject, err := parsed.Claims.GetSubject()
	if err != nil || strings.TrimSpace(subject) == "" {
		return "", errInvalidToken
	}
	return subject, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
