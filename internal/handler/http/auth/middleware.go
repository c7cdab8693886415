// Package auth validates HS256 bearer tokens on protected routes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ticker-news/internal/handler/http/respond"
	"ticker-news/internal/observability/logging"
)

type ctxKey struct{}

var (
	errMissingBearer = errors.New("missing bearer token")
	errInvalidToken  = errors.New("invalid token")
	errMissingSub    = errors.New("invalid sub claim")
)

// SubjectFromContext returns the authenticated subject, or "" if none.
func SubjectFromContext(ctx context.Context) string {
	sub, _ := ctx.Value(ctxKey{}).(string)
	return sub
}

// Middleware rejects requests without a valid HS256 token signed with
// secret. The token must carry exp and a non-empty sub.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Second),
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sub, err := validate(parser, r.Header.Get("Authorization"), secret)
			RecordAuthzCheckDuration(time.Since(start).Seconds())
			if err != nil {
				RecordAuthRequest("failure")
				logging.FromContext(r.Context()).Warn("authentication failed",
					slog.String("reason", err.Error()))
				w.Header().Set("WWW-Authenticate", `Bearer realm="ticker-news"`)
				respond.Error(w, http.StatusUnauthorized, fmt.Errorf("unauthorized: %w", err))
				return
			}
			RecordAuthRequest("success")
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sub)))
		})
	}
}

func validate(parser *jwt.Parser, header string, secret []byte) (string, error) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", errMissingBearer
	}

	claims := jwt.RegisteredClaims{}
	_, err := parser.ParseWithClaims(strings.TrimSpace(header[len(prefix):]), &claims,
		func(*jwt.Token) (any, error) { return secret, nil })
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errors.New("token expired")
		}
		return "", errInvalidToken
	}
	if claims.Subject == "" {
		return "", errMissingSub
	}
	return claims.Subject, nil
}
