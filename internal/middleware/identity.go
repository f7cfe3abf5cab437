// Package middleware carries the transport-level concerns wrapped
// around the reservation handlers: holder identity, rate limiting and
// seat-map response caching.
package middleware

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// holderContextKey is where a verified holder identity is stored on the
// echo context.
const holderContextKey = "holder_id"

// HolderIdentity resolves the caller's identity from an optional bearer
// token.  Authentication itself is out of scope for this service:
// callers normally pass holderId explicitly, but when a JWT issued by
// the surrounding platform is present its subject claim takes
// precedence, so browser sessions and API clients behave identically.
// With an empty secret the middleware is a pass-through.
func HolderIdentity(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				return next(c)
			}
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) {
				return next(c)
			}
			tok, err := jwt.Parse(strings.TrimPrefix(auth, prefix), func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				// An unverifiable token is ignored, not rejected; the
				// explicit holderId in the request still applies.
				return next(c)
			}
			if claims, ok := tok.Claims.(jwt.MapClaims); ok {
				if sub, ok := claims["sub"].(string); ok && sub != "" {
					c.Set(holderContextKey, sub)
				}
			}
			return next(c)
		}
	}
}

// HolderID returns the verified holder from the context when present,
// otherwise the explicitly supplied fallback from the request.
func HolderID(c echo.Context, fallback string) string {
	if v, ok := c.Get(holderContextKey).(string); ok && v != "" {
		return v
	}
	return fallback
}
