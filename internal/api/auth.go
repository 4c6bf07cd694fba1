package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"
	"golang.org/x/crypto/bcrypt"
)

// HashToken returns the bcrypt hash stored as api_token_hash.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// authenticate checks the bearer token against Config.TokenHash. Browsers
// cannot set headers on websocket upgrades, so access_token is accepted as
// a query parameter too.
func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		if s.cfg.TokenHash == "" {
			return next(c)
		}
		token := bearerToken(c.Request().Header.Get("Authorization"))
		if token == "" {
			token = c.QueryParam("access_token")
		}
		if token == "" {
			c.Response().Header().Set("WWW-Authenticate", `Bearer realm="copyconf"`)
			return writeError(c, http.StatusUnauthorized, "authentication_error", "missing bearer token")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.TokenHash), []byte(token)); err != nil {
			return writeError(c, http.StatusUnauthorized, "authentication_error", "invalid bearer token")
		}
		return next(c)
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
