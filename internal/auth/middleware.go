// Package auth signs admins in with a JWT cookie and puts the resulting user
// identity on each request.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	cookieName  = "auth_token"
	identityKey = "auth.identity"

	DefaultSessionTTL = 30 * 24 * time.Hour
)

var ErrUnauthorized = errors.New("unauthorized")

type Credentials struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func (c Credentials) Check(other Credentials) bool {
	user := subtle.ConstantTimeCompare([]byte(c.Username), []byte(other.Username))
	pass := subtle.ConstantTimeCompare([]byte(c.Password), []byte(other.Password))
	return user&pass == 1
}

// NewCredentials parses "user:password".
func NewCredentials(s string) (Credentials, error) {
	username, password, ok := strings.Cut(s, ":")
	if !ok || username == "" || password == "" {
		return Credentials{}, fmt.Errorf("invalid credentials format, expected user:password")
	}
	return Credentials{Username: username, Password: password}, nil
}

type Authenticator struct {
	credentials Credentials
	jwtSecret   string
	ttl         time.Duration
	now         func() time.Time
}

func NewAuthenticator(credentials Credentials, jwtSecret string, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Authenticator{credentials: credentials, jwtSecret: jwtSecret, ttl: ttl, now: time.Now}
}

// Authenticate checks creds and returns a session cookie for them.
func (a *Authenticator) Authenticate(creds Credentials) (*http.Cookie, error) {
	if !a.credentials.Check(creds) {
		return nil, ErrUnauthorized
	}
	return a.generateCookie(creds.Username)
}

// Identify returns the user behind a session token.
func (a *Authenticator) Identify(token string) (string, error) {
	claims, err := validateToken(token, a.jwtSecret, a.now())
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (a *Authenticator) generateCookie(username string) (*http.Cookie, error) {
	token, err := signToken(username, a.jwtSecret, a.now(), a.ttl)
	if err != nil {
		return nil, err
	}

	return &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(a.ttl.Seconds()),
	}, nil
}

// NewAuthMiddleware accepts a session cookie or HTTP basic auth. Either one
// refreshes the cookie and stores the user identity for IdentityFrom.
func NewAuthMiddleware(auther *Authenticator) echo.MiddlewareFunc {
	type authStrategy func(c echo.Context) (string, bool)
	strategies := []authStrategy{
		auther.authWithCookie,
		auther.authWithBasicAuth,
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, strategy := range strategies {
				username, ok := strategy(c)
				if !ok {
					continue
				}

				cookie, err := auther.generateCookie(username)
				if err != nil {
					return fmt.Errorf("failed to generate cookie: %w", err)
				}
				cookie.Secure = c.IsTLS()
				c.SetCookie(cookie)

				c.Set(identityKey, username)
				return next(c)
			}
			return echo.ErrUnauthorized
		}
	}
}

func (a *Authenticator) authWithCookie(c echo.Context) (string, bool) {
	cookie, err := c.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	username, err := a.Identify(cookie.Value)
	if err != nil {
		return "", false
	}
	return username, true
}

func (a *Authenticator) authWithBasicAuth(c echo.Context) (string, bool) {
	username, password, ok := c.Request().BasicAuth()
	if !ok {
		return "", false
	}
	if !a.credentials.Check(Credentials{Username: username, Password: password}) {
		return "", false
	}
	return username, true
}

// IdentityFrom returns the user placed on c by the auth middleware.
func IdentityFrom(c echo.Context) (string, bool) {
	username, ok := c.Get(identityKey).(string)
	return username, ok && username != ""
}

func ExpireCookie() *http.Cookie {
	return &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	}
}
