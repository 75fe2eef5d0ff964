package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/anonto42/yatube/internal/models"
	"github.com/anonto42/yatube/internal/repositories"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "yatube_session"

const userContextKey = "user"

var errUnexpectedSigningMethod = errors.New("unexpected signing method")

// Sessions issues and reads HS256-signed session cookies.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	secure bool
	users  repositories.UserRepository
}

func NewSessions(secret string, ttl time.Duration, secure bool, users repositories.UserRepository) *Sessions {
	return &Sessions{secret: []byte(secret), ttl: ttl, secure: secure, users: users}
}

// NewToken signs a session token for user.
func (s *Sessions) NewToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &models.SessionClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken verifies the signature and expiry of a session token.
func (s *Sessions) ParseToken(tokenString string) (*models.SessionClaims, error) {
	claims := &models.SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedSigningMethod
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// Login sets the session cookie for user and makes them the current user of c.
func (s *Sessions) Login(c echo.Context, user *models.User) error {
	token, err := s.NewToken(user)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.ttl),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	c.Set(userContextKey, user)
	return nil
}

// Logout expires the session cookie.
func (s *Sessions) Logout(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	c.Set(userContextKey, nil)
}

// Middleware loads the user named by a valid session cookie. Requests with a
// missing, invalid or stale cookie continue anonymously.
func (s *Sessions) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				return next(c)
			}
			claims, err := s.ParseToken(cookie.Value)
			if err != nil {
				s.Logout(c)
				return next(c)
			}
			user, err := s.users.GetUserByID(c.Request().Context(), claims.UserID)
			if errors.Is(err, repositories.ErrNotFound) {
				s.Logout(c)
				return next(c)
			}
			if err != nil {
				return err
			}
			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the signed-in user, or nil for anonymous requests.
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get(userContextKey).(*models.User)
	return user
}
