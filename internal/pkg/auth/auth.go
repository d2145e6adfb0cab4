package auth

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/airenas/go-app/pkg/goapp"
)

// UserIDKey is echo context key holding the authenticated doctor id
const UserIDKey = "userID"

// Manager signs and parses access tokens
type Manager struct {
	secret   []byte
	expireIn time.Duration
}

// NewManager creates token manager
func NewManager(secret string, expireIn time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, fmt.Errorf("no auth secret")
	}
	if expireIn <= 0 {
		expireIn = time.Minute * 30
	}
	return &Manager{secret: []byte(secret), expireIn: expireIn}, nil
}

// Token issues a signed token for the user id
func (m *Manager) Token(userID int64) (string, error) {
	now := time.Now()
	claims := jwt.StandardClaims{Subject: strconv.FormatInt(userID, 10),
		IssuedAt: now.Unix(), ExpiresAt: now.Add(m.expireIn).Unix()}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	res, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("can't sign token: %w", err)
	}
	return res, nil
}

// Parse validates the token and returns the user id
func (m *Manager) Parse(tokenStr string) (int64, error) {
	claims := jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("can't parse token: %w", err)
	}
	if !token.Valid {
		return 0, fmt.Errorf("invalid token")
	}
	res, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad subject '%s'", claims.Subject)
	}
	return res, nil
}

// Middleware returns echo middleware validating the bearer token
// and putting the user id into the context
func (m *Manager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := takeBearer(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}
			userID, err := m.Parse(token)
			if err != nil {
				goapp.Log.Warn().Err(err).Msg("auth failed")
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			c.Set(UserIDKey, userID)
			return next(c)
		}
	}
}

func takeBearer(header string) (string, error) {
	if header == "" {
		return "", fmt.Errorf("no authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("no bearer token")
	}
	return parts[1], nil
}

// UserID reads the authenticated user id from the context
func UserID(c echo.Context) (int64, error) {
	res, ok := c.Get(UserIDKey).(int64)
	if !ok {
		return 0, fmt.Errorf("no user in context")
	}
	return res, nil
}

// HashPassword makes bcrypt hash for storing
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("no password")
	}
	res, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("can't hash password: %w", err)
	}
	return string(res), nil
}

// CheckPassword compares password against the stored hash
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
