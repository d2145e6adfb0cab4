package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken_RoundTrip(t *testing.T) {
	m, err := NewManager("olia secret", time.Minute)
	require.Nil(t, err)
	token, err := m.Token(15)
	require.Nil(t, err)
	id, err := m.Parse(token)
	assert.Nil(t, err)
	assert.Equal(t, int64(15), id)
}

func TestToken_Expired(t *testing.T) {
	m, err := NewManager("olia secret", -time.Minute)
	require.Nil(t, err)
	m.expireIn = -time.Minute
	token, err := m.Token(15)
	require.Nil(t, err)
	_, err = m.Parse(token)
	assert.NotNil(t, err)
}

func TestParse_WrongSecret(t *testing.T) {
	m1, _ := NewManager("olia secret", time.Minute)
	m2, _ := NewManager("other secret", time.Minute)
	token, err := m1.Token(15)
	require.Nil(t, err)
	_, err = m2.Parse(token)
	assert.NotNil(t, err)
}

func TestNewManager_Fails(t *testing.T) {
	_, err := NewManager("", time.Minute)
	assert.NotNil(t, err)
}

func TestMiddleware(t *testing.T) {
	m, _ := NewManager("olia secret", time.Minute)
	token, _ := m.Token(15)

	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		id, err := UserID(c)
		require.Nil(t, err)
		assert.Equal(t, int64(15), id)
		return c.NoContent(http.StatusOK)
	}, m.Middleware())

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "OK", header: "Bearer " + token, want: http.StatusOK},
		{name: "No header", header: "", want: http.StatusUnauthorized},
		{name: "No bearer", header: token, want: http.StatusUnauthorized},
		{name: "Bad token", header: "Bearer olia", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			resp := httptest.NewRecorder()
			e.ServeHTTP(resp, req)
			assert.Equal(t, tt.want, resp.Code)
		})
	}
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("olia")
	require.Nil(t, err)
	assert.True(t, CheckPassword(h, "olia"))
	assert.False(t, CheckPassword(h, "olia2"))
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	assert.NotNil(t, err)
}
