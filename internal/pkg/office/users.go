package office

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/clinika/scribe/internal/pkg/auth"
	"github.com/clinika/scribe/internal/pkg/persistence"
	"github.com/clinika/scribe/internal/pkg/postgres"
	"github.com/clinika/scribe/internal/pkg/utils"
)

type registerInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResult struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

type loginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func register(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("register method")()
		ctx := c.Request().Context()

		var inp registerInput
		if err := c.Bind(&inp); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong input")
		}
		inp.Username = strings.TrimSpace(inp.Username)
		if inp.Username == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no username")
		}
		if len(inp.Password) < 6 {
			return echo.NewHTTPError(http.StatusBadRequest, "password too short")
		}
		if _, err := data.DB.LoadUser(ctx, inp.Username); err == nil {
			return echo.NewHTTPError(http.StatusConflict, "username taken")
		} else if err != postgres.ErrNoRecord {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		hash, err := auth.HashPassword(inp.Password)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		u := &persistence.User{Username: inp.Username, Email: utils.ToSQLStr(inp.Email),
			HashedPassword: hash, Created: time.Now()}
		id, err := data.DB.InsertUser(ctx, u)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusCreated, userResult{ID: id, Username: u.Username, Email: inp.Email})
	}
}

func login(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("login method")()
		ctx := c.Request().Context()

		var inp loginInput
		if err := c.Bind(&inp); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong input")
		}
		u, err := data.DB.LoadUser(ctx, strings.TrimSpace(inp.Username))
		if err != nil {
			if err == postgres.ErrNoRecord {
				return echo.NewHTTPError(http.StatusUnauthorized, "wrong username or password")
			}
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if !auth.CheckPassword(u.HashedPassword, inp.Password) {
			return echo.NewHTTPError(http.StatusUnauthorized, "wrong username or password")
		}
		token, err := data.Auth.Token(u.ID)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, tokenResult{AccessToken: token, TokenType: "bearer"})
	}
}

func me(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserID(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized)
		}
		// user row may be gone while the token is still valid
		u, err := data.DB.LoadUserByID(ctx, userID)
		if err != nil {
			if err == postgres.ErrNoRecord {
				return echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
			}
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, userResult{ID: u.ID, Username: u.Username, Email: utils.FromSQLStr(u.Email)})
	}
}
