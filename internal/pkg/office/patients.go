package office

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/clinika/scribe/internal/pkg/auth"
	"github.com/clinika/scribe/internal/pkg/persistence"
	"github.com/clinika/scribe/internal/pkg/postgres"
	"github.com/clinika/scribe/internal/pkg/utils"
)

type patientInput struct {
	Name      string `json:"name"`
	CPF       string `json:"cpf"`
	Email     string `json:"email"`
	BirthDate string `json:"birth_date"`
}

type patientResult struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CPF       string `json:"cpf"`
	Email     string `json:"email,omitempty"`
	BirthDate string `json:"birth_date"`
}

func createPatient(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("createPatient method")()
		ctx := c.Request().Context()
		doctorID, err := auth.UserID(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized)
		}
		p, err := takePatient(c, doctorID)
		if err != nil {
			return err
		}
		if _, err := data.DB.LoadPatientByCPFHash(ctx, p.CPFHash, doctorID); err == nil {
			return echo.NewHTTPError(http.StatusConflict, "patient with this CPF exists")
		} else if err != postgres.ErrNoRecord {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		id, err := data.DB.InsertPatient(ctx, p)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		p.ID = id
		return c.JSON(http.StatusCreated, toPatientResult(p))
	}
}

func listPatients(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		doctorID, err := auth.UserID(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized)
		}
		skip := takeIntParam(c.QueryParam("skip"), 0)
		limit := takeIntParam(c.QueryParam("limit"), 100)
		if limit > 1000 {
			limit = 1000
		}
		ps, err := data.DB.LoadPatients(ctx, doctorID, skip, limit)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		res := make([]patientResult, 0, len(ps))
		for _, p := range ps {
			res = append(res, toPatientResult(p))
		}
		return c.JSON(http.StatusOK, res)
	}
}

func getPatient(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		doctorID, err := auth.UserID(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized)
		}
		id, err := takeIDParam(c)
		if err != nil {
			return err
		}
		p, err := data.DB.LoadPatient(ctx, id, doctorID)
		if err != nil {
			return dbError(err, "patient not found")
		}
		return c.JSON(http.StatusOK, toPatientResult(p))
	}
}

// getPatientByCPF looks up by the hashed document, the plain value never hits the store
func getPatientByCPF(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		doctorID, err := auth.UserID(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized)
		}
		cpf, err := normalizeCPF(c.Param("cpf"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		p, err := data.DB.LoadPatientByCPFHash(ctx, hashCPF(cpf), doctorID)
		if err != nil {
			return dbError(err, "patient not found")
		}
		return c.JSON(http.StatusOK, toPatientResult(p))
	}
}

func updatePatient(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("updatePatient method")()
		ctx := c.Request().Context()
		doctorID, err := auth.UserID(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized)
		}
		id, err := takeIDParam(c)
		if err != nil {
			return err
		}
		p, err := takePatient(c, doctorID)
		if err != nil {
			return err
		}
		p.ID = id
		if err := data.DB.UpdatePatient(ctx, p); err != nil {
			return dbError(err, "patient not found")
		}
		return c.JSON(http.StatusOK, toPatientResult(p))
	}
}

func deletePatient(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		doctorID, err := auth.UserID(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized)
		}
		id, err := takeIDParam(c)
		if err != nil {
			return err
		}
		if err := data.DB.DeletePatient(ctx, id, doctorID); err != nil {
			return dbError(err, "patient not found")
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func takePatient(c echo.Context, doctorID int64) (*persistence.Patient, error) {
	var inp patientInput
	if err := c.Bind(&inp); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "wrong input")
	}
	inp.Name = strings.TrimSpace(inp.Name)
	if inp.Name == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "no name")
	}
	cpf, err := normalizeCPF(inp.CPF)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	bd, err := time.Parse("2006-01-02", inp.BirthDate)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "wrong birth_date, expected YYYY-MM-DD")
	}
	return &persistence.Patient{Name: inp.Name, CPFHash: hashCPF(cpf),
		CPFDisplay: utils.ToSQLStr(maskCPF(cpf)), Email: utils.ToSQLStr(inp.Email),
		BirthDate: bd, DoctorID: doctorID}, nil
}

func toPatientResult(p *persistence.Patient) patientResult {
	return patientResult{ID: p.ID, Name: p.Name, CPF: utils.FromSQLStr(p.CPFDisplay),
		Email: utils.FromSQLStr(p.Email), BirthDate: p.BirthDate.Format("2006-01-02")}
}

// normalizeCPF strips separators and checks length, not check digits.
// Validation of CPF check digits is left to the front end
func normalizeCPF(cpf string) (string, error) {
	var sb strings.Builder
	for _, r := range cpf {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		} else if r != '.' && r != '-' && r != ' ' {
			return "", fmt.Errorf("wrong CPF")
		}
	}
	if sb.Len() != 11 {
		return "", fmt.Errorf("wrong CPF")
	}
	return sb.String(), nil
}

// hashCPF makes the lookup key. Plain CPF never enters the store
func hashCPF(cpf string) string {
	h := sha256.Sum256([]byte(cpf))
	return hex.EncodeToString(h[:])
}

func maskCPF(cpf string) string {
	return "***." + cpf[3:6] + ".***-" + cpf[9:]
}

func takeIDParam(c echo.Context) (int64, error) {
	res, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || res <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "wrong ID")
	}
	return res, nil
}

func takeIntParam(s string, def int) int {
	if s == "" {
		return def
	}
	res, err := strconv.Atoi(s)
	if err != nil || res < 0 {
		return def
	}
	return res
}

func dbError(err error, notFoundMsg string) error {
	if err == postgres.ErrNoRecord {
		return echo.NewHTTPError(http.StatusNotFound, notFoundMsg)
	}
	goapp.Log.Error().Err(err).Send()
	return echo.NewHTTPError(http.StatusInternalServerError)
}
