package office

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/clinika/scribe/internal/pkg/auth"
	"github.com/clinika/scribe/internal/pkg/persistence"
	"github.com/clinika/scribe/internal/pkg/utils"
)

type recordInput struct {
	ChiefComplaint          string `json:"chief_complaint"`
	HistoryOfPresentIllness string `json:"history_of_present_illness"`
	PriorConditions         string `json:"prior_conditions"`
	PhysicalExam            string `json:"physical_exam"`
	DiagnosticHypothesis    string `json:"diagnostic_hypothesis"`
	TreatmentPlan           string `json:"treatment_plan"`
	Prescription            string `json:"prescription"`
	Referrals               string `json:"referrals"`
}

type recordResult struct {
	ID                      int64  `json:"id"`
	PatientID               int64  `json:"patient_id"`
	ChiefComplaint          string `json:"chief_complaint"`
	HistoryOfPresentIllness string `json:"history_of_present_illness"`
	PriorConditions         string `json:"prior_conditions"`
	PhysicalExam            string `json:"physical_exam"`
	DiagnosticHypothesis    string `json:"diagnostic_hypothesis"`
	TreatmentPlan           string `json:"treatment_plan"`
	Prescription            string `json:"prescription"`
	Referrals               string `json:"referrals"`
	OriginalTranscription   string `json:"original_transcription,omitempty"`
	CreatedAt               string `json:"created_at"`
}

type createRecordInput struct {
	PatientID int64 `json:"patient_id"`
	recordInput
	OriginalTranscription string `json:"original_transcription"`
}

func createRecord(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("createRecord method")()
		ctx := c.Request().Context()
		doctorID, err := auth.UserID(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized)
		}
		var inp createRecordInput
		if err := c.Bind(&inp); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong input")
		}
		if inp.PatientID <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "no patient_id")
		}
		if _, err := data.DB.LoadPatient(ctx, inp.PatientID, doctorID); err != nil {
			return dbError(err, "patient not found")
		}
		rec := &persistence.MedicalRecord{PatientID: inp.PatientID,
			ChiefComplaint:          utils.ToSQLStr(inp.ChiefComplaint),
			HistoryOfPresentIllness: utils.ToSQLStr(inp.HistoryOfPresentIllness),
			PriorConditions:         utils.ToSQLStr(inp.PriorConditions),
			PhysicalExam:            utils.ToSQLStr(inp.PhysicalExam),
			DiagnosticHypothesis:    utils.ToSQLStr(inp.DiagnosticHypothesis),
			TreatmentPlan:           utils.ToSQLStr(inp.TreatmentPlan),
			Prescription:            utils.ToSQLStr(inp.Prescription),
			Referrals:               utils.ToSQLStr(inp.Referrals),
			OriginalTranscription:   utils.ToSQLStr(inp.OriginalTranscription),
		}
		id, err := data.DB.InsertMedicalRecord(ctx, rec)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		rec.ID = id
		rec.Created = time.Now()
		return c.JSON(http.StatusCreated, toRecordResult(rec))
	}
}

func getRecord(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		rec, err := loadOwnedRecord(c, data)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, toRecordResult(rec))
	}
}

func listPatientRecords(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		doctorID, err := auth.UserID(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized)
		}
		patientID, err := takeIDParam(c)
		if err != nil {
			return err
		}
		// ownership check before listing
		if _, err := data.DB.LoadPatient(ctx, patientID, doctorID); err != nil {
			return dbError(err, "patient not found")
		}
		recs, err := data.DB.LoadPatientRecords(ctx, patientID)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		res := make([]recordResult, 0, len(recs))
		for _, r := range recs {
			res = append(res, toRecordResult(r))
		}
		return c.JSON(http.StatusOK, res)
	}
}

func updateRecord(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("updateRecord method")()
		ctx := c.Request().Context()
		rec, err := loadOwnedRecord(c, data)
		if err != nil {
			return err
		}
		var inp recordInput
		if err := c.Bind(&inp); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong input")
		}
		rec.ChiefComplaint = utils.ToSQLStr(inp.ChiefComplaint)
		rec.HistoryOfPresentIllness = utils.ToSQLStr(inp.HistoryOfPresentIllness)
		rec.PriorConditions = utils.ToSQLStr(inp.PriorConditions)
		rec.PhysicalExam = utils.ToSQLStr(inp.PhysicalExam)
		rec.DiagnosticHypothesis = utils.ToSQLStr(inp.DiagnosticHypothesis)
		rec.TreatmentPlan = utils.ToSQLStr(inp.TreatmentPlan)
		rec.Prescription = utils.ToSQLStr(inp.Prescription)
		rec.Referrals = utils.ToSQLStr(inp.Referrals)
		if err := data.DB.UpdateMedicalRecord(ctx, rec); err != nil {
			return dbError(err, "record not found")
		}
		return c.JSON(http.StatusOK, toRecordResult(rec))
	}
}

func deleteRecord(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		rec, err := loadOwnedRecord(c, data)
		if err != nil {
			return err
		}
		if err := data.DB.DeleteMedicalRecord(ctx, rec.ID); err != nil {
			return dbError(err, "record not found")
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// loadOwnedRecord loads the record and verifies its patient belongs
// to the authenticated doctor. Foreign records look like missing ones
func loadOwnedRecord(c echo.Context, data *Data) (*persistence.MedicalRecord, error) {
	ctx := c.Request().Context()
	doctorID, err := auth.UserID(c)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized)
	}
	id, err := takeIDParam(c)
	if err != nil {
		return nil, err
	}
	rec, err := data.DB.LoadMedicalRecord(ctx, id)
	if err != nil {
		return nil, dbError(err, "record not found")
	}
	if _, err := data.DB.LoadPatient(ctx, rec.PatientID, doctorID); err != nil {
		return nil, dbError(err, "record not found")
	}
	return rec, nil
}

func toRecordResult(r *persistence.MedicalRecord) recordResult {
	return recordResult{ID: r.ID, PatientID: r.PatientID,
		ChiefComplaint:          utils.FromSQLStr(r.ChiefComplaint),
		HistoryOfPresentIllness: utils.FromSQLStr(r.HistoryOfPresentIllness),
		PriorConditions:         utils.FromSQLStr(r.PriorConditions),
		PhysicalExam:            utils.FromSQLStr(r.PhysicalExam),
		DiagnosticHypothesis:    utils.FromSQLStr(r.DiagnosticHypothesis),
		TreatmentPlan:           utils.FromSQLStr(r.TreatmentPlan),
		Prescription:            utils.FromSQLStr(r.Prescription),
		Referrals:               utils.FromSQLStr(r.Referrals),
		OriginalTranscription:   utils.FromSQLStr(r.OriginalTranscription),
		CreatedAt:               r.Created.Format(time.RFC3339),
	}
}
