package office

import (
	"context"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/pkg/errors"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/clinika/scribe/internal/pkg/ai"
	aiapi "github.com/clinika/scribe/internal/pkg/ai/api"
	"github.com/clinika/scribe/internal/pkg/auth"
	"github.com/clinika/scribe/internal/pkg/persistence"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Filer provides audio archival
type Filer interface {
	SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64) error
	LoadFile(ctx context.Context, name string) (io.ReadSeekCloser, error)
}

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(ctx context.Context, msg interface{}, queue string) error
}

// DB provides office persistence
type DB interface {
	InsertTask(ctx context.Context, task *persistence.Task) error
	LoadTask(ctx context.Context, taskID string) (*persistence.Task, error)
	UpdateTaskStatus(ctx context.Context, upd *persistence.TaskUpdate) (bool, error)

	InsertPatient(ctx context.Context, p *persistence.Patient) (int64, error)
	LoadPatient(ctx context.Context, id, doctorID int64) (*persistence.Patient, error)
	LoadPatientByCPFHash(ctx context.Context, cpfHash string, doctorID int64) (*persistence.Patient, error)
	LoadPatients(ctx context.Context, doctorID int64, skip, limit int) ([]*persistence.Patient, error)
	UpdatePatient(ctx context.Context, p *persistence.Patient) error
	DeletePatient(ctx context.Context, id, doctorID int64) error

	InsertMedicalRecord(ctx context.Context, rec *persistence.MedicalRecord) (int64, error)
	LoadMedicalRecord(ctx context.Context, id int64) (*persistence.MedicalRecord, error)
	LoadPatientRecords(ctx context.Context, patientID int64) ([]*persistence.MedicalRecord, error)
	UpdateMedicalRecord(ctx context.Context, rec *persistence.MedicalRecord) error
	DeleteMedicalRecord(ctx context.Context, id int64) error

	InsertUser(ctx context.Context, u *persistence.User) (int64, error)
	LoadUser(ctx context.Context, username string) (*persistence.User, error)
	LoadUserByID(ctx context.Context, id int64) (*persistence.User, error)
}

// Workflow runs the synchronous AI pipeline
type Workflow interface {
	Run(ctx context.Context, audio *aiapi.AudioData) (*ai.Result, error)
}

// Data keeps data required for service work
type Data struct {
	Port      int
	DB        DB
	Filer     Filer
	MsgSender MsgSender
	Workflow  Workflow
	Auth      *auth.Manager
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Msgf("Starting HTTP SCRIBE office service at %d", data.Port)
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 180 * time.Second
	e.Server.WriteTimeout = 300 * time.Second

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.DB == nil {
		return errors.New("no DB")
	}
	if data.Filer == nil {
		return errors.New("no filer")
	}
	if data.MsgSender == nil {
		return errors.New("no msg sender")
	}
	if data.Workflow == nil {
		return errors.New("no workflow")
	}
	if data.Auth == nil {
		return errors.New("no auth manager")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("scribe_office", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.POST("/auth/register", register(data))
	e.POST("/auth/login", login(data))

	pr := e.Group("", data.Auth.Middleware())
	pr.GET("/auth/me", me(data))

	pr.POST("/patients", createPatient(data))
	pr.GET("/patients", listPatients(data))
	pr.GET("/patients/cpf/:cpf", getPatientByCPF(data))
	pr.GET("/patients/:id", getPatient(data))
	pr.PUT("/patients/:id", updatePatient(data))
	pr.DELETE("/patients/:id", deletePatient(data))

	pr.GET("/patients/:id/records", listPatientRecords(data))
	pr.POST("/records", createRecord(data))
	pr.GET("/records/:id", getRecord(data))
	pr.PUT("/records/:id", updateRecord(data))
	pr.DELETE("/records/:id", deleteRecord(data))

	pr.POST("/transcribe", transcribe(data))
	pr.POST("/transcribe/tasks", submitTask(data))
	pr.POST("/transcribe/tasks/patient/:id", submitPatientTask(data))
	pr.GET("/audio/:id", downloadAudio(data))

	e.GET("/live", live(data))

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}
