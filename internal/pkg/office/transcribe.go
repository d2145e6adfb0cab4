package office

import (
	"bytes"
	"encoding/json"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"

	"github.com/airenas/go-app/pkg/goapp"
	aiapi "github.com/clinika/scribe/internal/pkg/ai/api"
	"github.com/clinika/scribe/internal/pkg/auth"
	"github.com/clinika/scribe/internal/pkg/messages"
	"github.com/clinika/scribe/internal/pkg/persistence"
	"github.com/clinika/scribe/internal/pkg/status"
	"github.com/clinika/scribe/internal/pkg/utils"
)

const prmFile = "file"
const prmEmail = "email"

// 25MB, groq audio endpoint limit
const maxAudioSize = 25 * 1024 * 1024

type taskResult struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type transcriptionResult struct {
	OriginalText string            `json:"original_text"`
	Structured   map[string]string `json:"structured"`
}

// transcribe runs the pipeline synchronously within the request
func transcribe(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("transcribe method")()
		ctx := c.Request().Context()

		fileName, content, err := takeAudio(c)
		if err != nil {
			return err
		}
		res, err := data.Workflow.Run(ctx, &aiapi.AudioData{Name: fileName, Content: content})
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, "can't process audio")
		}
		return c.JSON(http.StatusOK, transcriptionResult{OriginalText: res.Text, Structured: res.Fields})
	}
}

func submitTask(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("submitTask method")()
		return submit(c, data, nil)
	}
}

func submitPatientTask(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("submitPatientTask method")()
		ctx := c.Request().Context()
		doctorID, err := takeUserID(c)
		if err != nil {
			return err
		}
		patientID, err := takeIDParam(c)
		if err != nil {
			return err
		}
		if _, err := data.DB.LoadPatient(ctx, patientID, doctorID); err != nil {
			return dbError(err, "patient not found")
		}
		return submit(c, data, &patientID)
	}
}

func submit(c echo.Context, data *Data, patientID *int64) error {
	ctx := c.Request().Context()

	fileName, content, err := takeAudio(c)
	if err != nil {
		return err
	}

	taskID := uuid.New().String()
	objectRef, err := utils.MakeValidateFileName(taskID, fileName)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "wrong file name: "+fileName)
	}
	input := persistence.TaskInput{FileName: fileName, FileSize: int64(len(content)),
		ObjectRef: objectRef, Email: c.FormValue(prmEmail)}
	inputBts, err := json.Marshal(&input)
	if err != nil {
		goapp.Log.Error().Err(err).Send()
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	task := &persistence.Task{TaskID: taskID, TaskType: "transcription",
		InputData: utils.ToSQLStr(string(inputBts)), PatientID: utils.ToSQLInt64(patientID),
		Created: time.Now()}
	if err := data.DB.InsertTask(ctx, task); err != nil {
		goapp.Log.Error().Err(err).Send()
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	if err := data.Filer.SaveFile(ctx, objectRef, bytes.NewReader(content),
		int64(len(content))); err != nil {
		goapp.Log.Error().Err(err).Send()
		return failTask(c, data, taskID, "can't save audio file")
	}
	msg := messages.NewTranscriptionMessage(taskID, fileName, content, patientID)
	if err := data.MsgSender.SendMessage(ctx, msg, messages.Transcription); err != nil {
		goapp.Log.Error().Err(err).Send()
		return failTask(c, data, taskID, "can't queue transcription task")
	}

	goapp.Log.Info().Str("taskID", taskID).Str("file", fileName).Msg("task queued")
	return c.JSON(http.StatusAccepted, taskResult{TaskID: taskID, Status: strings.ToLower(status.Pending.String()),
		Message: "Transcription task queued for processing"})
}

// failTask records the broken submission so polling clients see a terminal state
func failTask(c echo.Context, data *Data, taskID, msg string) error {
	if _, err := data.DB.UpdateTaskStatus(c.Request().Context(), &persistence.TaskUpdate{TaskID: taskID,
		Status: status.Failed.String(), ErrorMessage: msg}); err != nil {
		goapp.Log.Error().Err(err).Str("taskID", taskID).Msg("can't mark task failed")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, msg)
}

func takeAudio(c echo.Context) (string, []byte, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return "", nil, echo.NewHTTPError(http.StatusBadRequest, "no multipart form data")
	}
	defer cleanFiles(form)
	file, handler, err := takeFile(form, prmFile)
	if err != nil {
		return "", nil, echo.NewHTTPError(http.StatusBadRequest, "no form file parameter 'file'")
	}
	defer file.Close()
	if handler.Size > maxAudioSize {
		return "", nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}
	ext := strings.ToLower(filepath.Ext(handler.Filename))
	if !utils.SupportAudioExt(ext) {
		return "", nil, echo.NewHTTPError(http.StatusBadRequest, "wrong file extension: "+ext)
	}
	content, err := io.ReadAll(io.LimitReader(file, maxAudioSize+1))
	if err != nil {
		return "", nil, echo.NewHTTPError(http.StatusBadRequest, "can't read file")
	}
	if len(content) > maxAudioSize {
		return "", nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}
	if len(content) == 0 {
		return "", nil, echo.NewHTTPError(http.StatusBadRequest, "empty file")
	}
	return handler.Filename, content, nil
}

func takeFile(form *multipart.Form, paramName string) (multipart.File, *multipart.FileHeader, error) {
	fhs := form.File[paramName]
	if len(fhs) == 0 {
		return nil, nil, http.ErrMissingFile
	}
	handler := fhs[0]
	file, err := handler.Open()
	return file, handler, err
}

func cleanFiles(f *multipart.Form) {
	if f != nil {
		_ = f.RemoveAll()
	}
}

func takeUserID(c echo.Context) (int64, error) {
	res, err := auth.UserID(c)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusUnauthorized)
	}
	return res, nil
}

func downloadAudio(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("downloadAudio method")()
		ctx := c.Request().Context()

		taskID := c.Param("id")
		if taskID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no ID")
		}
		task, err := data.DB.LoadTask(ctx, taskID)
		if err != nil {
			return dbError(err, "task not found")
		}
		var input persistence.TaskInput
		if err := json.Unmarshal([]byte(utils.FromSQLStr(task.InputData)), &input); err != nil ||
			input.ObjectRef == "" {
			return echo.NewHTTPError(http.StatusNotFound, "no audio for task")
		}
		return serveFile(c, data, input.ObjectRef)
	}
}

func serveFile(c echo.Context, data *Data, name string) error {
	goapp.Log.Info().Str("file", name).Msg("loading")
	file, err := data.Filer.LoadFile(c.Request().Context(), name)
	if err != nil {
		if isNotFound(err) {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		goapp.Log.Error().Err(err).Send()
		return echo.NewHTTPError(http.StatusInternalServerError, "can't get file")
	}
	defer file.Close()
	stGetter, ok := file.(interface{ Stat() (fs.FileInfo, error) })
	if !ok {
		goapp.Log.Error().Msg(`file does not implement "interface{ Stat() (fs.FileInfo, error) }"`)
		return echo.NewHTTPError(http.StatusInternalServerError, "can't get file stat")
	}
	stat, err := stGetter.Stat()
	if err != nil {
		if isNotFound(err) {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		goapp.Log.Error().Err(err).Send()
		return echo.NewHTTPError(http.StatusInternalServerError, "can't get file stat")
	}

	w := c.Response()
	w.Header().Set("Content-Disposition", "attachment; filename="+filepath.Base(stat.Name()))
	http.ServeContent(w, c.Request(), stat.Name(), stat.ModTime(), file)
	return nil
}

func isNotFound(err error) bool {
	var errTest minio.ErrorResponse
	return errors.As(err, &errTest) && errTest.StatusCode == http.StatusNotFound
}
