package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/vgarvardt/gue/v5"

	"github.com/clinika/scribe/internal/pkg/ai"
	aiapi "github.com/clinika/scribe/internal/pkg/ai/api"
	"github.com/clinika/scribe/internal/pkg/messages"
	"github.com/clinika/scribe/internal/pkg/persistence"
	"github.com/clinika/scribe/internal/pkg/status"
	"github.com/clinika/scribe/internal/pkg/utils"
	"github.com/clinika/scribe/internal/pkg/utils/handler"
)

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(ctx context.Context, msg interface{}, queue string) error
}

// DB provides task and medical record persistence
type DB interface {
	LoadTask(ctx context.Context, taskID string) (*persistence.Task, error)
	UpdateTaskStatus(ctx context.Context, upd *persistence.TaskUpdate) (bool, error)
	InsertMedicalRecord(ctx context.Context, rec *persistence.MedicalRecord) (int64, error)
}

// Workflow runs the two-stage AI pipeline
type Workflow interface {
	Run(ctx context.Context, audio *aiapi.AudioData) (*ai.Result, error)
}

// ServiceData keeps data required for service work
type ServiceData struct {
	GueClient   *gue.Client
	WorkerCount int
	MsgSender   MsgSender
	DB          DB
	Workflow    Workflow
}

// StartWorkerService starts the queue listener processing transcription tasks.
// Returns channel for tracking if all jobs are finished
func StartWorkerService(ctx context.Context, data *ServiceData) (chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	goapp.Log.Info().Int("workers", data.WorkerCount).Msg("Starting listen for messages")

	wm := gue.WorkMap{
		messages.Transcription: handler.Create(data, handleTranscription,
			handler.DefaultOpts[messages.TranscriptionMessage]().
				WithTimeout(time.Minute*120).
				WithFailure(func(ctx context.Context, m *messages.TranscriptionMessage, err error) error {
					return finalizeFailed(ctx, m.TaskID, err, data)
				})),
	}

	pool, err := gue.NewWorkerPool(
		data.GueClient, wm, data.WorkerCount,
		gue.WithPoolQueue(messages.Transcription),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter()),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("transcription-worker"),
	)
	if err != nil {
		return nil, fmt.Errorf("could not build gue workers pool: %w", err)
	}
	res := make(chan struct{}, 1)
	go func() {
		goapp.Log.Info().Msg("Starting workers")
		if err := pool.Run(ctx); err != nil {
			goapp.Log.Error().Err(err).Msg("pool error")
		}
		goapp.Log.Info().Msg("Pool workers finished")
		res <- struct{}{}
	}()
	return res, nil
}

// handleTranscription drives one task through the four pipeline stages:
// mark processing, run the AI workflow, optionally persist a medical record,
// finalize status. Each status update is an independent store call
func handleTranscription(ctx context.Context, m *messages.TranscriptionMessage, data *ServiceData) error {
	goapp.Log.Info().Str("taskID", m.TaskID).Str("file", m.FileName).Msg("handling transcription")

	markProcessing(ctx, m, data)

	res, err := runWorkflow(ctx, m, data)
	if err != nil {
		return finalizeFailed(ctx, m.TaskID, err, data)
	}

	var recordID *int64
	if m.PatientID != nil {
		id, err := persistRecord(ctx, *m.PatientID, res, data)
		if err != nil {
			// deliberate asymmetry: the transcription result is still valuable
			// without the linked record, the task completes anyway
			goapp.Log.Error().Err(err).Str("taskID", m.TaskID).Msg("can't persist medical record")
		} else {
			recordID = &id
			goapp.Log.Info().Str("taskID", m.TaskID).Int64("recordID", id).Msg("medical record created")
		}
	}

	return finalizeCompleted(ctx, m.TaskID, res, recordID, data)
}

// markProcessing is best-effort: the work must still run even if the store
// update fails, otherwise the payload would be lost
func markProcessing(ctx context.Context, m *messages.TranscriptionMessage, data *ServiceData) {
	ok, err := data.DB.UpdateTaskStatus(ctx, &persistence.TaskUpdate{TaskID: m.TaskID,
		Status: status.Processing.String()})
	if err != nil {
		goapp.Log.Error().Err(err).Str("taskID", m.TaskID).Msg("can't mark task processing")
		return
	}
	if !ok {
		goapp.Log.Warn().Str("taskID", m.TaskID).Msg("task missing or finished - processing not marked")
		return
	}
	sendTaskEvents(ctx, m.TaskID, amessages.InformTypeStarted, data)
}

func runWorkflow(ctx context.Context, m *messages.TranscriptionMessage, data *ServiceData) (*ai.Result, error) {
	content, err := m.Content()
	if err != nil {
		return nil, fmt.Errorf("can't decode audio payload: %w", err)
	}
	res, err := data.Workflow.Run(ctx, &aiapi.AudioData{Name: m.FileName, Content: content})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func persistRecord(ctx context.Context, patientID int64, res *ai.Result, data *ServiceData) (int64, error) {
	rec := &persistence.MedicalRecord{
		PatientID:               patientID,
		ChiefComplaint:          utils.ToSQLStr(res.Fields[aiapi.FldChiefComplaint]),
		HistoryOfPresentIllness: utils.ToSQLStr(res.Fields[aiapi.FldHistoryOfPresentIllness]),
		PriorConditions:         utils.ToSQLStr(res.Fields[aiapi.FldPriorConditions]),
		PhysicalExam:            utils.ToSQLStr(res.Fields[aiapi.FldPhysicalExam]),
		DiagnosticHypothesis:    utils.ToSQLStr(res.Fields[aiapi.FldDiagnosticHypothesis]),
		TreatmentPlan:           utils.ToSQLStr(res.Fields[aiapi.FldTreatmentPlan]),
		Prescription:            utils.ToSQLStr(res.Fields[aiapi.FldPrescription]),
		Referrals:               utils.ToSQLStr(res.Fields[aiapi.FldReferrals]),
		OriginalTranscription:   utils.ToSQLStr(res.Text),
	}
	return data.DB.InsertMedicalRecord(ctx, rec)
}

func finalizeCompleted(ctx context.Context, taskID string, res *ai.Result, recordID *int64, data *ServiceData) error {
	result := persistence.TaskResult{OriginalText: res.Text, Structured: res.Fields, MedicalRecordID: recordID}
	bts, err := json.Marshal(&result)
	if err != nil {
		return finalizeFailed(ctx, taskID, fmt.Errorf("can't marshal result: %w", err), data)
	}
	ok, err := data.DB.UpdateTaskStatus(ctx, &persistence.TaskUpdate{TaskID: taskID,
		Status: status.Completed.String(), ResultData: string(bts), MedicalRecordID: recordID})
	if err != nil {
		goapp.Log.Error().Err(err).Str("taskID", taskID).Msg("can't mark task completed")
		return nil
	}
	if !ok {
		goapp.Log.Warn().Str("taskID", taskID).Msg("task missing or finished - skip")
		return nil
	}
	goapp.Log.Info().Str("taskID", taskID).Msg("task completed")
	sendTaskEvents(ctx, taskID, amessages.InformTypeFinished, data)
	return nil
}

func finalizeFailed(ctx context.Context, taskID string, taskErr error, data *ServiceData) error {
	var extErr *aiapi.ExtractionError
	if errors.As(taskErr, &extErr) {
		goapp.Log.Error().Str("taskID", taskID).Str("output", goapp.Sanitize(extErr.Output)).Msg("raw model output")
	}
	ok, err := data.DB.UpdateTaskStatus(ctx, &persistence.TaskUpdate{TaskID: taskID,
		Status: status.Failed.String(), ErrorMessage: taskErr.Error()})
	if err != nil {
		goapp.Log.Error().Err(err).Str("taskID", taskID).Msg("can't mark task failed")
		return nil
	}
	if !ok {
		goapp.Log.Warn().Str("taskID", taskID).Msg("task missing or finished - skip")
		return nil
	}
	goapp.Log.Info().Str("taskID", taskID).Msg("task failed")
	sendTaskEvents(ctx, taskID, amessages.InformTypeFailed, data)
	return nil
}

// sendTaskEvents publishes status change and inform events.
// Failures are logged only - events must not undo an already committed transition
func sendTaskEvents(ctx context.Context, taskID, informType string, data *ServiceData) {
	if err := data.MsgSender.SendMessage(ctx, &messages.TaskMessage{TaskID: taskID},
		messages.StatusChange); err != nil {
		goapp.Log.Error().Err(err).Str("taskID", taskID).Msg("can't send status change msg")
	}
	if err := data.MsgSender.SendMessage(ctx, &amessages.InformMessage{
		QueueMessage: amessages.QueueMessage{ID: taskID},
		Type:         informType, At: time.Now()}, messages.Inform); err != nil {
		goapp.Log.Error().Err(err).Str("taskID", taskID).Msg("can't send inform msg")
	}
}

func validate(data *ServiceData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.MsgSender == nil {
		return fmt.Errorf("no msg sender")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.Workflow == nil {
		return fmt.Errorf("no Workflow")
	}
	return nil
}
