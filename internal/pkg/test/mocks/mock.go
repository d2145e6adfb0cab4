package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/clinika/scribe/internal/pkg/ai"
	"github.com/clinika/scribe/internal/pkg/ai/api"
	"github.com/clinika/scribe/internal/pkg/persistence"
)

// Filer is minio mock
type Filer struct{ mock.Mock }

func (m *Filer) SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64) error {
	args := m.Called(ctx, name, r, fileSize)
	return args.Error(0)
}

// LoadFile func mock
func (m *Filer) LoadFile(ctx context.Context, fileName string) (io.ReadSeekCloser, error) {
	args := m.Called(ctx, fileName)
	return To[io.ReadSeekCloser](args.Get(0)), args.Error(1)
}

// DB is postgres DB mock
type DB struct{ mock.Mock }

func (m *DB) InsertTask(ctx context.Context, task *persistence.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *DB) LoadTask(ctx context.Context, taskID string) (*persistence.Task, error) {
	args := m.Called(ctx, taskID)
	return To[*persistence.Task](args.Get(0)), args.Error(1)
}

func (m *DB) UpdateTaskStatus(ctx context.Context, upd *persistence.TaskUpdate) (bool, error) {
	args := m.Called(ctx, upd)
	return args.Bool(0), args.Error(1)
}

func (m *DB) InsertMedicalRecord(ctx context.Context, rec *persistence.MedicalRecord) (int64, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(int64), args.Error(1)
}

func (m *DB) LoadMedicalRecord(ctx context.Context, id int64) (*persistence.MedicalRecord, error) {
	args := m.Called(ctx, id)
	return To[*persistence.MedicalRecord](args.Get(0)), args.Error(1)
}

func (m *DB) LoadPatientRecords(ctx context.Context, patientID int64) ([]*persistence.MedicalRecord, error) {
	args := m.Called(ctx, patientID)
	return To[[]*persistence.MedicalRecord](args.Get(0)), args.Error(1)
}

func (m *DB) UpdateMedicalRecord(ctx context.Context, rec *persistence.MedicalRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *DB) DeleteMedicalRecord(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *DB) InsertPatient(ctx context.Context, p *persistence.Patient) (int64, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(int64), args.Error(1)
}

func (m *DB) LoadPatient(ctx context.Context, id, doctorID int64) (*persistence.Patient, error) {
	args := m.Called(ctx, id, doctorID)
	return To[*persistence.Patient](args.Get(0)), args.Error(1)
}

func (m *DB) LoadPatientByCPFHash(ctx context.Context, cpfHash string, doctorID int64) (*persistence.Patient, error) {
	args := m.Called(ctx, cpfHash, doctorID)
	return To[*persistence.Patient](args.Get(0)), args.Error(1)
}

func (m *DB) LoadPatients(ctx context.Context, doctorID int64, skip, limit int) ([]*persistence.Patient, error) {
	args := m.Called(ctx, doctorID, skip, limit)
	return To[[]*persistence.Patient](args.Get(0)), args.Error(1)
}

func (m *DB) UpdatePatient(ctx context.Context, p *persistence.Patient) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *DB) DeletePatient(ctx context.Context, id, doctorID int64) error {
	args := m.Called(ctx, id, doctorID)
	return args.Error(0)
}

func (m *DB) InsertUser(ctx context.Context, u *persistence.User) (int64, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(int64), args.Error(1)
}

func (m *DB) LoadUser(ctx context.Context, username string) (*persistence.User, error) {
	args := m.Called(ctx, username)
	return To[*persistence.User](args.Get(0)), args.Error(1)
}

func (m *DB) LoadUserByID(ctx context.Context, id int64) (*persistence.User, error) {
	args := m.Called(ctx, id)
	return To[*persistence.User](args.Get(0)), args.Error(1)
}

func (m *DB) LockEmailTable(ctx context.Context, taskID, msgType string) error {
	args := m.Called(ctx, taskID, msgType)
	return args.Error(0)
}

func (m *DB) UnLockEmailTable(ctx context.Context, taskID, msgType string, value *int) error {
	args := m.Called(ctx, taskID, msgType, value)
	return args.Error(0)
}

// Sender is postgres queue mock
type Sender struct{ mock.Mock }

func (m *Sender) SendMessage(ctx context.Context, msg interface{}, queue string) error {
	args := m.Called(ctx, msg, queue)
	return args.Error(0)
}

// Provider is AI provider mock
type Provider struct{ mock.Mock }

func (m *Provider) Transcribe(ctx context.Context, audio *api.AudioData) (string, error) {
	args := m.Called(ctx, audio)
	return args.String(0), args.Error(1)
}

func (m *Provider) Structure(ctx context.Context, text string) (map[string]string, error) {
	args := m.Called(ctx, text)
	return To[map[string]string](args.Get(0)), args.Error(1)
}

func (m *Provider) Name() string {
	args := m.Called()
	return args.String(0)
}

// Workflow is AI pipeline mock
type Workflow struct{ mock.Mock }

func (m *Workflow) Run(ctx context.Context, audio *api.AudioData) (*ai.Result, error) {
	args := m.Called(ctx, audio)
	return To[*ai.Result](args.Get(0)), args.Error(1)
}

func To[T interface{}](val interface{}) T {
	if val == nil {
		var res T
		return res
	}
	return val.(T)
}
