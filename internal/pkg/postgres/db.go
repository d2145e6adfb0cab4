package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clinika/scribe/internal/pkg/persistence"
	"github.com/clinika/scribe/internal/pkg/status"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoRecord indicates the requested row does not exist
var ErrNoRecord = errors.New("no record")

// DB provides operations with postgresql
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates DB instance
func NewDB(pool *pgxpool.Pool) (*DB, error) {
	res := &DB{pool: pool}
	return res, nil
}

// InsertTask inserts a new task row with PENDING status
func (db *DB) InsertTask(ctx context.Context, task *persistence.Task) error {
	rows, err := db.pool.Query(ctx, `INSERT INTO tasks(task_id, task_type, status, input_data, patient_id, created, updated)
	VALUES($1, $2, $3, $4, $5, $6, $6)`, task.TaskID, task.TaskType, status.Pending.String(),
		task.InputData, task.PatientID, time.Now())
	if err != nil {
		return fmt.Errorf("can't insert task: %w", err)
	}
	defer rows.Close()
	return nil
}

// LoadTask loads task from DB, returns ErrNoRecord if absent
func (db *DB) LoadTask(ctx context.Context, taskID string) (*persistence.Task, error) {
	var res persistence.Task
	err := db.pool.QueryRow(ctx, `SELECT task_id, task_type, status, input_data, result_data, error_message,
	patient_id, medical_record_id, created, updated, started_at, completed_at FROM tasks
		WHERE task_id = $1`, taskID).Scan(&res.TaskID, &res.TaskType, &res.Status, &res.InputData,
		&res.ResultData, &res.ErrorMessage, &res.PatientID, &res.MedicalRecordID,
		&res.Created, &res.Updated, &res.StartedAt, &res.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNoRecord
		}
		return nil, fmt.Errorf("can't load task: %w", err)
	}
	return &res, nil
}

// UpdateTaskStatus moves the task along its lifecycle.
// PROCESSING stamps started_at, a terminal status stamps completed_at.
// Returns false (no error) when the task is missing or already terminal -
// a terminal row is never overwritten
func (db *DB) UpdateTaskStatus(ctx context.Context, upd *persistence.TaskUpdate) (bool, error) {
	now := time.Now()
	tag, err := db.pool.Exec(ctx, `UPDATE tasks SET
	status = $2,
	result_data = COALESCE(NULLIF($3, ''), result_data),
	error_message = COALESCE(NULLIF($4, ''), error_message),
	medical_record_id = COALESCE($5, medical_record_id),
	started_at = CASE WHEN $2 = 'PROCESSING' THEN $6 ELSE started_at END,
	completed_at = CASE WHEN $2 IN ('COMPLETED', 'FAILED') THEN $6 ELSE completed_at END,
	updated = $6
	WHERE task_id = $1 AND status NOT IN ('COMPLETED', 'FAILED')`,
		upd.TaskID, upd.Status, upd.ResultData, upd.ErrorMessage, upd.MedicalRecordID, now)
	if err != nil {
		return false, fmt.Errorf("can't update task status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// InsertMedicalRecord inserts record and returns its assigned id
func (db *DB) InsertMedicalRecord(ctx context.Context, rec *persistence.MedicalRecord) (int64, error) {
	var id int64
	err := db.pool.QueryRow(ctx, `INSERT INTO medical_records(patient_id, chief_complaint, history_of_present_illness,
	prior_conditions, physical_exam, diagnostic_hypothesis, treatment_plan, prescription, referrals,
	original_transcription, created)
	VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		rec.PatientID, rec.ChiefComplaint, rec.HistoryOfPresentIllness, rec.PriorConditions,
		rec.PhysicalExam, rec.DiagnosticHypothesis, rec.TreatmentPlan, rec.Prescription,
		rec.Referrals, rec.OriginalTranscription, time.Now()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("can't insert medical record: %w", err)
	}
	return id, nil
}

// LoadMedicalRecord loads one record
func (db *DB) LoadMedicalRecord(ctx context.Context, id int64) (*persistence.MedicalRecord, error) {
	var res persistence.MedicalRecord
	err := db.pool.QueryRow(ctx, `SELECT id, patient_id, chief_complaint, history_of_present_illness,
	prior_conditions, physical_exam, diagnostic_hypothesis, treatment_plan, prescription, referrals,
	original_transcription, created, updated FROM medical_records WHERE id = $1`, id).
		Scan(&res.ID, &res.PatientID, &res.ChiefComplaint, &res.HistoryOfPresentIllness,
			&res.PriorConditions, &res.PhysicalExam, &res.DiagnosticHypothesis, &res.TreatmentPlan,
			&res.Prescription, &res.Referrals, &res.OriginalTranscription, &res.Created, &res.Updated)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNoRecord
		}
		return nil, fmt.Errorf("can't load medical record: %w", err)
	}
	return &res, nil
}

// LoadPatientRecords loads records of one patient, newest first
func (db *DB) LoadPatientRecords(ctx context.Context, patientID int64) ([]*persistence.MedicalRecord, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, patient_id, chief_complaint, history_of_present_illness,
	prior_conditions, physical_exam, diagnostic_hypothesis, treatment_plan, prescription, referrals,
	original_transcription, created, updated FROM medical_records WHERE patient_id = $1 ORDER BY created DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("can't load medical records: %w", err)
	}
	defer rows.Close()
	var res []*persistence.MedicalRecord
	for rows.Next() {
		var r persistence.MedicalRecord
		if err := rows.Scan(&r.ID, &r.PatientID, &r.ChiefComplaint, &r.HistoryOfPresentIllness,
			&r.PriorConditions, &r.PhysicalExam, &r.DiagnosticHypothesis, &r.TreatmentPlan,
			&r.Prescription, &r.Referrals, &r.OriginalTranscription, &r.Created, &r.Updated); err != nil {
			return nil, fmt.Errorf("can't scan medical record: %w", err)
		}
		res = append(res, &r)
	}
	return res, rows.Err()
}

// UpdateMedicalRecord updates the structured fields of a record
func (db *DB) UpdateMedicalRecord(ctx context.Context, rec *persistence.MedicalRecord) error {
	tag, err := db.pool.Exec(ctx, `UPDATE medical_records SET
	chief_complaint = $2, history_of_present_illness = $3, prior_conditions = $4,
	physical_exam = $5, diagnostic_hypothesis = $6, treatment_plan = $7,
	prescription = $8, referrals = $9, updated = $10
	WHERE id = $1`, rec.ID, rec.ChiefComplaint, rec.HistoryOfPresentIllness, rec.PriorConditions,
		rec.PhysicalExam, rec.DiagnosticHypothesis, rec.TreatmentPlan, rec.Prescription,
		rec.Referrals, time.Now())
	if err != nil {
		return fmt.Errorf("can't update medical record: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return ErrNoRecord
	}
	return nil
}

// DeleteMedicalRecord drops one record
func (db *DB) DeleteMedicalRecord(ctx context.Context, id int64) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM medical_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("can't delete medical record: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return ErrNoRecord
	}
	return nil
}

// InsertPatient inserts patient and returns its assigned id
func (db *DB) InsertPatient(ctx context.Context, p *persistence.Patient) (int64, error) {
	var id int64
	err := db.pool.QueryRow(ctx, `INSERT INTO patients(name, cpf_hash, cpf_display, email, birth_date, doctor_id, created)
	VALUES($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		p.Name, p.CPFHash, p.CPFDisplay, p.Email, p.BirthDate, p.DoctorID, time.Now()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("can't insert patient: %w", err)
	}
	return id, nil
}

// LoadPatient loads patient by id scoped to doctor
func (db *DB) LoadPatient(ctx context.Context, id, doctorID int64) (*persistence.Patient, error) {
	return db.loadPatient(ctx, `SELECT id, name, cpf_hash, cpf_display, email, birth_date, doctor_id, created, updated
	FROM patients WHERE id = $1 AND doctor_id = $2`, id, doctorID)
}

// LoadPatientByCPFHash loads patient by hashed CPF scoped to doctor
func (db *DB) LoadPatientByCPFHash(ctx context.Context, cpfHash string, doctorID int64) (*persistence.Patient, error) {
	return db.loadPatient(ctx, `SELECT id, name, cpf_hash, cpf_display, email, birth_date, doctor_id, created, updated
	FROM patients WHERE cpf_hash = $1 AND doctor_id = $2`, cpfHash, doctorID)
}

func (db *DB) loadPatient(ctx context.Context, sql string, args ...interface{}) (*persistence.Patient, error) {
	var res persistence.Patient
	err := db.pool.QueryRow(ctx, sql, args...).Scan(&res.ID, &res.Name, &res.CPFHash, &res.CPFDisplay,
		&res.Email, &res.BirthDate, &res.DoctorID, &res.Created, &res.Updated)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNoRecord
		}
		return nil, fmt.Errorf("can't load patient: %w", err)
	}
	return &res, nil
}

// LoadPatients loads doctor's patients page ordered by name
func (db *DB) LoadPatients(ctx context.Context, doctorID int64, skip, limit int) ([]*persistence.Patient, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, name, cpf_hash, cpf_display, email, birth_date, doctor_id, created, updated
	FROM patients WHERE doctor_id = $1 ORDER BY name OFFSET $2 LIMIT $3`, doctorID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("can't load patients: %w", err)
	}
	defer rows.Close()
	var res []*persistence.Patient
	for rows.Next() {
		var p persistence.Patient
		if err := rows.Scan(&p.ID, &p.Name, &p.CPFHash, &p.CPFDisplay, &p.Email, &p.BirthDate,
			&p.DoctorID, &p.Created, &p.Updated); err != nil {
			return nil, fmt.Errorf("can't scan patient: %w", err)
		}
		res = append(res, &p)
	}
	return res, rows.Err()
}

// UpdatePatient updates patient data
func (db *DB) UpdatePatient(ctx context.Context, p *persistence.Patient) error {
	tag, err := db.pool.Exec(ctx, `UPDATE patients SET
	name = $3, cpf_hash = $4, cpf_display = $5, email = $6, birth_date = $7, updated = $8
	WHERE id = $1 AND doctor_id = $2`, p.ID, p.DoctorID, p.Name, p.CPFHash, p.CPFDisplay,
		p.Email, p.BirthDate, time.Now())
	if err != nil {
		return fmt.Errorf("can't update patient: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return ErrNoRecord
	}
	return nil
}

// DeletePatient drops the patient and its records
func (db *DB) DeletePatient(ctx context.Context, id, doctorID int64) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM patients WHERE id = $1 AND doctor_id = $2`, id, doctorID)
	if err != nil {
		return fmt.Errorf("can't delete patient: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return ErrNoRecord
	}
	return nil
}

// InsertUser inserts user and returns its assigned id
func (db *DB) InsertUser(ctx context.Context, u *persistence.User) (int64, error) {
	var id int64
	err := db.pool.QueryRow(ctx, `INSERT INTO users(username, email, hashed_password, created)
	VALUES($1, $2, $3, $4) RETURNING id`, u.Username, u.Email, u.HashedPassword, time.Now()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("can't insert user: %w", err)
	}
	return id, nil
}

// LoadUser loads user by username
func (db *DB) LoadUser(ctx context.Context, username string) (*persistence.User, error) {
	var res persistence.User
	err := db.pool.QueryRow(ctx, `SELECT id, username, email, hashed_password, created FROM users
		WHERE username = $1`, username).Scan(&res.ID, &res.Username, &res.Email, &res.HashedPassword, &res.Created)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNoRecord
		}
		return nil, fmt.Errorf("can't load user: %w", err)
	}
	return &res, nil
}

// LoadUserByID loads user by id
func (db *DB) LoadUserByID(ctx context.Context, id int64) (*persistence.User, error) {
	var res persistence.User
	err := db.pool.QueryRow(ctx, `SELECT id, username, email, hashed_password, created FROM users
		WHERE id = $1`, id).Scan(&res.ID, &res.Username, &res.Email, &res.HashedPassword, &res.Created)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNoRecord
		}
		return nil, fmt.Errorf("can't load user: %w", err)
	}
	return &res, nil
}

// LockEmailTable marks the inform event as being sent.
// Fails if another worker already took it, so one event produces at most one email
func (db *DB) LockEmailTable(ctx context.Context, taskID, msgType string) error {
	tag, err := db.pool.Exec(ctx, `INSERT INTO email_lock(task_id, msg_type, status) VALUES($1, $2, 1)
	ON CONFLICT (task_id, msg_type) DO UPDATE SET status = 1 WHERE email_lock.status = 0`,
		taskID, msgType)
	if err != nil {
		return fmt.Errorf("can't lock email table: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("email already sent or sending for %s/%s", taskID, msgType)
	}
	return nil
}

// UnLockEmailTable releases the inform event lock.
// value 2 marks the email as sent, 0 allows a retry
func (db *DB) UnLockEmailTable(ctx context.Context, taskID, msgType string, value *int) error {
	_, err := db.pool.Exec(ctx, `UPDATE email_lock SET status = $3 WHERE task_id = $1 AND msg_type = $2`,
		taskID, msgType, value)
	if err != nil {
		return fmt.Errorf("can't unlock email table: %w", err)
	}
	return nil
}

// Live returns no error if db is reachable and initialized
func (db *DB) Live(ctx context.Context) error {
	var exists bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT FROM pg_tables WHERE tablename = 'gue_jobs')`).Scan(&exists); err != nil {
		return fmt.Errorf("can't check table: %w", err)
	}
	if !exists {
		return fmt.Errorf("no migration done")
	}
	return nil
}
