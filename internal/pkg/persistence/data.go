package persistence

import (
	"database/sql"
	"time"
)

type (

	// Task table - one row per asynchronous transcription work unit
	Task struct {
		TaskID          string
		TaskType        string
		Status          string
		InputData       sql.NullString
		ResultData      sql.NullString
		ErrorMessage    sql.NullString
		PatientID       sql.NullInt64
		MedicalRecordID sql.NullInt64
		Created         time.Time
		Updated         time.Time
		StartedAt       sql.NullTime
		CompletedAt     sql.NullTime
	}

	// TaskInput is the input descriptor kept in the task row.
	// Raw audio bytes never enter the store, only the queue payload
	TaskInput struct {
		FileName  string `json:"file_name"`
		FileSize  int64  `json:"file_size"`
		ObjectRef string `json:"object_ref,omitempty"`
		Email     string `json:"email,omitempty"`
	}

	// TaskResult is the result payload of a completed task
	TaskResult struct {
		OriginalText    string            `json:"original_text"`
		Structured      map[string]string `json:"structured"`
		MedicalRecordID *int64            `json:"medical_record_id"`
	}

	// TaskUpdate carries one status transition for a task
	TaskUpdate struct {
		TaskID          string
		Status          string
		ResultData      string
		ErrorMessage    string
		MedicalRecordID *int64
	}

	// Patient table
	Patient struct {
		ID         int64
		Name       string
		CPFHash    string
		CPFDisplay sql.NullString
		Email      sql.NullString
		BirthDate  time.Time
		DoctorID   int64
		Created    time.Time
		Updated    sql.NullTime
	}

	// MedicalRecord table - structured clinical fields plus raw transcript
	MedicalRecord struct {
		ID                      int64
		PatientID               int64
		ChiefComplaint          sql.NullString
		HistoryOfPresentIllness sql.NullString
		PriorConditions         sql.NullString
		PhysicalExam            sql.NullString
		DiagnosticHypothesis    sql.NullString
		TreatmentPlan           sql.NullString
		Prescription            sql.NullString
		Referrals               sql.NullString
		OriginalTranscription   sql.NullString
		Created                 time.Time
		Updated                 sql.NullTime
	}

	// User table - a doctor account
	User struct {
		ID             int64
		Username       string
		Email          sql.NullString
		HashedPassword string
		Created        time.Time
	}
)
