package messages

import (
	"encoding/hex"
	"fmt"
)

const (
	st = "SCRIBE/"
	// Transcription queue name
	Transcription = st + "Transcription"
	// StatusChange queue name
	StatusChange = st + "StatusChange"
	// Inform queue name
	Inform = st + "Inform"
)

// TranscriptionMessage is the self-contained payload between producer and worker.
// Audio bytes are inlined hex-encoded so the message is fully reconstructible
// from its serialized form
type TranscriptionMessage struct {
	TaskID      string `json:"task_id"`
	FileName    string `json:"file_name"`
	FileContent string `json:"file_content"`
	PatientID   *int64 `json:"patient_id"`
}

// NewTranscriptionMessage packs file bytes into the wire form
func NewTranscriptionMessage(taskID, fileName string, content []byte, patientID *int64) *TranscriptionMessage {
	return &TranscriptionMessage{TaskID: taskID, FileName: fileName,
		FileContent: hex.EncodeToString(content), PatientID: patientID}
}

// Content decodes the inlined audio bytes
func (m *TranscriptionMessage) Content() ([]byte, error) {
	res, err := hex.DecodeString(m.FileContent)
	if err != nil {
		return nil, fmt.Errorf("can't decode file content: %w", err)
	}
	return res, nil
}

// TaskMessage signals a task status change event
type TaskMessage struct {
	TaskID string `json:"task_id"`
}
