package api

import (
	"context"
	"errors"
	"fmt"
)

// Provider names, selected once at startup from configuration
const (
	ProviderGroq       = "groq"
	ProviderOpenRouter = "openrouter"
)

// Structured clinical field keys produced by the extraction stage
const (
	FldChiefComplaint          = "chief_complaint"
	FldHistoryOfPresentIllness = "history_of_present_illness"
	FldPriorConditions         = "prior_conditions"
	FldPhysicalExam            = "physical_exam"
	FldDiagnosticHypothesis    = "diagnostic_hypothesis"
	FldTreatmentPlan           = "treatment_plan"
	FldPrescription            = "prescription"
	FldReferrals               = "referrals"
)

// StructuredFields lists all clinical field keys in record order
var StructuredFields = []string{FldChiefComplaint, FldHistoryOfPresentIllness, FldPriorConditions,
	FldPhysicalExam, FldDiagnosticHypothesis, FldTreatmentPlan, FldPrescription, FldReferrals}

// AudioData is input for the transcription stage
type AudioData struct {
	Name    string
	Content []byte
}

// Provider is an interchangeable AI backend
type Provider interface {
	// Transcribe converts audio to text.
	// Returns ErrTranscriptionUnavailable if the provider has no speech model
	Transcribe(ctx context.Context, audio *AudioData) (string, error)
	// Structure converts transcript text to the structured clinical fields map
	Structure(ctx context.Context, text string) (map[string]string, error)
	Name() string
}

// ErrTranscriptionUnavailable indicates the provider does not support audio input
var ErrTranscriptionUnavailable = errors.New("transcription not supported by provider")

// ExtractionError indicates no well-formed JSON object was found in model output.
// Raw output is kept for logs only, never for user-visible messages
type ExtractionError struct {
	Output string
	err    error
}

// NewExtractionError creates the error keeping raw model output
func NewExtractionError(output string, err error) *ExtractionError {
	return &ExtractionError{Output: output, err: err}
}

func (e *ExtractionError) Error() string {
	return "can't extract structured fields: " + e.err.Error()
}

func (e *ExtractionError) Unwrap() error {
	return e.err
}

const extractPrompt = `From the medical consultation text below, extract and organize the information into the following JSON format:
{
    "chief_complaint": "...",
    "history_of_present_illness": "...",
    "prior_conditions": "...",
    "physical_exam": "...",
    "diagnostic_hypothesis": "...",
    "treatment_plan": "...",
    "prescription": "...",
    "referrals": "..."
}

Text:
"""
%s
"""
Return only the JSON.`

// ExtractionPrompt builds the structuring prompt for a transcript
func ExtractionPrompt(transcript string) string {
	return fmt.Sprintf(extractPrompt, transcript)
}
