package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/clinika/scribe/internal/pkg/ai/api"
)

// Workflow composes the two-stage pipeline: audio to text, text to structured fields.
// The provider split is fixed at startup, never re-resolved per call
type Workflow struct {
	transcriber api.Provider
	structurer  api.Provider
}

// Result of a pipeline run. Empty Text with empty Fields is a valid outcome
type Result struct {
	Text   string
	Fields map[string]string
}

// NewWorkflow selects the stage providers for the configured provider name.
// Audio transcription always runs on the speech-capable provider,
// structuring on the selected one
func NewWorkflow(provider string, groq, openRouter api.Provider) (*Workflow, error) {
	switch provider {
	case api.ProviderGroq:
		if groq == nil {
			return nil, fmt.Errorf("no groq provider")
		}
		return &Workflow{transcriber: groq, structurer: groq}, nil
	case api.ProviderOpenRouter:
		if groq == nil {
			return nil, fmt.Errorf("no groq provider")
		}
		if openRouter == nil {
			return nil, fmt.Errorf("no openrouter provider")
		}
		return &Workflow{transcriber: groq, structurer: openRouter}, nil
	}
	return nil, fmt.Errorf("unknown provider '%s'", provider)
}

// Run transcribes audio and structures the transcript.
// Transcription failure aborts the run before the structuring stage
func (w *Workflow) Run(ctx context.Context, audio *api.AudioData) (*Result, error) {
	if w.transcriber == nil || w.structurer == nil {
		// NewWorkflow never builds a half-wired instance
		return &Result{Fields: map[string]string{}}, nil
	}
	goapp.Log.Info().Str("provider", w.transcriber.Name()).Str("file", audio.Name).Msg("transcribe")
	text, err := w.transcriber.Transcribe(ctx, audio)
	if err != nil {
		return nil, fmt.Errorf("can't transcribe: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		goapp.Log.Warn().Str("file", audio.Name).Msg("empty transcript")
		return &Result{Text: text, Fields: map[string]string{}}, nil
	}
	goapp.Log.Info().Str("provider", w.structurer.Name()).Msg("structure")
	fields, err := w.structurer.Structure(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("can't structure: %w", err)
	}
	return &Result{Text: text, Fields: fields}, nil
}
