package ai

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/clinika/scribe/internal/pkg/ai/api"
)

var (
	groqMock       *mockProvider
	openRouterMock *mockProvider
)

func initTest(t *testing.T) {
	groqMock = &mockProvider{}
	openRouterMock = &mockProvider{}
	groqMock.On("Name").Return(api.ProviderGroq)
	groqMock.On("Transcribe", mock.Anything, mock.Anything).Return("olia text", nil)
	groqMock.On("Structure", mock.Anything, mock.Anything).Return(
		map[string]string{api.FldChiefComplaint: "headache"}, nil)
	openRouterMock.On("Name").Return(api.ProviderOpenRouter)
	openRouterMock.On("Transcribe", mock.Anything, mock.Anything).Return("", api.ErrTranscriptionUnavailable)
	openRouterMock.On("Structure", mock.Anything, mock.Anything).Return(
		map[string]string{api.FldChiefComplaint: "headache"}, nil)
}

func testAudio() *api.AudioData {
	return &api.AudioData{Name: "olia.mp3", Content: []byte("audio data")}
}

func TestRun(t *testing.T) {
	initTest(t)
	w, err := NewWorkflow(api.ProviderGroq, groqMock, nil)
	require.Nil(t, err)

	res, err := w.Run(context.Background(), testAudio())

	require.Nil(t, err)
	assert.Equal(t, "olia text", res.Text)
	assert.Equal(t, "headache", res.Fields[api.FldChiefComplaint])
	sc := findCall(t, groqMock, "Structure")
	require.NotNil(t, sc)
	assert.Equal(t, "olia text", sc.Arguments[1])
}

func TestRun_SplitProviders(t *testing.T) {
	initTest(t)
	w, err := NewWorkflow(api.ProviderOpenRouter, groqMock, openRouterMock)
	require.Nil(t, err)

	res, err := w.Run(context.Background(), testAudio())

	require.Nil(t, err)
	assert.Equal(t, "olia text", res.Text)
	assert.Equal(t, "headache", res.Fields[api.FldChiefComplaint])
	assert.NotNil(t, findCall(t, groqMock, "Transcribe"))
	assert.NotNil(t, findCall(t, openRouterMock, "Structure"))
	for _, c := range groqMock.Calls {
		assert.NotEqual(t, "Structure", c.Method)
	}
}

func TestRun_TranscribeFails(t *testing.T) {
	initTest(t)
	groqMock.ExpectedCalls = nil
	groqMock.On("Name").Return(api.ProviderGroq)
	groqMock.On("Transcribe", mock.Anything, mock.Anything).Return("", fmt.Errorf("olia err"))
	w, err := NewWorkflow(api.ProviderGroq, groqMock, nil)
	require.Nil(t, err)

	res, err := w.Run(context.Background(), testAudio())

	assert.NotNil(t, err)
	assert.Nil(t, res)
	for _, c := range groqMock.Calls {
		assert.NotEqual(t, "Structure", c.Method)
	}
}

func TestRun_EmptyTranscript(t *testing.T) {
	initTest(t)
	groqMock.ExpectedCalls = nil
	groqMock.On("Name").Return(api.ProviderGroq)
	groqMock.On("Transcribe", mock.Anything, mock.Anything).Return("  ", nil)
	w, err := NewWorkflow(api.ProviderGroq, groqMock, nil)
	require.Nil(t, err)

	res, err := w.Run(context.Background(), testAudio())

	require.Nil(t, err)
	assert.Equal(t, "  ", res.Text)
	require.NotNil(t, res.Fields)
	assert.Equal(t, 0, len(res.Fields))
	for _, c := range groqMock.Calls {
		assert.NotEqual(t, "Structure", c.Method)
	}
}

func TestRun_StructureFails(t *testing.T) {
	initTest(t)
	groqMock.ExpectedCalls = nil
	groqMock.On("Name").Return(api.ProviderGroq)
	groqMock.On("Transcribe", mock.Anything, mock.Anything).Return("olia text", nil)
	groqMock.On("Structure", mock.Anything, mock.Anything).Return(nil,
		api.NewExtractionError("no json here", fmt.Errorf("no JSON object in text")))
	w, err := NewWorkflow(api.ProviderGroq, groqMock, nil)
	require.Nil(t, err)

	res, err := w.Run(context.Background(), testAudio())

	assert.NotNil(t, err)
	assert.Nil(t, res)
}

func TestNewWorkflow(t *testing.T) {
	initTest(t)
	type args struct {
		provider   string
		groq       api.Provider
		openRouter api.Provider
	}
	tests := []struct {
		name    string
		args    args
		wantErr bool
	}{
		{name: "Groq", args: args{provider: api.ProviderGroq, groq: groqMock}, wantErr: false},
		{name: "OpenRouter pair", args: args{provider: api.ProviderOpenRouter, groq: groqMock,
			openRouter: openRouterMock}, wantErr: false},
		{name: "Fail no groq", args: args{provider: api.ProviderGroq}, wantErr: true},
		{name: "Fail openrouter without groq", args: args{provider: api.ProviderOpenRouter,
			openRouter: openRouterMock}, wantErr: true},
		{name: "Fail openrouter without openrouter", args: args{provider: api.ProviderOpenRouter,
			groq: groqMock}, wantErr: true},
		{name: "Fail unknown", args: args{provider: "olia", groq: groqMock,
			openRouter: openRouterMock}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewWorkflow(tt.args.provider, tt.args.groq, tt.args.openRouter)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewWorkflow() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got == nil {
				t.Errorf("NewWorkflow() = nil, want object")
			}
		})
	}
}

func findCall(t *testing.T, m *mockProvider, method string) *mock.Call {
	t.Helper()
	for i := range m.Calls {
		if m.Calls[i].Method == method {
			return &m.Calls[i]
		}
	}
	return nil
}

type mockProvider struct{ mock.Mock }

func (m *mockProvider) Transcribe(ctx context.Context, audio *api.AudioData) (string, error) {
	args := m.Called(ctx, audio)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) Structure(ctx context.Context, text string) (map[string]string, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *mockProvider) Name() string {
	args := m.Called()
	return args.String(0)
}
