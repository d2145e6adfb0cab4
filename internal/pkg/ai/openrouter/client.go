package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/cenkalti/backoff/v4"

	"github.com/clinika/scribe/internal/pkg/ai/api"
	"github.com/clinika/scribe/internal/pkg/utils"
)

// Config keeps startup parameters for the client
type Config struct {
	URL         string
	Key         string
	Model       string
	Temperature float64
}

// Client calls the openrouter chat API. Text structuring only, no speech model
type Client struct {
	httpclient *http.Client
	cfg        Config
	timeout    time.Duration
	backoff    func() backoff.BackOff
}

// NewClient creates an openrouter provider client
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("no URL")
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("no API key")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("no model")
	}
	res := Client{cfg: cfg}
	res.httpclient = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
	res.timeout = time.Second * 50
	res.backoff = newSimpleBackoff
	return &res, nil
}

// Name returns provider identity
func (c *Client) Name() string {
	return api.ProviderOpenRouter
}

// Transcribe is not supported, the provider has no speech model
func (c *Client) Transcribe(ctx context.Context, audio *api.AudioData) (string, error) {
	return "", api.ErrTranscriptionUnavailable
}

// Structure runs the extraction prompt through the chat model
func (c *Client) Structure(ctx context.Context, text string) (map[string]string, error) {
	out, err := c.complete(ctx, api.ExtractionPrompt(text))
	if err != nil {
		return nil, fmt.Errorf("can't invoke chat model: %w", err)
	}
	res, err := utils.ExtractJSONObject(out)
	if err != nil {
		return nil, api.NewExtractionError(out, err)
	}
	return res, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	reqData := chatRequest{Model: c.cfg.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}}, Temperature: c.cfg.Temperature}
	bts, err := json.Marshal(reqData)
	if err != nil {
		return "", fmt.Errorf("can't marshal request: %w", err)
	}

	return goapp.InvokeWithBackoff(ctx, func() (string, bool, error) {
		ctx, cancelF := context.WithTimeout(ctx, c.timeout)
		defer cancelF()
		req, err := http.NewRequest(http.MethodPost, c.cfg.URL+"/chat/completions", bytes.NewReader(bts))
		if err != nil {
			return "", false, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.Key)
		req = req.WithContext(ctx)
		goapp.Log.Info().Str("url", req.URL.String()).Str("method", req.Method).Msg("call")
		resp, err := c.httpclient.Do(req)
		if err != nil {
			return "", goapp.IsRetryableErr(err), fmt.Errorf("can't call: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
			_ = resp.Body.Close()
		}()
		if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
			err = fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
			return "", goapp.IsRetryableCode(resp.StatusCode), err
		}
		var respData chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
			return "", goapp.IsRetryableErr(err), fmt.Errorf("can't unmarshal: %w", err)
		}
		if len(respData.Choices) == 0 {
			return "", false, fmt.Errorf("no choices in response")
		}
		return respData.Choices[0].Message.Content, false, nil
	}, c.backoff())
}

func newSimpleBackoff() backoff.BackOff {
	res := backoff.NewExponentialBackOff()
	return backoff.WithMaxRetries(res, 3)
}
