package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpSynth talks to a remote synthesis API. The API accepts annotated text
// plus voice settings and answers with raw 16-bit PCM at the requested
// format. Error classification follows the response status code.
type httpSynth struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

type httpVoiceSettings struct {
	Stability    float64 `json:"stability"`
	Similarity   float64 `json:"similarity_boost"`
	Style        float64 `json:"style"`
	SpeakerBoost bool    `json:"use_speaker_boost"`
}

type httpRequest struct {
	Text          string            `json:"text"`
	ModelID       string            `json:"model_id"`
	VoiceSettings httpVoiceSettings `json:"voice_settings"`
	PreviousText  string            `json:"previous_text,omitempty"`
	NextText      string            `json:"next_text,omitempty"`
	Seed          int64             `json:"seed,omitempty"`
	OutputFormat  string            `json:"output_format"`
}

// NewHTTPSynth builds a provider client against endpoint with the given
// API key and per-request timeout.
func NewHTTPSynth(endpoint, apiKey string, timeout time.Duration) Synthesizer {
	return &httpSynth{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

func (h *httpSynth) Synthesize(ctx context.Context, req Request) (Result, error) {
	payload := httpRequest{
		Text:    req.Body,
		ModelID: req.ModelID,
		VoiceSettings: httpVoiceSettings{
			Stability:    req.Voice.Stability,
			Similarity:   req.Voice.Similarity,
			Style:        req.Voice.Style,
			SpeakerBoost: req.Voice.SpeakerBoost,
		},
		PreviousText: req.PreviousContext,
		NextText:     req.NextContext,
		Seed:         req.Seed,
		OutputFormat: fmt.Sprintf("pcm_%d", req.SampleRate),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, NewProviderError(ErrClassValidation, err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", h.endpoint, req.VoiceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, NewProviderError(ErrClassValidation, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", h.apiKey)

	resp, err := h.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, NewProviderError(ErrClassTimeout, ctx.Err())
		}
		return Result{}, NewProviderError(ErrClassServer, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := fmt.Errorf("provider returned %s: %s", resp.Status, bytes.TrimSpace(detail))
		return Result{}, NewProviderError(classifyStatus(resp.StatusCode), err)
	}

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, NewProviderError(ErrClassServer, fmt.Errorf("read provider audio: %w", err))
	}
	return Result{PCM: pcm, SampleRate: req.SampleRate, Channels: req.Channels}, nil
}

func classifyStatus(code int) ErrorClass {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrClassAuth
	case code == http.StatusTooManyRequests:
		return ErrClassRateLimited
	case code >= 400 && code < 500:
		return ErrClassValidation
	default:
		return ErrClassServer
	}
}
