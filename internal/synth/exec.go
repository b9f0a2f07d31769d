package synth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"
)

// execSynth shells out to a local TTS command. The command receives one JSON
// request on stdin and answers with one JSON object on stdout.
type execSynth struct {
	cmd []string
	mu  sync.Mutex
}

type execRequest struct {
	Body       string  `json:"body"`
	ModelID    string  `json:"model_id"`
	VoiceID    string  `json:"voice_id"`
	Stability  float64 `json:"stability"`
	Similarity float64 `json:"similarity"`
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Seed       int64   `json:"seed,omitempty"`
}

type execResponse struct {
	PCMBase64  string `json:"pcm_base64"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Error      string `json:"error,omitempty"`
}

// NewExecSynth builds a provider from a shell command line.
func NewExecSynth(command string) (Synthesizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse synth command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("synth command is empty")
	}
	return &execSynth{cmd: args}, nil
}

func (e *execSynth) Synthesize(ctx context.Context, req Request) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	payload := execRequest{
		Body:       req.Body,
		ModelID:    req.ModelID,
		VoiceID:    req.VoiceID,
		Stability:  req.Voice.Stability,
		Similarity: req.Voice.Similarity,
		SampleRate: req.SampleRate,
		Channels:   req.Channels,
		Seed:       req.Seed,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Result{}, NewProviderError(ErrClassValidation, err)
	}

	command := exec.CommandContext(ctx, e.cmd[0], e.cmd[1:]...)
	command.Stdin = bytes.NewReader(data)
	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		if ctx.Err() != nil {
			return Result{}, NewProviderError(ErrClassTimeout, ctx.Err())
		}
		return Result{}, NewProviderError(ErrClassServer,
			fmt.Errorf("synth command failed: %w: %s", err, stderr.String()))
	}

	var resp execResponse
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &resp); err != nil {
		return Result{}, NewProviderError(ErrClassServer, fmt.Errorf("decode synth response: %w", err))
	}
	if resp.Error != "" {
		return Result{}, NewProviderError(ErrClassValidation, errors.New(resp.Error))
	}
	pcm, err := base64.StdEncoding.DecodeString(resp.PCMBase64)
	if err != nil {
		return Result{}, NewProviderError(ErrClassServer, fmt.Errorf("decode synth pcm: %w", err))
	}

	rate := resp.SampleRate
	if rate == 0 {
		rate = req.SampleRate
	}
	channels := resp.Channels
	if channels == 0 {
		channels = req.Channels
	}
	return Result{PCM: pcm, SampleRate: rate, Channels: channels}, nil
}
