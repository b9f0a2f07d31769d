// Package synth defines the speech-synthesis provider boundary: the request
// and result shapes, the error classification that drives retry policy, and
// the capability profiles of known model classes.
package synth

import (
	"context"
	"errors"
	"fmt"

	"github.com/voxweave-labs/voxweave-core/internal/tuning"
)

// Request contains everything a provider needs to render one chunk.
type Request struct {
	Body            string
	ModelID         string
	VoiceID         string
	Voice           tuning.VoiceParams
	PreviousContext string
	NextContext     string
	Seed            int64
	SampleRate      int
	Channels        int
}

// Result is the rendered audio for one request. PCM is 16-bit little-endian
// interleaved at the reported rate and channel count.
type Result struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// Synthesizer is the contract for producing audio from annotated text.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (Result, error)
}

// ErrorClass partitions provider failures by how the orchestrator must react.
type ErrorClass string

const (
	// ErrClassAuth is fatal and never retried.
	ErrClassAuth ErrorClass = "auth"
	// ErrClassValidation is fatal and never retried.
	ErrClassValidation ErrorClass = "validation"
	// ErrClassRateLimited is transient and retried once with backoff.
	ErrClassRateLimited ErrorClass = "rate_limited"
	// ErrClassServer is transient and retried once with backoff.
	ErrClassServer ErrorClass = "server"
	// ErrClassTimeout is transient and retried once with backoff.
	ErrClassTimeout ErrorClass = "timeout"
)

// ProviderError carries the classification alongside the underlying cause.
type ProviderError struct {
	Class ErrorClass
	Err   error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s error: %v", e.Class, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err with a classification.
func NewProviderError(class ErrorClass, err error) *ProviderError {
	return &ProviderError{Class: class, Err: err}
}

// Retryable reports whether err is a transient provider failure. Unclassified
// errors are treated as fatal.
func Retryable(err error) bool {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return false
	}
	switch pe.Class {
	case ErrClassRateLimited, ErrClassServer, ErrClassTimeout:
		return true
	}
	return false
}

// Fatal reports whether err must fail the job immediately without retry.
func Fatal(err error) bool {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return true
	}
	return pe.Class == ErrClassAuth || pe.Class == ErrClassValidation
}
