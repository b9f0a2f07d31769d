package synth

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/voxweave-labs/voxweave-core/internal/tuning"
)

func TestErrorClassification(t *testing.T) {
	auth := NewProviderError(ErrClassAuth, errors.New("bad key"))
	if Retryable(auth) || !Fatal(auth) {
		t.Fatal("auth errors must be fatal and non-retryable")
	}
	rate := NewProviderError(ErrClassRateLimited, errors.New("slow down"))
	if !Retryable(rate) || Fatal(rate) {
		t.Fatal("rate-limit errors must be retryable")
	}
	plain := errors.New("mystery")
	if Retryable(plain) || !Fatal(plain) {
		t.Fatal("unclassified errors must be treated as fatal")
	}
}

func TestClassifyStatus(t *testing.T) {
	cases := map[int]ErrorClass{
		401: ErrClassAuth,
		403: ErrClassAuth,
		422: ErrClassValidation,
		429: ErrClassRateLimited,
		500: ErrClassServer,
		503: ErrClassServer,
	}
	for code, want := range cases {
		if got := classifyStatus(code); got != want {
			t.Fatalf("status %d: got %s want %s", code, got, want)
		}
	}
}

func TestRewriteForModelClampsBreaks(t *testing.T) {
	timing := tuning.Default().Timing
	cap := CapabilityFor(tuning.ModelClassCue)
	body := `hello<break time="3s"/> <emphasis level="moderate">there</emphasis>`
	got := RewriteForModel(body, cap, timing)
	if strings.Contains(got, "emphasis") {
		t.Fatalf("cue class must not carry emphasis, got %q", got)
	}
	if !strings.Contains(got, `<break time="2s"/>`) {
		t.Fatalf("expected break clamped to model max, got %q", got)
	}
}

func TestRewriteForModelBareStripsAll(t *testing.T) {
	timing := tuning.Default().Timing
	got := RewriteForModel(`hi<break time="1s"/> [warmly] there`, CapabilityFor(tuning.ModelClassBare), timing)
	if strings.ContainsAny(got, "<>[]") {
		t.Fatalf("bare rewrite must strip all annotation, got %q", got)
	}
}

func TestMockSynthDeterministic(t *testing.T) {
	m := NewMockSynth(22050, 1)
	req := Request{Body: "Hello world.", SampleRate: 22050, Channels: 1}
	a, err := m.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	b, err := m.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if !bytes.Equal(a.PCM, b.PCM) {
		t.Fatal("identical requests must yield identical audio")
	}
	if m.Calls() != 2 {
		t.Fatalf("expected 2 calls, got %d", m.Calls())
	}
	if len(a.PCM) == 0 || len(a.PCM)%2 != 0 {
		t.Fatalf("expected aligned non-empty pcm, got %d bytes", len(a.PCM))
	}
}
