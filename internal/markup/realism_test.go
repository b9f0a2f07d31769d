package markup

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/voxweave-labs/voxweave-core/internal/tuning"
)

func realismConfig() tuning.RealismParams {
	cfg := tuning.Default().Realism
	cfg.Enabled = true
	return cfg
}

func TestApplyRealismDisabledIsIdentity(t *testing.T) {
	cfg := realismConfig()
	cfg.Enabled = false
	in := "One sentence. Another sentence."
	if got := ApplyRealism(in, cfg, rand.New(rand.NewSource(1))); got != in {
		t.Fatalf("disabled realism must be identity, got %q", got)
	}
	if got := ApplyRealism(in, realismConfig(), nil); got != in {
		t.Fatalf("nil rng must be identity, got %q", got)
	}
}

func TestApplyRealismSeededIsDeterministic(t *testing.T) {
	cfg := realismConfig()
	in := "The plan was simple. Nobody argued. We started early and kept a steady pace all day."
	a := ApplyRealism(in, cfg, rand.New(rand.NewSource(42)))
	b := ApplyRealism(in, cfg, rand.New(rand.NewSource(42)))
	if a != b {
		t.Fatalf("same seed must give same output:\n a %q\n b %q", a, b)
	}
}

// TestHesitationRatio asserts a statistical bound rather than exact strings:
// over many sentences the observed insertion rate must track the configured
// probability.
func TestHesitationRatio(t *testing.T) {
	cfg := realismConfig()
	cfg.HesitationProb = 0.30
	cfg.AddressTermRatio = 0
	cfg.EmphasisCaseProb = 0
	cfg.CombineProb = 0
	cfg.VocabSubProb = 0

	rng := rand.New(rand.NewSource(7))
	const trials = 400
	sentence := "The road ahead was long and empty."
	hits := 0
	for i := 0; i < trials; i++ {
		out := ApplyRealism(sentence, cfg, rng)
		if out != sentence {
			hits++
		}
	}
	ratio := float64(hits) / trials
	if ratio < 0.20 || ratio > 0.40 {
		t.Fatalf("hesitation ratio %0.3f outside [0.20, 0.40] for configured 0.30", ratio)
	}
}

func TestNegationDedup(t *testing.T) {
	cfg := realismConfig()
	cfg.AddressTermRatio = 0
	cfg.EmphasisCaseProb = 0
	cfg.HesitationProb = 0
	cfg.CombineProb = 0
	cfg.VocabSubProb = 0

	got := ApplyRealism("I will not not go. Never never again.", cfg, rand.New(rand.NewSource(1)))
	if strings.Contains(strings.ToLower(got), "not not") || strings.Contains(strings.ToLower(got), "never never") {
		t.Fatalf("expected negations deduplicated, got %q", got)
	}
}

func TestCombineShortSentences(t *testing.T) {
	cfg := realismConfig()
	cfg.AddressTermRatio = 0
	cfg.EmphasisCaseProb = 0
	cfg.HesitationProb = 0
	cfg.VocabSubProb = 0
	cfg.CombineProb = 1.0

	got := ApplyRealism("The door opened. Nobody was there.", cfg, rand.New(rand.NewSource(1)))
	if strings.Contains(got, ". Nobody") {
		t.Fatalf("expected sentences combined, got %q", got)
	}
	if !strings.Contains(got, ", and nobody was there.") {
		t.Fatalf("expected conjunction join, got %q", got)
	}
}
