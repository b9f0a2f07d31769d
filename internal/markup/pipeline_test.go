package markup

import (
	"strings"
	"testing"

	"github.com/voxweave-labs/voxweave-core/internal/tuning"
)

func TestAnnotateEmptyInput(t *testing.T) {
	p := NewPipeline(tuning.Default(), nil)
	for _, in := range []string{"", "   \n\t  ", "!!! ... ???"} {
		if _, err := p.Annotate(in); err == nil {
			t.Fatalf("expected error for unspeakable input %q", in)
		}
	}
}

func TestAnnotateProducesBalancedMarkup(t *testing.T) {
	p := NewPipeline(tuning.Default(), nil)
	doc, err := p.Annotate("Hello there. This is *important* news! Right?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	opens := strings.Count(doc.Body, "<emphasis")
	closes := strings.Count(doc.Body, "</emphasis>")
	if opens != closes {
		t.Fatalf("unbalanced emphasis elements in %q", doc.Body)
	}
	if !strings.Contains(doc.Body, "<break") {
		t.Fatalf("expected pause markup, got %q", doc.Body)
	}
}

func TestAnnotateBreakDurationsWithinBounds(t *testing.T) {
	s := tuning.Default()
	p := NewPipeline(s, nil)
	doc, err := p.Annotate("First, a pause... Then the end. A question? Done!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, ms := range BreakDurations(doc.Body) {
		if ms < s.Timing.MinFloorMS || ms > s.Timing.ModelMaxMS {
			t.Fatalf("break %dms outside [%d, %d] in %q", ms, s.Timing.MinFloorMS, s.Timing.ModelMaxMS, doc.Body)
		}
	}
}

func TestAnnotateClampsAuthoredBreaks(t *testing.T) {
	s := tuning.Default()
	p := NewPipeline(s, nil)
	doc, err := p.Annotate(`Wait for it.<break time="9s"/> Done now.<break time="0.01s"/> Bye.`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, ms := range BreakDurations(doc.Body) {
		if ms < s.Timing.MinFloorMS || ms > s.Timing.ModelMaxMS {
			t.Fatalf("break %dms outside [%d, %d] in %q", ms, s.Timing.MinFloorMS, s.Timing.ModelMaxMS, doc.Body)
		}
	}
}

func TestAnnotateTagDensityBounded(t *testing.T) {
	s := tuning.Default()
	p := NewPipeline(s, nil)
	doc, err := p.Annotate("A, b, c, d, e, f, g, h. Done.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d := TagDensityPer10Words(doc.Body); d > s.Markup.MaxTagsPer10Words {
		t.Fatalf("tag density %0.2f exceeds ceiling %0.2f in %q", d, s.Markup.MaxTagsPer10Words, doc.Body)
	}
}

func TestAnnotateBareClassHasNoMarkup(t *testing.T) {
	s := tuning.Default()
	s.Voice.ModelClass = tuning.ModelClassBare
	p := NewPipeline(s, nil)
	doc, err := p.Annotate("Hello there. This is HUGE news!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.ContainsAny(doc.Body, "<>") {
		t.Fatalf("bare model class must carry no markup, got %q", doc.Body)
	}
}

func TestAnnotateDeterministicWithoutRealism(t *testing.T) {
	p := NewPipeline(tuning.Default(), nil)
	a, err := p.Annotate("Same script. Same output.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := p.Annotate("Same script. Same output.")
	if a.Body != b.Body {
		t.Fatalf("annotation must be deterministic:\n a %q\n b %q", a.Body, b.Body)
	}
}
