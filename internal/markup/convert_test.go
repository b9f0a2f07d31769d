package markup

import (
	"strings"
	"testing"

	"github.com/voxweave-labs/voxweave-core/internal/tuning"
)

func TestInsertMacrosPunctuation(t *testing.T) {
	s := tuning.Default()
	got := InsertMacros("Hello. Is it you?", s.Timing, s.Markup)
	want := "Hello.[[pause:500]] Is it you?[[pause:600]]"
	if got != want {
		t.Fatalf("macro mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestInsertMacrosSkipsDecimals(t *testing.T) {
	s := tuning.Default()
	got := InsertMacros("Version 2.5 shipped", s.Timing, s.Markup)
	if strings.Contains(got, "[[pause") {
		t.Fatalf("expected no pause inside a decimal, got %q", got)
	}
}

func TestInsertMacrosEmphasisCap(t *testing.T) {
	s := tuning.Default()
	s.Markup.MaxEmphasisPerClause = 1
	got := InsertMacros("this is HUGE and AMAZING and WILD", s.Timing, s.Markup)
	if n := strings.Count(got, macroEmphOpen); n != 1 {
		t.Fatalf("expected 1 emphasis macro under cap, got %d in %q", n, got)
	}
}

func TestConvertMacrosClampsBreaks(t *testing.T) {
	s := tuning.Default()
	got := ConvertMacros("a[[pause:10]]b[[pause:99999]]c", s)
	if !strings.Contains(got, `<break time="0.1s"/>`) {
		t.Fatalf("expected floor clamp to 100ms, got %q", got)
	}
	if !strings.Contains(got, `<break time="3s"/>`) {
		t.Fatalf("expected ceiling clamp to 3000ms, got %q", got)
	}
}

func TestMergeBreaksKeepsLongest(t *testing.T) {
	s := tuning.Default()
	in := `one<break time="0.3s"/> <break time="0.9s"/>two`
	got := MergeBreaks(in, s.Timing)
	if strings.Count(got, "<break") != 1 {
		t.Fatalf("expected single merged break, got %q", got)
	}
	if !strings.Contains(got, `time="0.9s"`) {
		t.Fatalf("expected longest duration kept, got %q", got)
	}
}

func TestBalanceElementsRepairs(t *testing.T) {
	got := balanceElements(`a <emphasis level="moderate">b</emphasis> c</prosody> <emphasis level="moderate">d`)
	if strings.Contains(got, "</prosody>") {
		t.Fatalf("expected stray close dropped, got %q", got)
	}
	if !strings.HasSuffix(got, "</emphasis>") {
		t.Fatalf("expected unclosed element repaired, got %q", got)
	}
}

func TestConvertEmphasisDisabled(t *testing.T) {
	s := tuning.Default()
	s.Markup.EnableEmphasis = false
	got := ConvertMacros("say [[emph]]this[[/emph]] plainly", s)
	if strings.Contains(got, "emphasis") || strings.Contains(got, "[[") {
		t.Fatalf("expected emphasis macros dropped, got %q", got)
	}
	if !strings.Contains(got, "say this plainly") {
		t.Fatalf("expected inner text kept, got %q", got)
	}
}
