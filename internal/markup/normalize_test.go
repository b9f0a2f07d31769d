package markup

import "testing"

func TestNormalizeCanonicalizes(t *testing.T) {
	in := "“Hello” — she said…  twice\r\non  two lines"
	got := Normalize(in)
	want := "\"Hello\" - she said... twice\non two lines"
	if got != want {
		t.Fatalf("normalize mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	in := "‘Quotes’ and – dashes… and   runs \U0001F600ok"
	once := Normalize(in)
	twice := Normalize(once)
	if once != twice {
		t.Fatalf("normalize not idempotent:\n once %q\ntwice %q", once, twice)
	}
}

func TestNormalizePadsEmoji(t *testing.T) {
	got := Normalize("great\U0001F600day")
	want := "great \U0001F600 day"
	if got != want {
		t.Fatalf("expected emoji padding, got %q", got)
	}
}

func TestNormalizePreservesParagraphBreaks(t *testing.T) {
	got := Normalize("one\n\n\n\ntwo")
	if got != "one\n\ntwo" {
		t.Fatalf("expected single blank line, got %q", got)
	}
}
