package chunker

import (
	"strings"
	"testing"

	"github.com/voxweave-labs/voxweave-core/internal/markup"
	"github.com/voxweave-labs/voxweave-core/internal/tuning"
)

func annotate(t *testing.T, script string, s tuning.Settings) markup.Document {
	t.Helper()
	doc, err := markup.NewPipeline(s, nil).Annotate(script)
	if err != nil {
		t.Fatalf("annotate: %v", err)
	}
	return doc
}

func TestShortScriptYieldsOneChunk(t *testing.T) {
	s := tuning.Default()
	s.Chunking.TargetSeconds = 35
	doc := annotate(t, "Hello. This is a test. Another short sentence.", s)

	chunks := Split(doc, s)
	if len(chunks) != 1 {
		t.Fatalf("expected exactly 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Index != 0 {
		t.Fatalf("expected index 0, got %d", chunks[0].Index)
	}
	if chunks[0].CharCount == 0 || chunks[0].PlainTextBody == "" {
		t.Fatalf("chunk must carry content: %+v", chunks[0])
	}
}

func TestEmptyDocumentYieldsNoChunks(t *testing.T) {
	s := tuning.Default()
	if got := Split(markup.Document{Body: ""}, s); len(got) != 0 {
		t.Fatalf("expected no chunks for empty document, got %d", len(got))
	}
}

func TestNoTerminalPunctuationYieldsOneChunk(t *testing.T) {
	s := tuning.Default()
	doc := markup.Document{Body: "a run of words with no sentence ending punctuation at all"}
	chunks := Split(doc, s)
	if len(chunks) != 1 {
		t.Fatalf("expected one chunk, got %d", len(chunks))
	}
}

func TestDurationBound(t *testing.T) {
	s := tuning.Default()
	s.Chunking.TargetSeconds = 10
	s.Chunking.MinChars = 40

	var sb strings.Builder
	for i := 0; i < 60; i++ {
		sb.WriteString("The quick brown fox jumps over the lazy sleeping dog again. ")
	}
	doc := annotate(t, sb.String(), s)

	chunks := Split(doc, s)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	limit := s.Chunking.TargetSeconds * 1.2
	for _, c := range chunks[:len(chunks)-1] {
		if c.EstimatedDurationSec > limit {
			t.Fatalf("chunk %d duration %0.2fs exceeds %0.2fs", c.Index, c.EstimatedDurationSec, limit)
		}
	}
}

func TestBoundariesNeverSplitOpenElements(t *testing.T) {
	s := tuning.Default()
	s.Chunking.TargetSeconds = 5
	s.Chunking.MinChars = 20
	body := `One short thing happened here.<break time="0.5s"/> ` +
		`<emphasis level="moderate">Wait. Is this still one element?</emphasis> ` +
		`And then everything settled down for the night.<break time="0.5s"/>`
	doc := markup.Document{Body: body}

	chunks := Split(doc, s)
	for _, c := range chunks {
		depthCheck := 0
		runes := []rune(c.MarkupBody)
		for i := 0; i < len(runes); {
			if runes[i] == '<' {
				end, selfClosing, closing := scanTag(runes, i)
				if end > i {
					if !selfClosing {
						if closing {
							depthCheck--
						} else {
							depthCheck++
						}
					}
					i = end
					continue
				}
			}
			i++
		}
		if depthCheck != 0 {
			t.Fatalf("chunk %d has unbalanced elements: %q", c.Index, c.MarkupBody)
		}
	}
	// The emphasized span holds two sentence enders; it must live in one chunk.
	found := false
	for _, c := range chunks {
		if strings.Contains(c.MarkupBody, "<emphasis") {
			if !strings.Contains(c.MarkupBody, "</emphasis>") {
				t.Fatalf("emphasis split across chunks: %q", c.MarkupBody)
			}
			found = true
		}
	}
	if !found {
		t.Fatal("expected an emphasized chunk")
	}
}

func TestSingleSentenceEditChangesOneHash(t *testing.T) {
	s := tuning.Default()
	s.Chunking.TargetSeconds = 2
	s.Chunking.MinChars = 10

	base := "The morning was calm and bright over the harbor town. " +
		"Fishermen hauled their nets in silence near the pier. " +
		"A single gull circled above the empty market square."
	edited := strings.Replace(base,
		"Fishermen hauled their nets in silence near the pier.",
		"Fishermen mended their nets in silence near the pier.", 1)

	a := Split(annotate(t, base, s), s)
	b := Split(annotate(t, edited, s), s)
	if len(a) != 3 || len(b) != 3 {
		t.Fatalf("expected 3 chunks each, got %d and %d", len(a), len(b))
	}

	changed := 0
	for i := range a {
		if a[i].ContentHash != b[i].ContentHash {
			changed++
		}
	}
	if changed != 1 {
		t.Fatalf("expected exactly one changed hash, got %d", changed)
	}
}

func TestTransitionCueForcesBoundary(t *testing.T) {
	s := tuning.Default()
	s.Chunking.TargetSeconds = 600
	s.Chunking.MinChars = 1

	doc := annotate(t, "The day began quietly in the village. Meanwhile the storm gathered far out at sea.", s)
	chunks := Split(doc, s)
	if len(chunks) != 2 {
		t.Fatalf("expected forced boundary at transition cue, got %d chunks", len(chunks))
	}
	if !strings.HasPrefix(chunks[1].PlainTextBody, "Meanwhile") {
		t.Fatalf("expected second chunk to open at the cue, got %q", chunks[1].PlainTextBody)
	}
}

func TestNeighborContextAttached(t *testing.T) {
	s := tuning.Default()
	s.Chunking.TargetSeconds = 2
	s.Chunking.MinChars = 10
	s.Chunking.ContextSentences = 1

	doc := annotate(t, "First sentence sets the scene nicely. Second sentence moves things along. Third sentence wraps everything up.", s)
	chunks := Split(doc, s)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0].PreviousContext != "" {
		t.Fatalf("first chunk must have no previous context, got %q", chunks[0].PreviousContext)
	}
	if chunks[1].PreviousContext == "" || chunks[1].NextContext == "" {
		t.Fatalf("middle chunk must carry both contexts: %+v", chunks[1])
	}
	if chunks[len(chunks)-1].NextContext != "" {
		t.Fatalf("last chunk must have no next context")
	}
}

func TestOverlapMarkersAtInteriorEdges(t *testing.T) {
	s := tuning.Default()
	s.Chunking.TargetSeconds = 2
	s.Chunking.MinChars = 10
	s.Chunking.OverlapMS = 400

	doc := annotate(t, "First sentence sets the scene nicely. Second sentence moves things along. Third sentence wraps everything up.", s)
	chunks := Split(doc, s)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	half := markup.BreakTag(200)
	if strings.HasPrefix(chunks[0].MarkupBody, half) {
		t.Fatal("leading edge of first chunk must not carry overlap silence")
	}
	if !strings.HasSuffix(chunks[0].MarkupBody, half) {
		t.Fatalf("expected trailing overlap marker on first chunk: %q", chunks[0].MarkupBody)
	}
	if !strings.HasPrefix(chunks[1].MarkupBody, half) || !strings.HasSuffix(chunks[1].MarkupBody, half) {
		t.Fatalf("expected overlap markers on both interior edges: %q", chunks[1].MarkupBody)
	}
	if strings.HasSuffix(chunks[len(chunks)-1].MarkupBody, half) {
		t.Fatal("trailing edge of last chunk must not carry overlap silence")
	}
}
