package markup

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/voxweave-labs/voxweave-core/internal/tuning"
)

var (
	breakTagRe        = regexp.MustCompile(`<break\s+time="([0-9.]+)(s|ms)"\s*/>`)
	adjacentBreakRe   = regexp.MustCompile(`(<break\s+time="[0-9.]+(?:s|ms)"\s*/>)(\s*)(<break\s+time="[0-9.]+(?:s|ms)"\s*/>)`)
	brokenSelfCloseRe = regexp.MustCompile(`/{2,}>`)
	openTagRe         = regexp.MustCompile(`<([a-zA-Z][a-zA-Z0-9]*)(\s[^<>]*)?>`)
	closeTagRe        = regexp.MustCompile(`</([a-zA-Z][a-zA-Z0-9]*)>`)
	anyTagRe          = regexp.MustCompile(`<[^<>]+>`)
)

// BreakTag renders a break element for the given duration in milliseconds.
// Durations are printed in seconds with trailing zeros trimmed.
func BreakTag(ms int) string {
	sec := strconv.FormatFloat(float64(ms)/1000.0, 'f', -1, 64)
	return fmt.Sprintf(`<break time="%ss"/>`, sec)
}

// ConvertMacros resolves the intermediate macros into the target markup
// dialect and repairs the document: break durations are clamped into
// [MinFloorMS, ModelMaxMS], consecutive breaks are merged, malformed
// self-closing syntax is fixed, and container elements are rebalanced.
// The result is always well formed; nothing here fails.
func ConvertMacros(text string, s tuning.Settings) string {
	out := macroPauseRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := macroPauseRe.FindStringSubmatch(m)
		ms, err := strconv.Atoi(sub[1])
		if err != nil {
			return ""
		}
		return BreakTag(clampBreak(ms, s.Timing))
	})

	if s.Markup.EnableEmphasis {
		out = strings.ReplaceAll(out, macroEmphOpen, `<emphasis level="moderate">`)
		out = strings.ReplaceAll(out, macroEmphClose, `</emphasis>`)
	} else {
		out = strings.ReplaceAll(out, macroEmphOpen, "")
		out = strings.ReplaceAll(out, macroEmphClose, "")
	}

	out = RepairSelfClosing(out)
	out = ClampBreaks(out, s.Timing)
	out = MergeBreaks(out, s.Timing)
	out = balanceElements(out)
	out = enforceTagDensity(out, s.Markup.MaxTagsPer10Words)
	return out
}

// ClampBreaks re-emits every break element with its duration clamped into
// the timing bounds.
func ClampBreaks(text string, timing tuning.TimingTable) string {
	return breakTagRe.ReplaceAllStringFunc(text, func(tag string) string {
		return BreakTag(clampBreak(parseBreakMS(tag), timing))
	})
}

// RepairSelfClosing fixes malformed self-closing syntax such as
// `<break time="0.3s"//>` emitted by upstream tooling.
func RepairSelfClosing(text string) string {
	return brokenSelfCloseRe.ReplaceAllString(text, "/>")
}

// MergeBreaks collapses runs of adjacent break elements into a single break
// carrying the longest of the durations, clamped to the model maximum.
func MergeBreaks(text string, timing tuning.TimingTable) string {
	for {
		merged := adjacentBreakRe.ReplaceAllStringFunc(text, func(m string) string {
			sub := adjacentBreakRe.FindStringSubmatch(m)
			first := parseBreakMS(sub[1])
			second := parseBreakMS(sub[3])
			ms := first
			if second > ms {
				ms = second
			}
			return BreakTag(clampBreak(ms, timing))
		})
		if merged == text {
			return merged
		}
		text = merged
	}
}

func parseBreakMS(tag string) int {
	sub := breakTagRe.FindStringSubmatch(tag)
	if sub == nil {
		return 0
	}
	v, err := strconv.ParseFloat(sub[1], 64)
	if err != nil {
		return 0
	}
	if sub[2] == "s" {
		v *= 1000
	}
	return int(v + 0.5)
}

func clampBreak(ms int, timing tuning.TimingTable) int {
	if ms < timing.MinFloorMS {
		return timing.MinFloorMS
	}
	if ms > timing.ModelMaxMS {
		return timing.ModelMaxMS
	}
	return ms
}

// balanceElements validates container nesting and repairs in place: stray
// closing tags are dropped and unclosed containers are closed at the end of
// the document.
func balanceElements(text string) string {
	type span struct{ name string }
	var stack []span
	var b strings.Builder
	b.Grow(len(text))

	idx := 0
	for idx < len(text) {
		loc := anyTagRe.FindStringIndex(text[idx:])
		if loc == nil {
			b.WriteString(text[idx:])
			break
		}
		start, end := idx+loc[0], idx+loc[1]
		b.WriteString(text[idx:start])
		tag := text[start:end]

		switch {
		case strings.HasSuffix(tag, "/>"):
			b.WriteString(tag)
		case strings.HasPrefix(tag, "</"):
			sub := closeTagRe.FindStringSubmatch(tag)
			if sub != nil && len(stack) > 0 && stack[len(stack)-1].name == sub[1] {
				stack = stack[:len(stack)-1]
				b.WriteString(tag)
			}
			// Mismatched or stray close: dropped.
		default:
			sub := openTagRe.FindStringSubmatch(tag)
			if sub != nil {
				stack = append(stack, span{name: sub[1]})
				b.WriteString(tag)
			}
		}
		idx = end
	}

	for i := len(stack) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "</%s>", stack[i].name)
	}
	return b.String()
}

// enforceTagDensity removes the shortest breaks until the document carries at
// most maxPer10Words tags per ten words.
func enforceTagDensity(text string, maxPer10Words float64) string {
	if maxPer10Words <= 0 {
		return text
	}
	words := CountWords(StripTags(text))
	if words == 0 {
		return text
	}
	limit := int(maxPer10Words * float64(words) / 10.0)
	if limit < 1 {
		limit = 1
	}
	for TagCount(text) > limit {
		shortest := ""
		shortestMS := 0
		for _, tag := range breakTagRe.FindAllString(text, -1) {
			ms := parseBreakMS(tag)
			if shortest == "" || ms < shortestMS {
				shortest, shortestMS = tag, ms
			}
		}
		if shortest == "" {
			return text
		}
		text = strings.Replace(text, shortest, "", 1)
	}
	return text
}
