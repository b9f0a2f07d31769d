package markup

import (
	"regexp"
	"strings"

	"github.com/voxweave-labs/voxweave-core/internal/tuning"
)

var (
	jsonArtifactRe = regexp.MustCompile(`\{[^{}\n]*"[^{}\n]*:[^{}\n]*\}`)
	hashTagRe      = regexp.MustCompile(`(^|\s)#[\p{L}\d_]+`)
	mdHeaderRe     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	codeFenceRe    = regexp.MustCompile("```[^`]*```")
)

// allowedElements lists the container/self-closing elements each model class
// accepts. Anything else is stripped while its inner text is kept.
var allowedElements = map[tuning.ModelClass][]string{
	tuning.ModelClassFull: {"break", "emphasis", "prosody"},
	tuning.ModelClassCue:  {"break"},
	tuning.ModelClassBare: {},
}

// Sanitize removes metadata artifacts and any markup the target model class
// does not support. Inline bracket cue tokens are preserved for cue-capable
// classes. On input that is already clean for the class, the output is
// byte-identical.
func Sanitize(text string, class tuning.ModelClass) string {
	text = codeFenceRe.ReplaceAllString(text, "")
	text = jsonArtifactRe.ReplaceAllString(text, "")
	text = mdHeaderRe.ReplaceAllString(text, "")
	text = hashTagRe.ReplaceAllString(text, "$1")
	text = RepairSelfClosing(text)

	if class == tuning.ModelClassBare {
		// Punctuation-driven pacing only: drop every element and cue token.
		text = anyTagRe.ReplaceAllString(text, "")
		text = cueTokenRe.ReplaceAllString(text, "")
		return collapsePadding(text)
	}
	return stripDisallowed(text, allowedElements[class])
}

// stripDisallowed removes elements whose name is outside the allow-list,
// keeping their inner text. Allowed elements pass through untouched.
func stripDisallowed(text string, allowed []string) string {
	set := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		set[name] = struct{}{}
	}
	return anyTagRe.ReplaceAllStringFunc(text, func(tag string) string {
		name := tagName(tag)
		if _, ok := set[name]; ok {
			return tag
		}
		return ""
	})
}

// tagName extracts the element name from an open, close, or self-closing tag.
func tagName(tag string) string {
	inner := strings.Trim(tag, "<>/")
	if i := strings.IndexAny(inner, " \t\n/"); i >= 0 {
		inner = inner[:i]
	}
	return strings.ToLower(inner)
}

// collapsePadding tidies the space left behind by stripped elements without
// touching paragraph structure.
func collapsePadding(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = multiSpaceRe.ReplaceAllString(line, " ")
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.Join(lines, "\n")
}
