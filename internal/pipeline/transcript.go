package pipeline

import (
	"regexp"
	"strings"

	"github.com/MoAftaab/slidecast/internal/models"
)

// Speaker roles.
const (
	RoleNarrator = "narrator"
	RoleExpert   = "expert"
)

const minLineLength = 2

var (
	rolePattern = regexp.MustCompile(`(?i)^(Narrator|Expert):\s*(.*)$`)

	// LLMs wrap role labels in markdown emphasis in a handful of shapes
	// (**Narrator:**, **Narrator**:, *Expert:*). Strip them so every line
	// unambiguously starts with a bare role tag.
	emphasisedRole = regexp.MustCompile(`(?i)[*_]{1,2}(Narrator|Expert)[*_]{0,2}:[*_]{0,2}`)

	// Citation markers like [1] or [2][3] that search-backed providers
	// append to sentences.
	citationMarker = regexp.MustCompile(`\[\d+\]`)
)

// Line is one speaker-tagged utterance, ready for synthesis.
type Line struct {
	Role string // narrator|expert
	Text string
}

// NormalizeScript cleans provider output so the downstream split sees only
// plain "Narrator:"/"Expert:" prefixes.
func NormalizeScript(script string) string {
	script = emphasisedRole.ReplaceAllStringFunc(script, func(m string) string {
		sub := emphasisedRole.FindStringSubmatch(m)
		return canonicalRoleLabel(sub[1]) + ":"
	})
	script = citationMarker.ReplaceAllString(script, "")
	return strings.TrimSpace(script)
}

// ParseTranscript converts a script into the durable role/text list. Lines
// without a recognized role tag are assigned to the narrator and keep their
// position (blank lines are dropped).
func ParseTranscript(script string) []models.TranscriptLine {
	var out []models.TranscriptLine
	for _, raw := range strings.Split(script, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if m := rolePattern.FindStringSubmatch(line); m != nil {
			out = append(out, models.TranscriptLine{
				Role: canonicalRoleLabel(m[1]),
				Text: strings.TrimSpace(m[2]),
			})
			continue
		}
		out = append(out, models.TranscriptLine{Role: "Narrator", Text: line})
	}
	return out
}

// SplitLines extracts the synthesizable lines from a script: only lines
// matching the role pattern, in original order, with the role prefix
// stripped. Lines whose remaining text is shorter than two characters are
// discarded.
func SplitLines(script string) []Line {
	var out []Line
	for _, raw := range strings.Split(script, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		m := rolePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[2])
		if len(text) < minLineLength {
			continue
		}
		out = append(out, Line{Role: strings.ToLower(m[1]), Text: text})
	}
	return out
}

func canonicalRoleLabel(role string) string {
	if strings.EqualFold(role, "expert") {
		return "Expert"
	}
	return "Narrator"
}
