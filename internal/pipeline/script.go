package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/MoAftaab/slidecast/internal/models"
	"github.com/MoAftaab/slidecast/internal/providers/health"
	"github.com/MoAftaab/slidecast/internal/providers/llm"
	"github.com/sirupsen/logrus"
)

const (
	scriptTemperature = 0.7
	scriptMaxTokens   = 4000
)

const dualSystemPrompt = "You are an expert at creating engaging educational content. " +
	"You excel at breaking down complex topics and making them accessible while maintaining technical accuracy. " +
	"Create natural dialogue between a Narrator and an Expert."

const singleSystemPrompt = "You are an expert at creating engaging audio content from presentations. " +
	"Your output should be natural and conversational, perfect for text-to-speech narration. " +
	"Prefix every line with \"Narrator: \"."

var bulletSplit = regexp.MustCompile(`[•*]`)

// ScriptGenerator produces the narration script. It never fails outward:
// primary provider, then secondary, then a deterministic template built
// from the slide texts alone.
type ScriptGenerator struct {
	primary   llm.Provider
	secondary llm.Provider
	health    *health.Cache
	log       *logrus.Logger
}

func NewScriptGenerator(primary, secondary llm.Provider, hc *health.Cache, log *logrus.Logger) *ScriptGenerator {
	return &ScriptGenerator{primary: primary, secondary: secondary, health: hc, log: log}
}

func (g *ScriptGenerator) Generate(ctx context.Context, title string, slides []string, mode string) string {
	system, user := buildPrompts(title, slides, mode)

	for _, provider := range []llm.Provider{g.primary, g.secondary} {
		if provider == nil {
			continue
		}
		if st, ok := g.health.Get(provider.Name()); ok && !st.Available {
			g.log.WithField("provider", provider.Name()).Info("skipping provider marked unavailable")
			continue
		}

		script, err := provider.Complete(ctx, system, user, scriptTemperature, scriptMaxTokens)
		g.health.Report(provider.Name(), err)
		if err != nil {
			g.log.WithField("provider", provider.Name()).WithError(err).Warn("script generation failed")
			continue
		}
		if script = NormalizeScript(script); script != "" {
			return script
		}
	}

	g.log.Warn("all script providers unavailable, using template fallback")
	return FallbackScript(slides)
}

func buildPrompts(title string, slides []string, mode string) (system, user string) {
	var sb strings.Builder
	for i, slide := range slides {
		fmt.Fprintf(&sb, "Slide %d:\n%s\n\n", i+1, slide)
	}
	content := sb.String()

	if mode == models.ModeDual {
		user = fmt.Sprintf(`Create a dual-narration script for an educational presentation. The script should feature a Narrator who introduces concepts and an Expert who provides deeper insights.

Important Guidelines:
- Include relevant statistics, facts, and figures to support explanations
- Add engaging analogies to make complex topics more accessible
- Format: Each line must start with "Narrator: " or "Expert: " (no asterisks or other formatting)
- Keep each speaker's part concise and focused
- Ensure natural dialogue flow between speakers

Presentation Title: %s
Total Slides: %d

Content:
%s`, title, len(slides), content)
		return dualSystemPrompt, user
	}

	user = fmt.Sprintf(`Create an engaging audio narration for this presentation. Cover the slides in order, introduce the topic, explain the key points in clear language suitable for narration, and close with the main takeaways. Prefix every line with "Narrator: ".

Presentation Title: %s
Total Slides: %d

Content:
%s`, title, len(slides), content)
	return singleSystemPrompt, user
}

// FallbackScript mechanically derives a script from the slide texts: a
// narrator intro per slide, alternating speakers over bullet fragments, or
// a generic expert remark for slides without bullets.
func FallbackScript(slides []string) string {
	var sb strings.Builder
	for i, slide := range slides {
		fmt.Fprintf(&sb, "Narrator: Let's look at slide %d.\n", i+1)

		var fragments []string
		for _, f := range bulletSplit.Split(slide, -1) {
			if f = strings.TrimSpace(f); f != "" {
				fragments = append(fragments, f)
			}
		}

		switch {
		case len(fragments) > 1:
			for j, f := range fragments {
				if j%2 == 0 {
					fmt.Fprintf(&sb, "Narrator: %s\n", f)
				} else {
					fmt.Fprintf(&sb, "Expert: %s\n", f)
				}
			}
		case len(fragments) == 1:
			fmt.Fprintf(&sb, "Narrator: %s\n", fragments[0])
			sb.WriteString("Expert: This is an important concept to understand because it forms the foundation for the rest of the presentation.\n")
		}
	}
	return strings.TrimSpace(sb.String())
}
