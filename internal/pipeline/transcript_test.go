package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MoAftaab/slidecast/internal/models"
)

func TestNormalizeScript(t *testing.T) {
	t.Parallel()

	t.Run("strips markdown emphasis around role labels", func(t *testing.T) {
		t.Parallel()
		in := "**Narrator:** Welcome.\n*Expert:* Indeed.\n**Narrator**: Again."
		want := "Narrator: Welcome.\nExpert: Indeed.\nNarrator: Again."
		require.Equal(t, want, NormalizeScript(in))
	})

	t.Run("removes citation markers", func(t *testing.T) {
		t.Parallel()
		in := "Narrator: Sales grew 40%[1][2] last year.[3]"
		require.Equal(t, "Narrator: Sales grew 40% last year.", NormalizeScript(in))
	})

	t.Run("canonicalizes role casing", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, "Expert: yes.", NormalizeScript("**expert:** yes."))
	})
}

func TestParseTranscript(t *testing.T) {
	t.Parallel()

	script := "Narrator: Hello.\n\nexpert: Some detail.\nJust a bare line.\nExpert: Closing."
	got := ParseTranscript(script)

	require.Equal(t, []models.TranscriptLine{
		{Role: "Narrator", Text: "Hello."},
		{Role: "Expert", Text: "Some detail."},
		{Role: "Narrator", Text: "Just a bare line."},
		{Role: "Expert", Text: "Closing."},
	}, got)
}

func TestSplitLines(t *testing.T) {
	t.Parallel()

	t.Run("keeps only role-tagged lines in order", func(t *testing.T) {
		t.Parallel()
		script := "Intro without a tag\nNarrator: First.\nExpert: Second.\nNarrator: Third."
		got := SplitLines(script)
		require.Equal(t, []Line{
			{Role: RoleNarrator, Text: "First."},
			{Role: RoleExpert, Text: "Second."},
			{Role: RoleNarrator, Text: "Third."},
		}, got)
	})

	t.Run("drops lines shorter than two characters", func(t *testing.T) {
		t.Parallel()
		got := SplitLines("Narrator: a\nExpert: ok\nNarrator:")
		require.Equal(t, []Line{{Role: RoleExpert, Text: "ok"}}, got)
	})

	t.Run("empty script yields nothing", func(t *testing.T) {
		t.Parallel()
		require.Empty(t, SplitLines(""))
	})
}
