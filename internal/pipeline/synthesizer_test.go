package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MoAftaab/slidecast/internal/models"
	"github.com/MoAftaab/slidecast/internal/providers/health"
	"github.com/MoAftaab/slidecast/internal/providers/tts"
	"github.com/MoAftaab/slidecast/internal/utils"
)

type stubTTS struct {
	name   string
	calls  int
	voices []tts.Voice
	// synth decides the outcome per call; nil means echo the text bytes.
	synth func(call int, text string) ([]byte, error)
}

func (s *stubTTS) Name() string { return s.name }

func (s *stubTTS) Synthesize(_ context.Context, text string, voice tts.Voice) ([]byte, error) {
	call := s.calls
	s.calls++
	s.voices = append(s.voices, voice)
	if s.synth != nil {
		return s.synth(call, text)
	}
	return []byte(text), nil
}

func newTestSynthesizer(primary, secondary tts.Provider) *SpeechSynthesizer {
	return &SpeechSynthesizer{
		primary:   primary,
		secondary: secondary,
		health:    health.NewCache(),
		log:       testLogger(),
	}
}

const dualScript = "Narrator: Welcome everyone.\nExpert: Here is the detail.\nNarrator: Thanks for listening."

func TestSynthesizePreservesScriptOrder(t *testing.T) {
	t.Parallel()

	primary := &stubTTS{name: "p"}
	s := newTestSynthesizer(primary, nil)

	segments, err := s.Synthesize(context.Background(), dualScript, models.ModeDual)
	require.NoError(t, err)
	require.Len(t, segments, 3)
	require.Equal(t, RoleNarrator, segments[0].Role)
	require.Equal(t, RoleExpert, segments[1].Role)
	require.Equal(t, []byte("Welcome everyone."), segments[0].Audio)
	require.Equal(t, []byte("Thanks for listening."), segments[2].Audio)
}

func TestSynthesizeDualModeVoices(t *testing.T) {
	t.Parallel()

	primary := &stubTTS{name: "p"}
	s := newTestSynthesizer(primary, nil)

	_, err := s.Synthesize(context.Background(), dualScript, models.ModeDual)
	require.NoError(t, err)

	voices := tts.DualVoices()
	require.Equal(t, voices[RoleNarrator], primary.voices[0])
	require.Equal(t, voices[RoleExpert], primary.voices[1])
}

func TestSynthesizeSingleModeUsesOneVoice(t *testing.T) {
	t.Parallel()

	primary := &stubTTS{name: "p"}
	s := newTestSynthesizer(primary, nil)

	_, err := s.Synthesize(context.Background(), dualScript, models.ModeOverview)
	require.NoError(t, err)

	for _, v := range primary.voices {
		require.Equal(t, tts.DefaultVoice(), v)
	}
}

func TestSynthesizePerLineFallback(t *testing.T) {
	t.Parallel()

	primary := &stubTTS{name: "p", synth: func(call int, text string) ([]byte, error) {
		if call == 1 {
			return nil, errors.New("transient")
		}
		return []byte("p:" + text), nil
	}}
	secondary := &stubTTS{name: "s", synth: func(_ int, text string) ([]byte, error) {
		return []byte("s:" + text), nil
	}}
	s := newTestSynthesizer(primary, secondary)

	segments, err := s.Synthesize(context.Background(), dualScript, models.ModeDual)
	require.NoError(t, err)
	require.Len(t, segments, 3)
	// only the failed line went to the fallback provider
	require.Equal(t, []byte("p:Welcome everyone."), segments[0].Audio)
	require.Equal(t, []byte("s:Here is the detail."), segments[1].Audio)
	require.Equal(t, []byte("p:Thanks for listening."), segments[2].Audio)
	require.Equal(t, 1, secondary.calls)
}

func TestSynthesizeAuthFailureDisablesPrimaryForRun(t *testing.T) {
	t.Parallel()

	primary := &stubTTS{name: "p", synth: func(int, string) ([]byte, error) {
		return nil, utils.E(utils.CodeUnauthorized, "ElevenLabs.Synthesize", "invalid api key", nil)
	}}
	secondary := &stubTTS{name: "s"}
	s := newTestSynthesizer(primary, secondary)

	segments, err := s.Synthesize(context.Background(), dualScript, models.ModeDual)
	require.NoError(t, err)
	require.Len(t, segments, 3)
	// primary was tried once, then never again
	require.Equal(t, 1, primary.calls)
	require.Equal(t, 3, secondary.calls)
}

func TestSynthesizeSkipsUnrecoverableLines(t *testing.T) {
	t.Parallel()

	primary := &stubTTS{name: "p", synth: func(call int, text string) ([]byte, error) {
		if call == 0 {
			return nil, errors.New("bad line")
		}
		return []byte(text), nil
	}}
	s := newTestSynthesizer(primary, nil)

	segments, err := s.Synthesize(context.Background(), dualScript, models.ModeDual)
	require.NoError(t, err)
	require.Len(t, segments, 2)
	require.Equal(t, []byte("Here is the detail."), segments[0].Audio)
}

func TestSynthesizeAllLinesFail(t *testing.T) {
	t.Parallel()

	primary := &stubTTS{name: "p", synth: func(int, string) ([]byte, error) {
		return nil, errors.New("down")
	}}
	s := newTestSynthesizer(primary, nil)

	_, err := s.Synthesize(context.Background(), dualScript, models.ModeDual)
	require.ErrorIs(t, err, ErrSynthesis)
}

func TestSynthesizeNoProviders(t *testing.T) {
	t.Parallel()

	s := newTestSynthesizer(nil, nil)
	_, err := s.Synthesize(context.Background(), dualScript, models.ModeDual)
	require.ErrorIs(t, err, ErrSynthesis)
}
