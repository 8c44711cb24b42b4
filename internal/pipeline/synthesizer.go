package pipeline

import (
	"context"
	"time"

	"github.com/MoAftaab/slidecast/internal/models"
	"github.com/MoAftaab/slidecast/internal/providers/health"
	"github.com/MoAftaab/slidecast/internal/providers/tts"
	"github.com/MoAftaab/slidecast/internal/utils"
	"github.com/sirupsen/logrus"
)

const defaultInterRequestDelay = 500 * time.Millisecond

// Segment is one line's synthesized audio, tagged with its speaker role.
type Segment struct {
	Role  string
	Audio []byte
}

// SpeechSynthesizer turns a role-tagged script into per-line audio. Lines
// are processed strictly in script order, one provider call at a time, with
// a fixed inter-request delay for rate-limit safety. A line whose both
// providers fail is skipped; only zero successful lines is an error.
type SpeechSynthesizer struct {
	primary   tts.Provider
	secondary tts.Provider
	health    *health.Cache
	delay     time.Duration
	log       *logrus.Logger
}

func NewSpeechSynthesizer(primary, secondary tts.Provider, hc *health.Cache, delay time.Duration, log *logrus.Logger) *SpeechSynthesizer {
	if delay <= 0 {
		delay = defaultInterRequestDelay
	}
	return &SpeechSynthesizer{primary: primary, secondary: secondary, health: hc, delay: delay, log: log}
}

func (s *SpeechSynthesizer) Synthesize(ctx context.Context, script string, mode string) ([]Segment, error) {
	lines := SplitLines(script)

	voices := tts.DualVoices()
	single := tts.DefaultVoice()

	// An auth failure on the primary provider is sticky for this run:
	// every call after it would fail the same way.
	primaryDisabled := s.primary == nil

	var segments []Segment
	for i, line := range lines {
		voice := single
		if mode == models.ModeDual {
			if v, ok := voices[line.Role]; ok {
				voice = v
			}
		}

		var audio []byte
		if !primaryDisabled {
			out, err := s.primary.Synthesize(ctx, line.Text, voice)
			s.health.Report(s.primary.Name(), err)
			if err != nil {
				if utils.IsCode(err, utils.CodeUnauthorized) {
					s.log.WithField("provider", s.primary.Name()).Warn("authentication failed, disabling primary tts for this run")
					primaryDisabled = true
				} else {
					s.log.WithFields(logrus.Fields{"provider": s.primary.Name(), "line": i}).WithError(err).Warn("primary tts failed")
				}
			} else {
				audio = out
			}
		}

		if audio == nil && s.secondary != nil {
			out, err := s.secondary.Synthesize(ctx, line.Text, voice)
			s.health.Report(s.secondary.Name(), err)
			if err != nil {
				s.log.WithFields(logrus.Fields{"provider": s.secondary.Name(), "line": i}).WithError(err).Warn("fallback tts failed, skipping line")
			} else {
				audio = out
			}
		}

		if audio != nil {
			segments = append(segments, Segment{Role: line.Role, Audio: audio})
		}

		if s.delay > 0 && i < len(lines)-1 {
			select {
			case <-ctx.Done():
				if len(segments) == 0 {
					return nil, ErrSynthesis
				}
				return segments, nil
			case <-time.After(s.delay):
			}
		}
	}

	if len(segments) == 0 {
		return nil, ErrSynthesis
	}
	return segments, nil
}
