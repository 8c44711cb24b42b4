package pipeline

import (
	"fmt"
	"time"
)

// SilenceConfig fixes the encoding parameters assumed for the inter-line
// silence filler. They must match what the TTS providers actually emit;
// mismatched parameters would silently corrupt the combined stream, so the
// values are an explicit contract here rather than scattered constants.
type SilenceConfig struct {
	Duration   time.Duration
	SampleRate int
	BitDepth   int
	Channels   int
}

func DefaultSilenceConfig() SilenceConfig {
	return SilenceConfig{
		Duration:   500 * time.Millisecond,
		SampleRate: 44100,
		BitDepth:   16,
		Channels:   2,
	}
}

// AudioAssembler concatenates per-line audio buffers into one, with a
// fixed silence gap between consecutive segments. This is byte-level
// concatenation, not a re-encoded mix: all segments are assumed to share
// the silence filler's encoding parameters.
type AudioAssembler struct {
	silence []byte
}

func NewAudioAssembler(cfg SilenceConfig) (*AudioAssembler, error) {
	if cfg.Duration <= 0 || cfg.SampleRate <= 0 || cfg.Channels <= 0 {
		return nil, fmt.Errorf("invalid silence config: %+v", cfg)
	}
	switch cfg.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("invalid silence bit depth: %d", cfg.BitDepth)
	}

	size := cfg.SampleRate * int(cfg.Duration.Milliseconds()) / 1000 * (cfg.BitDepth / 8) * cfg.Channels
	return &AudioAssembler{silence: make([]byte, size)}, nil
}

func (a *AudioAssembler) Combine(segments [][]byte) ([]byte, error) {
	if len(segments) == 0 {
		return nil, ErrAssembly
	}
	if len(segments) == 1 {
		return segments[0], nil
	}

	total := len(a.silence) * (len(segments) - 1)
	for _, seg := range segments {
		total += len(seg)
	}

	out := make([]byte, 0, total)
	for i, seg := range segments {
		out = append(out, seg...)
		if i < len(segments)-1 {
			out = append(out, a.silence...)
		}
	}
	return out, nil
}
