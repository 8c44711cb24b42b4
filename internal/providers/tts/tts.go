package tts

import "context"

// Voice carries the per-role synthesis parameters for both backends; each
// implementation reads only its own fields. Distinct stability/style values
// per role give the narrator and the expert a distinguishable timbre.
type Voice struct {
	Role string // narrator|expert

	// ElevenLabs parameters.
	VoiceID         string
	ModelID         string
	Stability       float64
	SimilarityBoost float64
	Style           float64
	UseSpeakerBoost bool

	// Google Cloud TTS parameters.
	GoogleName         string
	GoogleLanguage     string
	GoogleGender       string // MALE|FEMALE
	GoogleSpeakingRate float64
}

// Provider converts one line of text into audio bytes. Both concrete
// implementations normalize their wire format (raw binary vs JSON-wrapped
// base64) behind this single capability, so the synthesizer never branches
// on provider identity beyond choosing which instance to call.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error)
}

// DefaultVoice is the single-narrator preset.
func DefaultVoice() Voice {
	return Voice{
		Role:               "narrator",
		VoiceID:            "IKne3meq5aSn9XLyUdCD", // Charlie
		ModelID:            "eleven_multilingual_v2",
		Stability:          0.5,
		SimilarityBoost:    0.75,
		Style:              0.0,
		UseSpeakerBoost:    true,
		GoogleName:         "en-US-Neural2-F",
		GoogleLanguage:     "en-US",
		GoogleGender:       "FEMALE",
		GoogleSpeakingRate: 1.0,
	}
}

// DualVoices maps narrator/expert roles to their presets.
func DualVoices() map[string]Voice {
	return map[string]Voice{
		"narrator": {
			Role:               "narrator",
			VoiceID:            "FGY2WhTYpPnrIDTdsKH5", // Laura, clear and engaging
			ModelID:            "eleven_multilingual_v2",
			Stability:          0.7,
			SimilarityBoost:    0.75,
			Style:              0.35,
			UseSpeakerBoost:    true,
			GoogleName:         "en-US-Neural2-F",
			GoogleLanguage:     "en-US",
			GoogleGender:       "FEMALE",
			GoogleSpeakingRate: 1.0,
		},
		"expert": {
			Role:               "expert",
			VoiceID:            "onwK4e9ZLuTAKqWW03F9", // Daniel, authoritative
			ModelID:            "eleven_multilingual_v2",
			Stability:          0.8,
			SimilarityBoost:    0.85,
			Style:              0.45,
			UseSpeakerBoost:    true,
			GoogleName:         "en-US-Neural2-D",
			GoogleLanguage:     "en-US",
			GoogleGender:       "MALE",
			GoogleSpeakingRate: 0.9,
		},
	}
}
