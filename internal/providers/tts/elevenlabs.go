package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MoAftaab/slidecast/internal/utils"
)

const defaultTTSTimeout = 90 * time.Second

// ElevenLabs is the primary synthesis backend. It returns raw audio bytes
// directly in the response body. A 401 surfaces as CodeUnauthorized so the
// synthesizer can sticky-disable the provider for the rest of a run.
type ElevenLabs struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewElevenLabs(baseURL, apiKey string) *ElevenLabs {
	if baseURL == "" {
		baseURL = "https://api.elevenlabs.io/v1"
	}
	return &ElevenLabs{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTTSTimeout},
	}
}

func (e *ElevenLabs) Name() string { return "elevenlabs" }

func (e *ElevenLabs) Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error) {
	const op = "ElevenLabs.Synthesize"

	if strings.TrimSpace(e.apiKey) == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "api key is not configured", nil)
	}

	payload := map[string]any{
		"text":     text,
		"model_id": voice.ModelID,
		"voice_settings": map[string]any{
			"stability":         voice.Stability,
			"similarity_boost":  voice.SimilarityBoost,
			"style":             voice.Style,
			"use_speaker_boost": voice.UseSpeakerBoost,
		},
	}

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "encode payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/text-to-speech/"+voice.VoiceID, buf)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "create request", err)
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, utils.E(utils.CodeUnauthorized, op, "authentication failed", nil)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, utils.E(utils.CodeUnavailable, op, fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)), nil)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "read audio body", err)
	}
	if len(audio) == 0 {
		return nil, utils.E(utils.CodeUnavailable, op, "empty audio response", nil)
	}
	return audio, nil
}
