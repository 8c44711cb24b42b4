package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/MoAftaab/slidecast/internal/utils"
)

const googleTTSEndpoint = "https://texttospeech.googleapis.com/v1/text:synthesize"

// GoogleTTS is the fallback backend. Its REST API wraps the audio as
// base64 inside a JSON response; decoding happens here so callers always
// receive raw bytes.
type GoogleTTS struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewGoogleTTS(apiKey string) *GoogleTTS {
	return &GoogleTTS{
		endpoint:   googleTTSEndpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTTSTimeout},
	}
}

func (g *GoogleTTS) Name() string { return "google-tts" }

func (g *GoogleTTS) Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error) {
	const op = "GoogleTTS.Synthesize"

	if strings.TrimSpace(g.apiKey) == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "api key is not configured", nil)
	}

	rate := voice.GoogleSpeakingRate
	if rate == 0 {
		rate = 1.0
	}

	payload := map[string]any{
		"input": map[string]string{"text": text},
		"voice": map[string]string{
			"name":         voice.GoogleName,
			"languageCode": voice.GoogleLanguage,
			"ssmlGender":   voice.GoogleGender,
		},
		"audioConfig": map[string]any{
			"audioEncoding": "MP3",
			"speakingRate":  rate,
		},
	}

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "encode payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, buf)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, utils.E(utils.CodeUnauthorized, op, fmt.Sprintf("status %d: key invalid or quota exhausted", resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, utils.E(utils.CodeUnavailable, op, fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)), nil)
	}

	var response struct {
		AudioContent string `json:"audioContent"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "decode response", err)
	}
	if response.AudioContent == "" {
		return nil, utils.E(utils.CodeUnavailable, op, "empty audio content", nil)
	}

	audio, err := base64.StdEncoding.DecodeString(response.AudioContent)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "decode base64 audio", err)
	}
	return audio, nil
}
