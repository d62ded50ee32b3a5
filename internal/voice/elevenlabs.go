package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.elevenlabs.io"
	DefaultVoiceID = "N2lVS1w4EtoT3dr4eOWO"
	DefaultModelID = "eleven_turbo_v2_5"
)

var ErrNoAPIKey = errors.New("elevenlabs: api key not set")

// Player plays encoded audio (MP3) until it finishes or ctx is done.
type Player interface {
	Play(ctx context.Context, audio io.Reader) error
}

type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Stability:       0.5,
		SimilarityBoost: 0.8,
		Style:           0.2,
		UseSpeakerBoost: true,
	}
}

type ElevenLabsConfig struct {
	APIKey   string
	VoiceID  string
	ModelID  string
	BaseURL  string
	Settings *VoiceSettings
	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client
}

type ElevenLabs struct {
	apiKey   string
	voiceID  string
	modelID  string
	baseURL  string
	settings VoiceSettings
	http     *http.Client
	player   Player
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

func NewElevenLabs(cfg ElevenLabsConfig, player Player) (*ElevenLabs, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if player == nil {
		return nil, errors.New("elevenlabs: nil player")
	}

	e := &ElevenLabs{
		apiKey:   cfg.APIKey,
		voiceID:  cfg.VoiceID,
		modelID:  cfg.ModelID,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		settings: DefaultVoiceSettings(),
		http:     cfg.HTTPClient,
		player:   player,
	}
	if e.voiceID == "" {
		e.voiceID = DefaultVoiceID
	}
	if e.modelID == "" {
		e.modelID = DefaultModelID
	}
	if e.baseURL == "" {
		e.baseURL = DefaultBaseURL
	}
	if cfg.Settings != nil {
		e.settings = *cfg.Settings
	}
	if e.http == nil {
		e.http = &http.Client{Timeout: 30 * time.Second}
	}
	return e, nil
}

func (e *ElevenLabs) Name() string {
	return "elevenlabs"
}

// Synthesize returns the MP3 audio for text.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(ttsRequest{
		Text:          text,
		ModelID:       e.modelID,
		VoiceSettings: e.settings,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := e.baseURL + "/v1/text-to-speech/" + e.voiceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("empty audio response")
	}
	return audio, nil
}

func (e *ElevenLabs) Speak(ctx context.Context, text string) error {
	audio, err := e.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	return e.player.Play(ctx, bytes.NewReader(audio))
}
