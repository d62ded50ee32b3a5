package voice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name string
	err  error

	mu    sync.Mutex
	texts []string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Speak(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return f.err
}

type fakePlayer struct {
	played [][]byte
	err    error
}

func (f *fakePlayer) Play(_ context.Context, audio io.Reader) error {
	data, err := io.ReadAll(audio)
	if err != nil {
		return err
	}
	f.played = append(f.played, data)
	return f.err
}

func TestChainFallsBackToLocal(t *testing.T) {
	network := &fakeProvider{name: "elevenlabs", err: errors.New("401 unauthorized")}
	local := &fakeProvider{name: "espeak"}

	err := NewChain(network, local).Speak(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello"}, network.texts)
	assert.Equal(t, []string{"Hello"}, local.texts)
}

func TestChainStopsAtFirstSuccess(t *testing.T) {
	network := &fakeProvider{name: "elevenlabs"}
	local := &fakeProvider{name: "espeak"}

	require.NoError(t, NewChain(network, nil, local).Speak(context.Background(), "Hello"))
	assert.Equal(t, []string{"Hello"}, network.texts)
	assert.Empty(t, local.texts)
}

func TestChainAllFail(t *testing.T) {
	a := &fakeProvider{name: "a", err: errors.New("down")}
	b := &fakeProvider{name: "b", err: errors.New("missing")}

	err := NewChain(a, b).Speak(context.Background(), "Hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a: down")
	assert.Contains(t, err.Error(), "b: missing")
}

func TestChainEdgeCases(t *testing.T) {
	p := &fakeProvider{name: "p"}
	c := NewChain(p)

	assert.NoError(t, c.Speak(context.Background(), "   "))
	assert.Empty(t, p.texts)

	assert.Error(t, NewChain().Speak(context.Background(), "Hello"))
	assert.Equal(t, "a>b", NewChain(&fakeProvider{name: "a"}, &fakeProvider{name: "b"}).Name())
}

func TestElevenLabsSpeak(t *testing.T) {
	var got ttsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/text-to-speech/voice-123", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))
		assert.Equal(t, "audio/mpeg", r.Header.Get("Accept"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3fake-mp3"))
	}))
	defer srv.Close()

	player := &fakePlayer{}
	el, err := NewElevenLabs(ElevenLabsConfig{
		APIKey:  "secret",
		VoiceID: "voice-123",
		BaseURL: srv.URL + "/",
	}, player)
	require.NoError(t, err)

	require.NoError(t, el.Speak(context.Background(), "Opening Calculator"))
	assert.Equal(t, [][]byte{[]byte("ID3fake-mp3")}, player.played)
	assert.Equal(t, "Opening Calculator", got.Text)
	assert.Equal(t, DefaultModelID, got.ModelID)
	assert.Equal(t, DefaultVoiceSettings(), got.VoiceSettings)
}

func TestElevenLabsFailureFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"quota_exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	player := &fakePlayer{}
	el, err := NewElevenLabs(ElevenLabsConfig{APIKey: "secret", BaseURL: srv.URL}, player)
	require.NoError(t, err)

	err = el.Speak(context.Background(), "Hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Empty(t, player.played)

	local := &fakeProvider{name: "espeak"}
	require.NoError(t, NewChain(el, local).Speak(context.Background(), "Hello"))
	assert.Equal(t, []string{"Hello"}, local.texts)
}

func TestNewElevenLabsRequiresKey(t *testing.T) {
	_, err := NewElevenLabs(ElevenLabsConfig{}, &fakePlayer{})
	assert.ErrorIs(t, err, ErrNoAPIKey)
}
