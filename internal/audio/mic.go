package audio

import (
	"context"
	"errors"
	log "log/slog"
	"strings"
	"sync"

	"jarvis/internal/speech"
)

// Source records one utterance of mono 16 kHz PCM.
type Source interface {
	RecordUtterance(ctx context.Context) ([]float32, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32) (string, error)
}

// MicRecognizer is a speech.Recognizer backed by a local microphone and a
// local transcriber. It keeps listening utterance after utterance until
// stopped.
type MicRecognizer struct {
	src Source
	stt Transcriber

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewMicRecognizer(src Source, stt Transcriber) *MicRecognizer {
	return &MicRecognizer{src: src, stt: stt}
}

func (m *MicRecognizer) Start(ctx context.Context, emit func(speech.Event)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return errors.New("microphone already listening")
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.loop(ctx, emit, m.done)
	return nil
}

// Stop ends the listening loop and waits for it to exit. The loop emits End
// on its way out; nothing is emitted after Stop returns.
func (m *MicRecognizer) Stop() error {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (m *MicRecognizer) loop(ctx context.Context, emit func(speech.Event), done chan struct{}) {
	defer close(done)

	for {
		pcm, err := m.src.RecordUtterance(ctx)
		if ctx.Err() != nil {
			emit(speech.Event{Kind: speech.End})
			return
		}
		if err != nil {
			emit(speech.Event{Kind: speech.Error, Err: err})
			return
		}
		if len(pcm) == 0 {
			continue
		}

		text, err := m.stt.Transcribe(ctx, pcm)
		if ctx.Err() != nil {
			emit(speech.Event{Kind: speech.End})
			return
		}
		if err != nil {
			emit(speech.Event{Kind: speech.Error, Err: err})
			return
		}

		text = strings.TrimSpace(text)
		if text == "" {
			log.Debug("Empty transcript, still listening")
			continue
		}
		emit(speech.Event{Kind: speech.Final, Text: text})
	}
}
