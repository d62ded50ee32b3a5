// Package playback plays synthesized speech and short cues on the default
// audio device.
package playback

import (
	"context"
	"fmt"
	"io"
	log "log/slog"
	"math"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

// Ducker lowers other applications' volume while the assistant talks.
type Ducker interface {
	DuckOthers(ctx context.Context, factor float64, duration time.Duration) error
	UnduckOthers(ctx context.Context, duration time.Duration) error
}

type Speaker struct {
	mu     sync.Mutex
	ready  bool
	ducker Ducker
}

// NewSpeaker returns a speaker; ducker may be nil.
func NewSpeaker(ducker Ducker) *Speaker {
	return &Speaker{ducker: ducker}
}

func (s *Speaker) init() error {
	if s.ready {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	s.ready = true
	return nil
}

// Play decodes MP3 audio and blocks until it has been played.
func (s *Speaker) Play(ctx context.Context, audio io.Reader) error {
	streamer, format, err := mp3.Decode(io.NopCloser(audio))
	if err != nil {
		return fmt.Errorf("decode mp3: %w", err)
	}
	defer streamer.Close()

	var src beep.Streamer = streamer
	if format.SampleRate != sampleRate {
		src = beep.Resample(4, format.SampleRate, sampleRate, streamer)
	}

	if s.ducker != nil {
		if err := s.ducker.DuckOthers(ctx, 0.3, 200*time.Millisecond); err != nil {
			log.Debug("Failed to duck", "err", err)
		}
		defer func() {
			if err := s.ducker.UnduckOthers(context.Background(), 300*time.Millisecond); err != nil {
				log.Debug("Failed to unduck", "err", err)
			}
		}()
	}

	return s.play(ctx, src)
}

// Chime plays a short tone, used when listening starts.
func (s *Speaker) Chime(ctx context.Context) error {
	return s.play(ctx, beep.Take(sampleRate.N(120*time.Millisecond), tone(880)))
}

func (s *Speaker) play(ctx context.Context, src beep.Streamer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.init(); err != nil {
		return err
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(src, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

func tone(freq float64) beep.Streamer {
	var pos int
	step := 2 * math.Pi * freq / float64(sampleRate)
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			v := 0.2 * math.Sin(step*float64(pos))
			samples[i] = [2]float64{v, v}
			pos++
		}
		return len(samples), true
	})
}
