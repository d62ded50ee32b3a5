// Package capture reads the default input device through PortAudio.
package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"

	"jarvis/internal/audio"
)

const (
	SampleRate = 16000
	frameSize  = 320 // 20ms
)

type Recorder struct {
	// Threshold is the RMS level above which a frame counts as speech.
	Threshold float64
	Silence   time.Duration
	MaxLength time.Duration
}

func NewRecorder() *Recorder {
	return &Recorder{
		Threshold: 0.015,
		Silence:   600 * time.Millisecond,
		MaxLength: 10 * time.Second,
	}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// RecordUtterance blocks until someone has spoken and then paused, the
// maximum length is reached or ctx is done.
func (r *Recorder) RecordUtterance(ctx context.Context) ([]float32, error) {
	buf := make([]float32, frameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	defer stream.Stop()

	ep := audio.Endpointer{
		Threshold:     r.Threshold,
		SilenceFrames: int(r.Silence / (20 * time.Millisecond)),
	}

	out := make([]float32, 0, SampleRate*3)
	maxFrames := int(r.MaxLength/(20*time.Millisecond)) + 1

	// Leading silence does not count against the limit.
	for frames := 0; frames < maxFrames; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("read input stream: %w", err)
		}

		keep, done := ep.Feed(buf)
		if keep {
			out = append(out, buf...)
			frames++
		}
		if done {
			break
		}
	}
	return out, nil
}
