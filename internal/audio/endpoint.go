// Package audio holds the host-side audio plumbing: utterance endpointing,
// the microphone recognizer and ducking of other applications.
package audio

import "math"

// Endpointer detects the end of an utterance in a stream of PCM frames by
// waiting for a run of quiet frames after speech has started.
type Endpointer struct {
	Threshold     float64
	SilenceFrames int

	speaking bool
	quiet    int
}

// Feed reports whether frame belongs to the utterance and whether the
// utterance is complete.
func (e *Endpointer) Feed(frame []float32) (keep, done bool) {
	if RMS(frame) > e.Threshold {
		e.speaking = true
		e.quiet = 0
		return true, false
	}
	if !e.speaking {
		return false, false
	}
	e.quiet++
	return true, e.quiet >= e.SilenceFrames
}

func (e *Endpointer) Reset() {
	e.speaking = false
	e.quiet = 0
}

func RMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s / float64(len(f)))
}
