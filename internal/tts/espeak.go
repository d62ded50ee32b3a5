// Package tts speaks text locally with espeak-ng.
package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <espeak-ng/speak_lib.h>

int
espeak_say(const char *text, const char *lang, int rate)
{
	if (!text || !lang)
	{ return -1; }

	if (espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0) < 0)
	{ return -2; }

	espeak_VOICE specs = { .languages = lang };
	espeak_SetVoiceByProperties(&specs);
	espeak_SetParameter(espeakRATE, rate, 0);

	espeak_Synth(text, 500, 0, 0, 0, espeakCHARS_AUTO, NULL, NULL);
	espeak_Synchronize();
	espeak_Terminate();

	return 0;
}
*/
import "C"

import (
	"context"
	"fmt"
	"sync"
	"unsafe"
)

// espeak-ng's default speaking rate in words per minute.
const defaultRate = 175

type Espeak struct {
	Language string
	// Rate scales espeak's default speed; 0.8 is a little slower.
	Rate float64

	mu sync.Mutex
}

func NewEspeak() *Espeak {
	return &Espeak{Language: "en", Rate: 0.8}
}

func (e *Espeak) Name() string {
	return "espeak"
}

// Speak blocks until the utterance has been played. The synthesis itself
// cannot be interrupted, so ctx is only checked before starting.
func (e *Espeak) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	clang := C.CString(e.Language)
	defer C.free(unsafe.Pointer(clang))

	rate := int(defaultRate * e.Rate)
	if rate <= 0 {
		rate = defaultRate
	}

	if rc := C.espeak_say(ctext, clang, C.int(rate)); rc != 0 {
		return fmt.Errorf("espeak_say failed: %d", int(rc))
	}
	return nil
}
