// Package audioconv decodes recorded utterances (WAV, MP3, Ogg Vorbis, Ogg
// Opus) into mono 16 kHz float32 PCM for the transcriber.
package audioconv

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"

	"jarvis/internal/audio"
)

// MaxSamples caps a decoded utterance at 30 seconds.
const MaxSamples = 30 * audio.WhisperRate

func DecodeFile(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(f, filepath.Ext(path))
}

// Decode picks a decoder from ext, sniffing the header when the extension
// is not recognized.
func Decode(r io.ReadSeeker, ext string) ([]float32, error) {
	switch strings.ToLower(ext) {
	case ".wav":
		return decodeWAV(r)
	case ".mp3":
		return decodeMP3(r)
	case ".ogg", ".oga", ".opus":
		return decodeOgg(r)
	}

	magic, _ := bufio.NewReader(r).Peek(4)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	switch string(magic) {
	case "RIFF":
		return decodeWAV(r)
	case "OggS":
		return decodeOgg(r)
	}
	return nil, fmt.Errorf("unsupported format %q (supported: wav, mp3, ogg vorbis/opus)", ext)
}

func decodeWAV(r io.ReadSeeker) ([]float32, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav")
	}
	pb, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read wav: %w", err)
	}
	if pb == nil || len(pb.Data) == 0 {
		return nil, errors.New("empty wav")
	}

	channels, rate := 1, 44100
	if pb.Format != nil {
		channels = max(pb.Format.NumChannels, 1)
		if pb.Format.SampleRate > 0 {
			rate = pb.Format.SampleRate
		}
	}
	x := audio.IntToFloat(pb.Data, int(dec.BitDepth))
	return audio.ToWhisper(x, channels, rate, MaxSamples), nil
}

func decodeMP3(r io.Reader) ([]float32, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("read mp3: %w", err)
	}
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}

	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &ints); err != nil {
		return nil, err
	}

	rate := dec.SampleRate()
	if rate <= 0 {
		rate = 44100
	}
	// go-mp3 always produces 16-bit stereo.
	return audio.ToWhisper(audio.Int16ToFloat(ints), 2, rate, MaxSamples), nil
}

// decodeOgg tries Vorbis first and falls back to Opus.
func decodeOgg(r io.ReadSeeker) ([]float32, error) {
	pcm, format, vorbisErr := oggvorbis.ReadAll(r)
	if vorbisErr == nil && format != nil && format.Channels > 0 && format.SampleRate > 0 {
		return audio.ToWhisper(pcm, format.Channels, format.SampleRate, MaxSamples), nil
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	x, opusErr := decodeOpus(r)
	if opusErr != nil {
		return nil, fmt.Errorf("ogg is neither vorbis (%v) nor opus (%w)", vorbisErr, opusErr)
	}
	return x, nil
}

func decodeOpus(r io.ReadSeeker) ([]float32, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	defer dec.Destroy()

	channels := max(dec.ChannelCount(), 1)

	// Opus always decodes at 48 kHz.
	var pcm []float32
	buf := make([]int16, 24000*channels)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pcm = append(pcm, audio.Int16ToFloat(buf[:n*channels])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if len(pcm) == 0 {
		return nil, errors.New("empty opus stream")
	}
	return audio.ToWhisper(pcm, channels, 48000, MaxSamples), nil
}
