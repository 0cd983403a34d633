// Package buzzer renders the sound timer as audio.
package buzzer

import (
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	DEFAULT_SAMPLE_RATE = 44100 // Samples per second.
	DEFAULT_TICK_RATE   = 60    // Timer ticks per second.
	DEFAULT_TONE        = 440   // Square wave frequency, in Hz.
	DEFAULT_VOLUME      = 8000  // Square wave amplitude, of 32767.

	bitDepth = 16
)

// Wav records the buzzer as a mono 16-bit PCM WAV stream. Each timer tick
// adds one tick worth of square wave or silence.
type Wav struct {
	SampleRate int // Fixed at creation.
	TickRate   int
	Tone       int
	Volume     int

	enc     *wav.Encoder
	ticks   int // Ticks recorded.
	samples int // Samples recorded.
}

// NewWav creates a recorder writing to ws. A zero sample rate selects
// DEFAULT_SAMPLE_RATE.
func NewWav(ws io.WriteSeeker, sampleRate int) (w *Wav) {
	if sampleRate <= 0 {
		sampleRate = DEFAULT_SAMPLE_RATE
	}

	w = &Wav{
		SampleRate: sampleRate,
		TickRate:   DEFAULT_TICK_RATE,
		Tone:       DEFAULT_TONE,
		Volume:     DEFAULT_VOLUME,
	}
	w.enc = wav.NewEncoder(ws, w.SampleRate, bitDepth, 1, 1)

	return
}

// Ticks returns the number of timer ticks recorded.
func (w *Wav) Ticks() int {
	return w.ticks
}

func (w *Wav) buffer(data []int) *audio.IntBuffer {
	return &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  w.SampleRate,
		},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
}

// Buzz appends one timer tick of tone when active, or silence when not.
// A TickRate or Tone of zero or less selects the default.
func (w *Wav) Buzz(active bool) (err error) {
	tickRate := w.TickRate
	if tickRate <= 0 {
		tickRate = DEFAULT_TICK_RATE
	}
	tone := w.Tone
	if tone <= 0 {
		tone = DEFAULT_TONE
	}

	w.ticks++
	count := max(w.ticks*w.SampleRate/tickRate-w.samples, 0)

	data := make([]int, count)
	if active {
		half := max(w.SampleRate/tone/2, 1)
		for n := range data {
			if ((w.samples+n)/half)%2 == 0 {
				data[n] = w.Volume
			} else {
				data[n] = -w.Volume
			}
		}
	}
	w.samples += count

	err = w.enc.Write(w.buffer(data))
	return
}

// Close finalises the WAV header. The underlying writer is not closed.
func (w *Wav) Close() (err error) {
	if w.ticks == 0 {
		err = w.enc.Write(w.buffer(nil))
		if err != nil {
			return
		}
	}

	err = w.enc.Close()
	return
}
