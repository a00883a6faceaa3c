// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/ik5/audout/utils"
)

const bitDepth16 = 16

// Writer streams interleaved 16-bit PCM into a WAV container. The header
// is finalised by Close, which is why the destination must be seekable.
type Writer struct {
	enc        *wav.Encoder
	sampleRate int
	channels   int
	buf        *goaudio.IntBuffer
	frames     int
	closed     bool
}

// NewWriter starts a 16-bit PCM WAV stream on w.
func NewWriter(w io.WriteSeeker, sampleRate, channels int) (*Writer, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: rate=%d channels=%d", ErrInvalidFormat, sampleRate, channels)
	}

	return &Writer{
		enc:        wav.NewEncoder(w, sampleRate, bitDepth16, channels, pcmFormat),
		sampleRate: sampleRate,
		channels:   channels,
		buf: &goaudio.IntBuffer{
			Data:           make([]int, 0, 4096),
			Format:         &goaudio.Format{SampleRate: sampleRate, NumChannels: channels},
			SourceBitDepth: bitDepth16,
		},
	}, nil
}

func (w *Writer) SampleRate() int { return w.sampleRate }
func (w *Writer) Channels() int   { return w.channels }

// Frames returns the number of frames written so far.
func (w *Writer) Frames() int { return w.frames }

// WriteFloat32 converts samples in [-1, 1] to 16-bit PCM and appends them.
func (w *Writer) WriteFloat32(samples []float32) error {
	if err := w.check(len(samples)); err != nil {
		return err
	}

	w.buf.Data = w.buf.Data[:0]
	for _, s := range samples {
		w.buf.Data = append(w.buf.Data, int(utils.Float32ToInt16(s)))
	}
	return w.flush(len(samples))
}

// WriteInt16 appends 16-bit PCM samples.
func (w *Writer) WriteInt16(samples []int16) error {
	if err := w.check(len(samples)); err != nil {
		return err
	}

	w.buf.Data = w.buf.Data[:0]
	for _, s := range samples {
		w.buf.Data = append(w.buf.Data, int(s))
	}
	return w.flush(len(samples))
}

func (w *Writer) check(n int) error {
	if w.closed {
		return ErrWriterClosed
	}
	if n%w.channels != 0 {
		return fmt.Errorf("%w: %d samples, %d channels", ErrPartialFrame, n, w.channels)
	}
	return nil
}

func (w *Writer) flush(n int) error {
	if n == 0 {
		return nil
	}
	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("%w", err)
	}
	w.frames += n / w.channels
	return nil
}

// Close writes the final header sizes. It does not close the destination.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// WriteWAV16 writes a complete 16-bit PCM WAV with the given channel count.
func WriteWAV16(w io.WriteSeeker, sampleRate, channels int, samples []int16) error {
	wr, err := NewWriter(w, sampleRate, channels)
	if err != nil {
		return err
	}
	if err := wr.WriteInt16(samples); err != nil {
		return err
	}
	return wr.Close()
}
