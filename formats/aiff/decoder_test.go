// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"errors"
	"io"
	"testing"

	goaudio "github.com/go-audio/audio"
)

// mockAiffReader simulates the aiff.Decoder for testing
type mockAiffReader struct {
	sampleRate int
	channels   int
	samples    []int
	offset     int
	failWith   error
}

func (m *mockAiffReader) Format() *goaudio.Format {
	return &goaudio.Format{SampleRate: m.sampleRate, NumChannels: m.channels}
}

func (m *mockAiffReader) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	if m.failWith != nil {
		return 0, m.failWith
	}
	if m.offset >= len(m.samples) {
		return 0, io.EOF
	}

	n := copy(buf.Data, m.samples[m.offset:])
	m.offset += n
	if m.offset >= len(m.samples) {
		return n, io.EOF
	}
	return n, nil
}

func TestDecoder_InvalidInput(t *testing.T) {
	t.Parallel()

	for _, data := range [][]byte{nil, []byte("This is not AIFF data")} {
		if _, err := (Decoder{}).Decode(bytes.NewReader(data)); !errors.Is(err, ErrNotAiffFile) {
			t.Errorf("Decode(%q) error = %v, want %v", data, err, ErrNotAiffFile)
		}
	}
}

func TestSource_ReadSamples(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		bitDepth int
		in       int
		want     float32
	}{
		{"8-bit", 8, 64, 0.5},
		{"16-bit", 16, -16384, -0.5},
		{"24-bit", 24, 4194304, 0.5},
		{"32-bit", 32, -1073741824, -0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := &mockAiffReader{sampleRate: 44100, channels: 1, samples: []int{tt.in}}
			s := &source{dec: m, sampleRate: 44100, channels: 1, bitDepth: tt.bitDepth}

			buf := make([]float32, 4)
			n, err := s.ReadSamples(buf)
			if err != nil {
				t.Fatalf("ReadSamples() error = %v", err)
			}
			if n != 1 || buf[0] != tt.want {
				t.Errorf("ReadSamples() = %d, %v; want 1, %v", n, buf[0], tt.want)
			}

			if _, err := s.ReadSamples(buf); !errors.Is(err, io.EOF) {
				t.Errorf("second ReadSamples() error = %v, want io.EOF", err)
			}
		})
	}
}

func TestSource_WholeFramesAndErrors(t *testing.T) {
	t.Parallel()

	m := &mockAiffReader{sampleRate: 48000, channels: 2, samples: []int{1, 2, 3, 4}}
	s := &source{dec: m, sampleRate: 48000, channels: 2, bitDepth: 16}

	n, err := s.ReadSamples(make([]float32, 3))
	if err != nil || n != 2 {
		t.Errorf("ReadSamples(3) = %d, %v; want 2, nil", n, err)
	}

	m.failWith = io.ErrUnexpectedEOF
	if _, err := s.ReadSamples(make([]float32, 2)); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadSamples() error = %v, want %v", err, io.ErrUnexpectedEOF)
	}

	if err := s.Rewind(); !errors.Is(err, ErrUnsupportedAiffLayout) {
		t.Errorf("Rewind() without input error = %v, want %v", err, ErrUnsupportedAiffLayout)
	}
}
