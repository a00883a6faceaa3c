// SPDX-License-Identifier: EPL-2.0

// Package audiotest holds fakes shared by the package tests.
package audiotest

import (
	"io"
	"math"
)

// Waveform returns the value of one sample given its frame index and channel.
type Waveform func(frame, channel int) float32

// MockSource is a finite in-memory source with the shape of audio.Source
// and audio.Rewinder. It does not import audio to keep the test graph
// acyclic.
type MockSource struct {
	rate, channels int
	frames         int
	pos            int
	wave           Waveform
	closed         bool
}

// NewMockSource returns a source of frames frames drawn from wave.
func NewMockSource(rate, channels, frames int, wave Waveform) *MockSource {
	return &MockSource{rate: rate, channels: channels, frames: frames, wave: wave}
}

func NewSilentSource(rate, channels, frames int) *MockSource {
	return NewConstantSource(rate, channels, frames, 0)
}

func NewConstantSource(rate, channels, frames int, v float32) *MockSource {
	return NewMockSource(rate, channels, frames, func(int, int) float32 { return v })
}

// NewSineSource produces the same sine on every channel.
func NewSineSource(rate, channels, frames int, hz float64) *MockSource {
	w := 2 * math.Pi * hz / float64(rate)
	return NewMockSource(rate, channels, frames, func(i, _ int) float32 {
		return float32(math.Sin(w * float64(i)))
	})
}

// NewIndexSource yields frame+channel/10 for every sample, which makes
// ordering mistakes visible.
func NewIndexSource(rate, channels, frames int) *MockSource {
	return NewMockSource(rate, channels, frames, func(i, c int) float32 {
		return float32(i) + float32(c)/10
	})
}

func (m *MockSource) SampleRate() int { return m.rate }
func (m *MockSource) Channels() int   { return m.channels }
func (m *MockSource) BufSize() int    { return 4096 }
func (m *MockSource) Close() error    { m.closed = true; return nil }
func (m *MockSource) Closed() bool    { return m.closed }
func (m *MockSource) Rewind() error   { m.pos = 0; return nil }

// ReadSamples fills dst with whole frames and reports io.EOF together with
// the last frames.
func (m *MockSource) ReadSamples(dst []float32) (int, error) {
	left := m.frames - m.pos
	if left <= 0 {
		return 0, io.EOF
	}
	n := min(len(dst)/m.channels, left)
	for f := range n {
		for c := range m.channels {
			dst[f*m.channels+c] = m.wave(m.pos+f, c)
		}
	}
	m.pos += n
	if m.pos >= m.frames {
		return n * m.channels, io.EOF
	}
	return n * m.channels, nil
}
