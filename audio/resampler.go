// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"slices"

	"github.com/ik5/audout/utils"
)

// StreamResampler converts fixed-size blocks of interleaved input-rate
// audio into output-rate frames using cubic interpolation.
//
// It is push based: every Write appends exactly one input block, and Read
// drains whatever converted frames are available. A single block does not
// necessarily yield a whole output block, so callers alternate Write and
// Read until they have collected what they need.
//
// A StreamResampler keeps history across writes and is not safe for
// concurrent use.
type StreamResampler struct {
	channels    int
	inputFrames int
	inRate      int
	outRate     int
	step        float64 // input frames advanced per output frame

	// hist holds interleaved input frames still needed for interpolation.
	// hist frame 0 is the left neighbour (t-1) of the next output position.
	hist   []float32
	pos    float64 // fractional position of the next output frame, relative to hist frame 1
	primed bool

	// out holds converted frames not yet handed out by Read.
	out []float32

	// Simple low-pass filter state for anti-aliasing (when downsampling)
	filterState []float32
	useFilter   bool
	filterAlpha float32
}

// NewStreamResampler creates a converter that accepts blocks of
// inputFrames frames with the given channel count at inRate and produces
// frames at outRate.
func NewStreamResampler(inputFrames, channels, inRate, outRate int) (*StreamResampler, error) {
	if inputFrames <= 0 {
		return nil, ErrInvalidFrames
	}
	if channels <= 0 {
		return nil, ErrInvalidChannels
	}
	if inRate <= 0 || outRate <= 0 {
		return nil, fmt.Errorf("%w: %d -> %d", ErrInvalidRate, inRate, outRate)
	}

	step := float64(inRate) / float64(outRate)

	// Enable simple low-pass filter when downsampling
	useFilter := step > 1.0
	var filterAlpha float32
	if useFilter {
		// Cutoff roughly at the Nyquist frequency of the destination rate.
		filterAlpha = 0.5
	}

	perBlockOut := int(float64(inputFrames)/step) + 2

	return &StreamResampler{
		channels:    channels,
		inputFrames: inputFrames,
		inRate:      inRate,
		outRate:     outRate,
		step:        step,
		hist:        make([]float32, 0, (inputFrames+4)*channels),
		out:         make([]float32, 0, 2*perBlockOut*channels),
		filterState: make([]float32, channels),
		useFilter:   useFilter,
		filterAlpha: filterAlpha,
	}, nil
}

func (r *StreamResampler) Channels() int      { return r.channels }
func (r *StreamResampler) InputFrames() int   { return r.inputFrames }
func (r *StreamResampler) InputRate() int     { return r.inRate }
func (r *StreamResampler) OutputRate() int    { return r.outRate }
func (r *StreamResampler) Ratio() float64     { return float64(r.outRate) / float64(r.inRate) }
func (r *StreamResampler) PendingFrames() int { return len(r.out) / r.channels }

// Write appends one block of exactly InputFrames()*Channels() samples and
// converts as many output frames as the accumulated history allows.
func (r *StreamResampler) Write(block []float32) error {
	if len(block) != r.inputFrames*r.channels {
		return fmt.Errorf("%w: got %d samples, want %d",
			ErrInvalidBlockSize, len(block), r.inputFrames*r.channels)
	}

	ch := r.channels
	start := len(r.hist)
	if !r.primed {
		// Duplicate the first frame as left history, and seed the filter
		// with it to avoid a warm-up transient.
		copy(r.filterState, block[:ch])
		r.hist = append(r.hist, block[:ch]...)
		start = len(r.hist)
		r.primed = true
	}
	r.hist = append(r.hist, block...)

	if r.useFilter {
		for i := start; i < len(r.hist); i += ch {
			for c := range ch {
				// One-pole low-pass: y[n] = alpha * x[n] + (1-alpha) * y[n-1]
				v := r.filterAlpha*r.hist[i+c] + (1-r.filterAlpha)*r.filterState[c]
				r.hist[i+c] = v
				r.filterState[c] = v
			}
		}
	}

	r.convert()
	return nil
}

// convert interpolates every output frame whose four neighbours are
// available, then drops history that is no longer referenced.
func (r *StreamResampler) convert() {
	ch := r.channels
	frames := len(r.hist) / ch

	for {
		ip := int(r.pos)
		if ip+3 >= frames {
			break
		}

		base := len(r.out)
		r.out = slices.Grow(r.out, ch)[:base+ch]
		utils.CubicInterpolateFrame(
			r.out[base:base+ch],
			r.hist[ip*ch:(ip+1)*ch],
			r.hist[(ip+1)*ch:(ip+2)*ch],
			r.hist[(ip+2)*ch:(ip+3)*ch],
			r.hist[(ip+3)*ch:(ip+4)*ch],
			float32(r.pos-float64(ip)),
		)
		r.pos += r.step
	}

	if drop := int(r.pos); drop > 0 {
		if drop > frames {
			drop = frames
		}
		n := copy(r.hist, r.hist[drop*ch:])
		r.hist = r.hist[:n]
		r.pos -= float64(drop)
	}
}

// Read moves up to maxFrames converted frames into dst and returns the
// number of frames moved. dst must have room for maxFrames frames; a
// shorter dst limits the count.
func (r *StreamResampler) Read(dst []float32, maxFrames int) int {
	n := min(maxFrames, len(r.out)/r.channels, len(dst)/r.channels)
	if n <= 0 {
		return 0
	}

	samples := n * r.channels
	copy(dst[:samples], r.out[:samples])
	rest := copy(r.out, r.out[samples:])
	r.out = r.out[:rest]
	return n
}

// Reset discards history and pending output so the converter can start a
// new, unrelated stream.
func (r *StreamResampler) Reset() {
	r.hist = r.hist[:0]
	r.out = r.out[:0]
	r.pos = 0
	r.primed = false
	clear(r.filterState)
}
