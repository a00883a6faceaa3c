// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// maxIdleReads bounds how many consecutive empty reads Fill tolerates
// before it pads the block with silence.
const maxIdleReads = 3

// Feeder turns a pull-based Source into a block callback: Fill always
// produces exactly len(buf) samples, padding with silence once the source
// is exhausted. Its Fill method has the shape of an output source callback.
//
// Fill is meant to be called from a single goroutine; Done and Err may be
// called from anywhere.
type Feeder struct {
	src   Source
	loop  bool
	mixer *ChannelMixer

	done atomic.Bool
	mu   sync.Mutex
	err  error
}

// NewFeeder wraps src. With loop set, a source that implements Rewinder is
// restarted at EOF instead of going silent.
func NewFeeder(src Source, loop bool) *Feeder {
	return &Feeder{src: src, loop: loop}
}

// Fill writes exactly len(buf) interleaved samples with the given channel
// count into buf.
func (f *Feeder) Fill(buf []float32, channels int) {
	if f.done.Load() || channels <= 0 || len(buf)%channels != 0 {
		clear(buf)
		return
	}
	if f.mixer == nil || f.mixer.Channels() != channels {
		f.mixer = NewChannelMixer(f.src, channels)
	}

	filled := 0
	idle := 0
	rewound := false
	for filled < len(buf) {
		n, err := f.mixer.ReadSamples(buf[filled:])
		filled += n
		if n > 0 {
			idle = 0
			rewound = false
		}

		switch {
		case errors.Is(err, io.EOF):
			if !f.loop || rewound || !f.rewind() {
				f.done.Store(true)
				clear(buf[filled:])
				return
			}
			// A rewind that yields nothing means the source is empty.
			rewound = true
		case err != nil:
			f.fail(fmt.Errorf("reading source: %w", err))
			clear(buf[filled:])
			return
		case n == 0:
			idle++
			if idle >= maxIdleReads {
				clear(buf[filled:])
				return
			}
		}
	}
}

func (f *Feeder) rewind() bool {
	rw, ok := f.src.(Rewinder)
	if !ok {
		return false
	}
	if err := rw.Rewind(); err != nil {
		f.fail(fmt.Errorf("rewinding source: %w", err))
		return false
	}
	return true
}

func (f *Feeder) fail(err error) {
	f.mu.Lock()
	if f.err == nil {
		f.err = err
	}
	f.mu.Unlock()
	f.done.Store(true)
}

// Done reports whether the source has been exhausted or failed.
func (f *Feeder) Done() bool { return f.done.Load() }

// Err returns the first read error, if any. EOF is not an error.
func (f *Feeder) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// SampleRate is the rate Fill produces samples at.
func (f *Feeder) SampleRate() int { return f.src.SampleRate() }

// Close closes the underlying source.
func (f *Feeder) Close() error {
	f.done.Store(true)
	if err := f.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}
