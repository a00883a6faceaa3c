// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"sync"
	"sync/atomic"
)

// Ramp is a deterministic source callback: every sample it produces is one
// larger than the previous one, starting at Start. All channels of a frame
// share the frame's value.
type Ramp struct {
	Start float32

	next  atomic.Int64 // next frame index
	calls atomic.Int64
}

// Fill has the shape of an output source callback.
func (r *Ramp) Fill(buf []float32, channels int) {
	frames := len(buf) / channels
	first := r.next.Add(int64(frames)) - int64(frames)
	for f := range frames {
		v := r.Start + float32(first+int64(f))
		for c := range channels {
			buf[f*channels+c] = v
		}
	}
	r.calls.Add(1)
}

// Frames returns how many frames have been produced so far.
func (r *Ramp) Frames() int64 { return r.next.Load() }

// Calls returns how many times Fill has run.
func (r *Ramp) Calls() int64 { return r.calls.Load() }

// Gate is a source callback that blocks inside Fill while closed. It lets
// tests hold the producer mid-fill.
type Gate struct {
	mu      sync.Mutex
	open    chan struct{}
	entered chan struct{}
	inner   func([]float32, int)
}

// NewGate wraps inner; the gate starts closed.
func NewGate(inner func([]float32, int)) *Gate {
	return &Gate{
		open:    make(chan struct{}),
		entered: make(chan struct{}, 1),
		inner:   inner,
	}
}

func (g *Gate) Fill(buf []float32, channels int) {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	g.mu.Lock()
	open := g.open
	g.mu.Unlock()
	<-open
	g.inner(buf, channels)
}

// Entered is signalled the first time a Fill call is waiting at the gate.
func (g *Gate) Entered() <-chan struct{} { return g.entered }

// Open releases every waiting and future Fill call.
func (g *Gate) Open() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.open:
	default:
		close(g.open)
	}
}
