// SPDX-License-Identifier: EPL-2.0

package output

import (
	"fmt"
	"log/slog"
	"time"
)

// filler is the producer side of a device. One filler lives for one
// Start/Stop cycle and owns the converter and input scratch block.
type filler struct {
	dev  *Device
	ring *ring
	cb   SourceFunc
	cfg  Config

	conv    Converter // nil without resampling
	in      []float32
	frames  int // output frames per block
	backoff time.Duration
	timer   *time.Timer

	stop <-chan struct{}
	done chan<- struct{}

	logger *slog.Logger
	m      *deviceMetrics
}

func (f *filler) run() {
	defer close(f.done)
	defer f.timer.Stop()
	defer func() {
		if p := recover(); p != nil {
			f.logger.Error("fill loop panicked, device will play silence until stopped",
				"panic", p)
		}
	}()

	idx := int(f.dev.producer.Load())
	for {
		select {
		case <-f.stop:
			return
		default:
		}

		if f.ring.ready(idx) {
			f.dev.stalls.Add(1)
			if f.m != nil {
				f.m.stalls.Inc()
			}
			if !f.sleep() {
				return
			}
			continue
		}

		start := time.Now()
		if err := f.fill(f.ring.slots[idx]); err != nil {
			f.logger.Error("fill loop stopped", "error", err)
			return
		}
		f.ring.publish(idx)
		idx = f.ring.next(idx)
		f.dev.producer.Store(int64(idx))

		f.dev.fills.Add(1)
		if f.m != nil {
			f.m.blocks.Inc()
			f.m.fillDuration.Observe(time.Since(start).Seconds())
		}
	}
}

// sleep waits one input period or until stop. It reports false on stop.
func (f *filler) sleep() bool {
	f.timer.Reset(f.backoff)
	select {
	case <-f.stop:
		return false
	case <-f.timer.C:
		return true
	}
}

func (f *filler) fill(slot []float32) error {
	ch := f.cfg.Channels
	if f.conv == nil {
		f.cb(slot, ch)
		return nil
	}

	// Frames left over from the previous block go first, so the converter
	// never holds more than one block of output.
	got := f.conv.Read(slot, f.frames)
	for got < f.frames {
		f.cb(f.in, ch)
		if err := f.conv.Write(f.in); err != nil {
			return fmt.Errorf("converter write: %w", err)
		}
		got += f.conv.Read(slot[got*ch:], f.frames-got)
	}
	return nil
}
