// SPDX-License-Identifier: EPL-2.0

// Package clock paces a device's consumer side with a software timer. Each
// tick pulls one block from the device and hands it to a Sink, standing in
// for a hardware callback.
package clock

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/audout/output"
)

var (
	ErrClosed      = errors.New("clock stream is closed")
	ErrNilSink     = errors.New("sink is nil")
	ErrEmptyFormat = errors.New("source reports an empty format")
)

// Sink receives every block pulled from the device, silence included.
// WriteFrames must not keep samples after it returns.
type Sink interface {
	WriteFrames(samples []float32) error
	Close() error
}

type Stats struct {
	Periods    uint64
	Underruns  uint64
	SinkErrors uint64
}

type Option func(*Stream)

func WithLogger(l *slog.Logger) Option {
	return func(s *Stream) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPeriod overrides the tick interval, which defaults to the duration
// of one block.
func WithPeriod(d time.Duration) Option {
	return func(s *Stream) {
		if d > 0 {
			s.period = d
		}
	}
}

// Stream implements output.Stream.
type Stream struct {
	src    output.Puller
	sink   Sink
	period time.Duration
	logger *slog.Logger
	buf    []float32

	mu     sync.Mutex
	stop   chan struct{}
	done   chan struct{}
	closed bool

	periods    atomic.Uint64
	underruns  atomic.Uint64
	sinkErrors atomic.Uint64
}

func New(src output.Puller, sink Sink, opts ...Option) (*Stream, error) {
	if sink == nil {
		return nil, ErrNilSink
	}
	f := src.Format()
	if f.Samples() <= 0 || f.Period() <= 0 {
		return nil, fmt.Errorf("%w: %+v", ErrEmptyFormat, f)
	}

	s := &Stream{
		src:    src,
		sink:   sink,
		period: f.Period(),
		logger: slog.Default(),
		buf:    make([]float32, f.Samples()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "clock")
	return s, nil
}

func (s *Stream) Stats() Stats {
	return Stats{
		Periods:    s.periods.Load(),
		Underruns:  s.underruns.Load(),
		SinkErrors: s.sinkErrors.Load(),
	}
}

func (s *Stream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.stop != nil {
		return nil
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stop, s.done)
	return nil
}

func (s *Stream) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	failing := false
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		res, err := s.src.PullInto(s.buf)
		if errors.Is(err, output.ErrClosed) {
			s.logger.Debug("source closed, clock exiting")
			return
		}
		s.periods.Add(1)
		if res == output.Underrun {
			s.underruns.Add(1)
		}

		if err := s.sink.WriteFrames(s.buf); err != nil {
			s.sinkErrors.Add(1)
			// Log the first error of a run of failures only.
			if !failing {
				s.logger.Warn("sink write failed", "error", err)
			}
			failing = true
			continue
		}
		failing = false
	}
}

// Stop halts the ticker goroutine and waits for it.
func (s *Stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	return nil
}

func (s *Stream) stopLocked() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.stop, s.done = nil, nil
}

// Close stops the stream and closes the sink.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.stopLocked()
	s.closed = true

	if err := s.sink.Close(); err != nil {
		return fmt.Errorf("closing sink: %w", err)
	}
	return nil
}
