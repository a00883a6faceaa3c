// SPDX-License-Identifier: EPL-2.0

package output

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// SourceFunc fills buf with exactly len(buf)/channels interleaved frames at
// the configured input rate. It runs on the fill goroutine.
type SourceFunc func(buf []float32, channels int)

type State int32

const (
	StateUninitialized State = iota
	StateReady
	StateRunning
	StateStopped
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

type PullResult int

const (
	Delivered PullResult = iota
	Underrun
)

func (r PullResult) String() string {
	if r == Delivered {
		return "delivered"
	}
	return "underrun"
}

// Stats are running totals since Init.
type Stats struct {
	Delivered uint64
	Underruns uint64
	Stalls    uint64
	Fills     uint64
}

// Device produces fixed-size blocks ahead of playback on a background
// goroutine and hands them to a consumer through PullInto.
//
// Start, Stop and Close are serialised with each other. PullInto never
// takes that lock, never blocks and never allocates, so it may be called
// from a hardware callback.
type Device struct {
	id           string
	logger       *slog.Logger
	metrics      *Metrics
	m            *deviceMetrics
	newConverter ConverterFunc

	mu     sync.Mutex
	cfg    Config
	cb     SourceFunc
	stream Stream
	stop   chan struct{}
	done   chan struct{}

	state atomic.Int32
	ring  atomic.Pointer[ring]

	// producer is written only by the fill goroutine, consumer only by
	// PullInto. Both survive Stop so a restart continues in order.
	producer atomic.Int64
	consumer atomic.Int64

	delivered atomic.Uint64
	underruns atomic.Uint64
	stalls    atomic.Uint64
	fills     atomic.Uint64
}

func NewDevice(opts ...Option) *Device {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}

	d := &Device{
		id:           o.id,
		logger:       o.logger.With("component", "output", "device", o.id),
		metrics:      o.metrics,
		newConverter: o.newConverter,
	}
	if o.metrics != nil {
		d.m = o.metrics.forDevice(o.id)
	}
	return d
}

func (d *Device) ID() string   { return d.id }
func (d *Device) State() State { return State(d.state.Load()) }

func (d *Device) Config() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Format is the output block shape. It is zero before Init.
func (d *Device) Format() Format {
	return d.Config().Format()
}

func (d *Device) Stats() Stats {
	return Stats{
		Delivered: d.delivered.Load(),
		Underruns: d.underruns.Load(),
		Stalls:    d.stalls.Load(),
		Fills:     d.fills.Load(),
	}
}

// Init validates cfg and allocates the ring. On failure the device stays
// uninitialized.
func (d *Device) Init(cb SourceFunc, cfg Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.State() {
	case StateUninitialized:
	case StateClosed:
		return ErrClosed
	default:
		return ErrAlreadyInitialized
	}

	if cb == nil {
		return fmt.Errorf("%w: nil source callback", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	d.cfg = cfg
	d.cb = cb
	d.ring.Store(newRing(cfg.Capacity(), cfg.OutputFrames()*cfg.Channels))
	d.state.Store(int32(StateReady))

	d.logger.Info("device initialized",
		"input_frames", cfg.InputFrames,
		"input_rate", cfg.InputRate,
		"output_frames", cfg.OutputFrames(),
		"output_rate", cfg.OutputRate,
		"channels", cfg.Channels,
		"mix_ahead", cfg.MixAhead)
	return nil
}

// attach hands the device a backend stream that is started, stopped and
// closed together with it.
func (d *Device) attach(s Stream) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stream = s
}

// Start launches the fill goroutine and then the attached stream, if any.
// A stopped device resumes where it left off.
func (d *Device) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.State() {
	case StateUninitialized:
		return ErrNotInitialized
	case StateRunning:
		return ErrAlreadyRunning
	case StateClosed:
		return ErrClosed
	}

	f := &filler{
		dev:     d,
		ring:    d.ring.Load(),
		cb:      d.cb,
		cfg:     d.cfg,
		frames:  d.cfg.OutputFrames(),
		backoff: d.cfg.inputPeriod(),
		logger:  d.logger,
		m:       d.m,
	}
	if d.cfg.Resampling() {
		conv, err := d.newConverter(d.cfg)
		if err != nil {
			return fmt.Errorf("creating converter: %w", err)
		}
		f.conv = conv
		f.in = make([]float32, d.cfg.InputFrames*d.cfg.Channels)
	}

	f.timer = time.NewTimer(f.backoff)
	f.timer.Stop()

	stop := make(chan struct{})
	done := make(chan struct{})
	f.stop = stop
	f.done = done
	d.stop, d.done = stop, done

	go f.run()

	if d.stream != nil {
		if err := d.stream.Start(); err != nil {
			d.joinFill()
			return fmt.Errorf("starting stream: %w", err)
		}
	}

	d.state.Store(int32(StateRunning))
	if d.m != nil {
		d.m.running.Set(1)
	}
	d.logger.Info("device started")
	return nil
}

// Stop halts the stream and waits for the fill goroutine, which notices
// within one iteration. It is a no-op unless the device is running.
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopLocked()
}

func (d *Device) stopLocked() error {
	if d.State() != StateRunning {
		return nil
	}

	var err error
	if d.stream != nil {
		if serr := d.stream.Stop(); serr != nil {
			err = fmt.Errorf("stopping stream: %w", serr)
		}
	}
	d.joinFill()

	d.state.Store(int32(StateStopped))
	if d.m != nil {
		d.m.running.Set(0)
	}
	d.logger.Info("device stopped", "stats", d.Stats())
	return err
}

func (d *Device) joinFill() {
	close(d.stop)
	<-d.done
	d.stop, d.done = nil, nil
}

// Close stops the device, closes its stream and drops the ring. Closing
// twice is fine.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.State() == StateClosed {
		return nil
	}

	errs := []error{d.stopLocked()}
	if d.stream != nil {
		if err := d.stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing stream: %w", err))
		}
		d.stream = nil
	}

	d.ring.Store(nil)
	d.cb = nil
	d.state.Store(int32(StateClosed))
	if d.metrics != nil {
		d.metrics.forget(d.id)
	}
	d.logger.Info("device closed")
	return errors.Join(errs...)
}

// PullInto copies the next ready block into dst and frees its slot. When
// no block is ready dst is silenced and Underrun is returned; the next
// call retries the same slot. dst must hold at least one output block;
// samples past the block are zeroed.
//
// Errors report misuse only, and always come with a silenced dst.
func (d *Device) PullInto(dst []float32) (PullResult, error) {
	r := d.ring.Load()
	if r == nil {
		clear(dst)
		if d.State() == StateClosed {
			return Underrun, ErrClosed
		}
		return Underrun, ErrNotInitialized
	}
	if len(dst) < r.samples {
		clear(dst)
		return Underrun, ErrDestinationSize
	}

	i := int(d.consumer.Load())
	if !r.ready(i) {
		clear(dst)
		d.underruns.Add(1)
		if d.m != nil {
			d.m.underruns.Inc()
		}
		return Underrun, nil
	}

	n := copy(dst, r.slots[i])
	clear(dst[n:])
	r.release(i)
	d.consumer.Store(int64(r.next(i)))

	d.delivered.Add(1)
	if d.m != nil {
		d.m.delivered.Inc()
	}
	return Delivered, nil
}

// Buffered is a snapshot of how many blocks are ready for the consumer.
func (d *Device) Buffered() int {
	r := d.ring.Load()
	if r == nil {
		return 0
	}
	return r.readyCount()
}
