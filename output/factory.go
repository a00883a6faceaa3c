// SPDX-License-Identifier: EPL-2.0

package output

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"weak"
)

// Factory creates devices bound to one backend and remembers them without
// owning them: a device the application drops can still be collected.
// Closing the factory stops every device that is still alive.
type Factory struct {
	backend Backend
	opts    []Option
	logger  *slog.Logger

	mu      sync.Mutex
	devices []weak.Pointer[Device]
	closed  bool
}

// NewFactory returns a factory for b. opts are applied to every device it
// creates, before any per-device options.
func NewFactory(b Backend, opts ...Option) (*Factory, error) {
	if b == nil {
		return nil, ErrNilBackend
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Factory{
		backend: b,
		opts:    opts,
		logger:  o.logger.With("component", "factory", "backend", b.Name()),
	}, nil
}

func (f *Factory) Name() string { return f.backend.Name() }

func (f *Factory) OutputNames() ([]string, error) {
	names, err := f.backend.Outputs()
	if err != nil {
		return nil, fmt.Errorf("listing %s outputs: %w", f.backend.Name(), err)
	}
	return names, nil
}

func (f *Factory) OutputCount() (int, error) {
	names, err := f.OutputNames()
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

// CreateDevice initialises a device, opens a backend stream on output and
// attaches it. The device is returned ready to Start.
func (f *Factory) CreateDevice(output int, cb SourceFunc, cfg Config, opts ...Option) (*Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, fmt.Errorf("factory: %w", ErrClosed)
	}

	names, err := f.OutputNames()
	if err != nil {
		return nil, err
	}
	if output < 0 || output >= len(names) {
		return nil, fmt.Errorf("%w: %d, backend %s has %d", ErrUnknownOutput, output, f.backend.Name(), len(names))
	}

	d := NewDevice(append(f.opts[:len(f.opts):len(f.opts)], opts...)...)
	if err := d.Init(cb, cfg); err != nil {
		return nil, err
	}

	s, err := f.backend.OpenStream(output, d)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("opening %s stream: %w", names[output], err), d.Close())
	}
	d.attach(s)

	f.devices = append(f.devices, weak.Make(d))
	f.logger.Debug("device created", "device", d.ID(), "output", names[output])
	return d, nil
}

// Devices returns the tracked devices that are still reachable.
func (f *Factory) Devices() []*Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.liveLocked()
}

func (f *Factory) liveLocked() []*Device {
	live := make([]*Device, 0, len(f.devices))
	kept := f.devices[:0]
	for _, wp := range f.devices {
		if d := wp.Value(); d != nil {
			live = append(live, d)
			kept = append(kept, wp)
		}
	}
	clear(f.devices[len(kept):])
	f.devices = kept
	return live
}

// Close stops every live device and refuses further CreateDevice calls.
// Devices are not closed; they still belong to the caller.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true

	live := f.liveLocked()
	var errs []error
	for _, d := range live {
		if err := d.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("device %s: %w", d.ID(), err))
		}
	}
	f.devices = nil

	f.logger.Info("factory closed", "stopped_devices", len(live))
	return errors.Join(errs...)
}
