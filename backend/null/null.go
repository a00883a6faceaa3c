// SPDX-License-Identifier: EPL-2.0

// Package null is a backend whose single output throws audio away at
// real-time pace. It is useful for benchmarks and headless runs.
package null

import (
	"log/slog"
	"sync/atomic"

	"github.com/ik5/audout/backend/clock"
	"github.com/ik5/audout/output"
)

const (
	Name       = "null"
	OutputName = "discard"
)

type Backend struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{logger: logger.With("backend", Name)}
}

func (b *Backend) Name() string { return Name }

func (b *Backend) Outputs() ([]string, error) { return []string{OutputName}, nil }

func (b *Backend) OpenStream(_ int, src output.Puller) (output.Stream, error) {
	s, err := clock.New(src, &discard{}, clock.WithLogger(b.logger))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// discard counts what it drops.
type discard struct {
	samples atomic.Uint64
}

func (d *discard) WriteFrames(samples []float32) error {
	d.samples.Add(uint64(len(samples)))
	return nil
}

func (d *discard) Close() error { return nil }
