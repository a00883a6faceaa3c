// SPDX-License-Identifier: EPL-2.0

// Package wavfile is a backend that records each output to a 16-bit WAV
// file at real-time pace. Output n is written to output-<n>.wav in the
// backend directory.
package wavfile

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ik5/audout/backend/clock"
	"github.com/ik5/audout/formats/wav"
	"github.com/ik5/audout/output"
)

const Name = "wavfile"

var ErrNoOutputs = errors.New("wavfile backend needs at least one output")

type Backend struct {
	dir      string
	outputs  int
	ringSize int
	logger   *slog.Logger
}

type Option func(*Backend)

func WithOutputs(n int) Option { return func(b *Backend) { b.outputs = n } }

// WithRingSize sets the byte capacity of the buffer between the clock and
// the file writer.
func WithRingSize(n int) Option {
	return func(b *Backend) {
		if n > 0 {
			b.ringSize = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

func New(dir string, opts ...Option) (*Backend, error) {
	b := &Backend{
		dir:      dir,
		outputs:  1,
		ringSize: 1 << 18,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.outputs <= 0 {
		return nil, ErrNoOutputs
	}
	b.logger = b.logger.With("backend", Name)
	return b, nil
}

func (b *Backend) Name() string { return Name }

func (b *Backend) Outputs() ([]string, error) {
	names := make([]string, b.outputs)
	for i := range names {
		names[i] = fmt.Sprintf("output-%d.wav", i)
	}
	return names, nil
}

// Path returns the file an output records into.
func (b *Backend) Path(output int) string {
	return filepath.Join(b.dir, fmt.Sprintf("output-%d.wav", output))
}

func (b *Backend) OpenStream(out int, src output.Puller) (output.Stream, error) {
	if out < 0 || out >= b.outputs {
		return nil, fmt.Errorf("%w: %d", output.ErrUnknownOutput, out)
	}

	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	format := src.Format()
	f, err := os.Create(b.Path(out))
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	w, err := wav.NewWriter(f, format.SampleRate, format.Channels)
	if err != nil {
		f.Close()
		return nil, err
	}

	logger := b.logger.With("output", out)
	sink := newFileSink(f, w, b.ringSize, format.Samples(), logger)

	s, err := clock.New(src, sink, clock.WithLogger(logger))
	if err != nil {
		return nil, errors.Join(err, sink.Close())
	}
	return s, nil
}
