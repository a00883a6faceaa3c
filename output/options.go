// SPDX-License-Identifier: EPL-2.0

package output

import (
	"log/slog"

	"github.com/ik5/audout/audio"
)

// Converter turns input-rate blocks into output-rate frames. Write takes
// exactly one input block; Read moves up to maxFrames converted frames into
// dst and reports how many it moved, possibly zero.
type Converter interface {
	Write(block []float32) error
	Read(dst []float32, maxFrames int) int
}

// ConverterFunc builds the converter for one run of the fill loop.
type ConverterFunc func(cfg Config) (Converter, error)

func newStreamResampler(cfg Config) (Converter, error) {
	r, err := audio.NewStreamResampler(cfg.InputFrames, cfg.Channels, cfg.InputRate, cfg.OutputRate)
	if err != nil {
		return nil, err
	}
	return r, nil
}

type options struct {
	logger       *slog.Logger
	metrics      *Metrics
	newConverter ConverterFunc
	id           string
}

func defaultOptions() options {
	return options{
		logger:       slog.Default(),
		newConverter: newStreamResampler,
	}
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records device activity into m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithConverter replaces the cubic stream resampler used when the input
// and output rates differ.
func WithConverter(fn ConverterFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.newConverter = fn
		}
	}
}

// WithID sets the device identifier used in logs and metric labels. A
// random UUID is used otherwise.
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}
