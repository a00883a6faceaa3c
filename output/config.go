// SPDX-License-Identifier: EPL-2.0

package output

import (
	"fmt"
	"time"
)

// Config fixes the shape of every block a device produces. It cannot be
// changed after Init.
type Config struct {
	// InputFrames is the number of frames the source callback fills per call.
	InputFrames int `mapstructure:"input_frames"`
	// InputRate is the sample rate the source callback produces.
	InputRate int `mapstructure:"input_rate"`
	Channels  int `mapstructure:"channels"`
	// OutputRate is the rate the consumer expects. When it differs from
	// InputRate every block is resampled.
	OutputRate int `mapstructure:"output_rate"`
	// MixAhead is how many blocks may be prepared beyond the one being
	// consumed. The ring holds MixAhead+1 slots.
	MixAhead int `mapstructure:"mix_ahead"`
}

// Format describes one output block as seen by the consumer.
type Format struct {
	Frames     int
	Channels   int
	SampleRate int
}

// Samples is Frames*Channels.
func (f Format) Samples() int { return f.Frames * f.Channels }

// Period is the playback time of one block.
func (f Format) Period() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(f.Frames) * time.Second / time.Duration(f.SampleRate)
}

func (c Config) Resampling() bool { return c.InputRate != c.OutputRate }

// OutputFrames is the frame count of one output block. With resampling it
// is InputFrames*OutputRate/InputRate, truncated.
func (c Config) OutputFrames() int {
	if !c.Resampling() || c.InputRate <= 0 {
		return c.InputFrames
	}
	return int(int64(c.InputFrames) * int64(c.OutputRate) / int64(c.InputRate))
}

func (c Config) Capacity() int { return c.MixAhead + 1 }

func (c Config) Format() Format {
	return Format{
		Frames:     c.OutputFrames(),
		Channels:   c.Channels,
		SampleRate: c.OutputRate,
	}
}

// inputPeriod is the playback time of one source block; the fill loop
// backs off for this long when the ring is full.
func (c Config) inputPeriod() time.Duration {
	return time.Duration(c.InputFrames) * time.Second / time.Duration(c.InputRate)
}

func (c Config) Validate() error {
	switch {
	case c.InputFrames <= 0:
		return fmt.Errorf("%w: input frames must be positive, got %d", ErrInvalidConfig, c.InputFrames)
	case c.InputRate <= 0:
		return fmt.Errorf("%w: input rate must be positive, got %d", ErrInvalidConfig, c.InputRate)
	case c.OutputRate <= 0:
		return fmt.Errorf("%w: output rate must be positive, got %d", ErrInvalidConfig, c.OutputRate)
	case c.Channels <= 0:
		return fmt.Errorf("%w: channels must be positive, got %d", ErrInvalidConfig, c.Channels)
	case c.MixAhead < 0:
		return fmt.Errorf("%w: mix ahead must not be negative, got %d", ErrInvalidConfig, c.MixAhead)
	case c.OutputFrames() == 0:
		return fmt.Errorf("%w: %d frames at %d Hz round to an empty block at %d Hz",
			ErrInvalidConfig, c.InputFrames, c.InputRate, c.OutputRate)
	}
	return nil
}
