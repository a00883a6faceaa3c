// SPDX-License-Identifier: EPL-2.0

// Package audio provides the sample-level building blocks used by the
// output engine.
//
// This package contains:
//   - Source interface for pull-based audio input, and the decoder Registry
//   - StreamResampler, the push-based sample rate converter used by the
//     output fill loop
//   - ChannelMixer for matching a source to a device's channel count
//   - Feeder, which turns a Source into a fixed-size block callback
//
// # Source Interface
//
// The Source interface is the foundation of the decoders:
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// Sources that can restart from the beginning also implement Rewinder.
//
// # Streaming Resampling
//
// StreamResampler accepts blocks of a fixed frame count and hands out
// converted frames as they become available:
//
//	r, _ := audio.NewStreamResampler(512, 2, 44100, 48000)
//	got := 0
//	for got < outFrames {
//	    fill(block)
//	    _ = r.Write(block)
//	    got += r.Read(out[got*2:], outFrames-got)
//	}
//
// One input block does not necessarily produce one output block, which is
// why the caller loops. Interpolation is cubic (Catmull-Rom) with a simple
// low-pass filter when downsampling.
//
// # Feeding an Output Device
//
//	feeder := audio.NewFeeder(src, true)
//	dev.Init(feeder.Fill, cfg)
//
// Fill always produces a whole block, padding with silence after the
// source ends unless looping is enabled.
//
// # Sample Format
//
// Audio samples are represented as interleaved float32 in the range
// [-1.0, 1.0]; 0.0 represents silence.
package audio
