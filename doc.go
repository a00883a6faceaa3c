// SPDX-License-Identifier: EPL-2.0

// Package audout is a backend independent audio output engine.
//
// The engine lives in the output package: a Device prepares a few blocks
// of audio ahead of playback on its own goroutine, resampling when the
// source and output rates differ, while the hardware side pulls finished
// blocks without ever waiting. Backends (see backend/null and
// backend/wavfile) supply the hardware side.
//
// This package only adds file opening on top of the bundled decoders:
//
//	src, err := audout.Open("song.ogg")
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
//
//	feeder := audio.NewFeeder(src, false)
//	f, _ := output.NewFactory(null.New(nil))
//	d, _ := f.CreateDevice(0, feeder.Fill, output.Config{
//	    InputFrames: 1024, InputRate: src.SampleRate(), Channels: 2,
//	    OutputRate: 48000, MixAhead: 3,
//	})
//	_ = d.Start()
//
// # Supported Formats
//
//   - WAV (PCM 16, 24 and 32 bit) via formats/wav
//   - MP3 via formats/mp3
//   - Ogg Vorbis via formats/vorbis
//   - AIFF via formats/aiff
package audout
