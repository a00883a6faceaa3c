// SPDX-License-Identifier: EPL-2.0

// Package output is the backend independent core of the audio output
// engine.
//
// A Device keeps a ring of MixAhead+1 blocks. A background goroutine
// calls the application's SourceFunc to fill empty slots, resampling with
// audio.StreamResampler when the input and output rates differ. The
// hardware side calls PullInto once per period to take the next ready
// block; if none is ready it gets silence and an Underrun result, never a
// wait.
//
// Devices move through these states:
//
//	Uninitialized --Init--> Ready --Start--> Running <--Start/Stop--> Stopped
//	any --Close--> Closed
//
// A Factory binds devices to a Backend, which supplies the Stream that
// drives PullInto, and stops every still reachable device when it is
// closed.
//
//	f, _ := output.NewFactory(null.New())
//	d, _ := f.CreateDevice(0, feeder.Fill, output.Config{
//	    InputFrames: 512, InputRate: 44100, Channels: 2,
//	    OutputRate: 48000, MixAhead: 3,
//	})
//	_ = d.Start()
//	defer d.Close()
package output
