// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG-1 Layer III audio using
// github.com/hajimehoshi/go-mp3.
//
// Output is always interleaved stereo float32 at the file's sample rate.
// When the input is an io.ReadSeeker the source also implements
// audio.Rewinder; otherwise Rewind reports ErrNotSeekable.
//
//	src, err := mp3.Decoder{}.Decode(file)
//	mono := audio.NewMonoMixer(src)
package mp3
