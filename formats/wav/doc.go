// SPDX-License-Identifier: EPL-2.0

// Package wav decodes and encodes WAV audio files.
//
// Decoding accepts integer PCM at 16, 24 or 32 bits with any channel count
// and sample rate. Samples come out as interleaved float32 in [-1, 1]. The
// returned source also implements audio.Rewinder, so looping playback can
// start over without reopening the file.
//
//	src, err := wav.Decoder{}.Decode(file)
//	if errors.Is(err, wav.ErrNotWavFile) {
//	    // not a WAV file
//	}
//
// Encoding always produces 16-bit PCM. Writer streams blocks of samples and
// fixes up the header sizes on Close, so the destination must implement
// io.WriteSeeker (an *os.File is the usual choice):
//
//	w, _ := wav.NewWriter(file, 48000, 2)
//	_ = w.WriteFloat32(block)
//	_ = w.Close()
//
// WriteWAV16 is a one-shot helper for already converted int16 samples.
package wav
