// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis audio using
// github.com/jfreymuth/oggvorbis.
//
// Samples are interleaved float32 at the stream's own rate and channel
// count. Rewind works when the input is an io.ReadSeeker.
package vorbis
