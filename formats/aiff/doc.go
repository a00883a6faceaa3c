// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes uncompressed AIFF files using
// github.com/go-audio/aiff.
//
// PCM at 8, 16, 24 and 32 bits is accepted; other depths return
// ErrUnsupportedBitDepth. Inputs that are not an io.ReadSeeker are read
// into memory first because the underlying decoder needs to seek. The
// returned source implements audio.Rewinder.
package aiff
