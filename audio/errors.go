// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize   = errors.New("dst size must be multiple of channels")
	ErrInvalidBlockSize = errors.New("block size does not match the configured frame count")
	ErrInvalidRate      = errors.New("sample rate must be positive")
	ErrInvalidChannels  = errors.New("channel count must be positive")
	ErrInvalidFrames    = errors.New("frame count must be positive")
)
