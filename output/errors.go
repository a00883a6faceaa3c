// SPDX-License-Identifier: EPL-2.0

package output

import "errors"

var (
	ErrInvalidConfig      = errors.New("invalid output config")
	ErrNotInitialized     = errors.New("device is not initialized")
	ErrAlreadyInitialized = errors.New("device is already initialized")
	ErrAlreadyRunning     = errors.New("device is already running")
	ErrClosed             = errors.New("closed")
	ErrDestinationSize    = errors.New("destination buffer is smaller than one output block")
	ErrUnknownOutput      = errors.New("unknown output index")
	ErrNilBackend         = errors.New("backend is nil")
)
