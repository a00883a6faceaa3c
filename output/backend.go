// SPDX-License-Identifier: EPL-2.0

package output

// Puller is the consumer-facing side of a device.
type Puller interface {
	PullInto(dst []float32) (PullResult, error)
	Format() Format
}

// Stream is a backend's playback loop for one device. It drives the
// consumer side by calling PullInto at the hardware pace.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// Backend is the hardware-facing collaborator a Factory creates devices
// for.
type Backend interface {
	Name() string
	// Outputs lists the output endpoints by index.
	Outputs() ([]string, error)
	OpenStream(output int, src Puller) (Stream, error)
}
