// SPDX-License-Identifier: EPL-2.0

package audiotest

import "sync"

// RecordingSink keeps a copy of every block written to it.
type RecordingSink struct {
	mu     sync.Mutex
	blocks [][]float32
	closed bool
	err    error
}

// NewRecordingSink returns a sink that fails every write with err when err
// is not nil.
func NewRecordingSink(err error) *RecordingSink {
	return &RecordingSink{err: err}
}

func (s *RecordingSink) WriteFrames(samples []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.blocks = append(s.blocks, append([]float32(nil), samples...))
	return nil
}

func (s *RecordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Blocks returns the recorded blocks.
func (s *RecordingSink) Blocks() [][]float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]float32(nil), s.blocks...)
}

// Closed reports whether Close was called.
func (s *RecordingSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
