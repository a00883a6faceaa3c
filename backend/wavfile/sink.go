// SPDX-License-Identifier: EPL-2.0

package wavfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/smallnest/ringbuffer"

	"github.com/ik5/audout/formats/wav"
	"github.com/ik5/audout/utils"
)

// fileSink decouples the clock goroutine from disk I/O. WriteFrames packs
// samples as little-endian int16 into a byte ring and never waits; when the
// ring is full the block is dropped and counted. A writer goroutine drains
// the ring into the WAV file.
type fileSink struct {
	file   io.Closer
	w      *wav.Writer
	ring   *ringbuffer.RingBuffer
	logger *slog.Logger

	frameBytes int
	packed     []byte  // producer side scratch
	chunk      []byte  // writer side scratch
	pcm        []int16 // writer side scratch

	wake chan struct{}
	stop chan struct{}
	done chan struct{}

	closeOnce sync.Once
	closeErr  error
	writeErr  atomic.Pointer[error]

	dropped atomic.Uint64
	written atomic.Uint64
}

func newFileSink(file io.Closer, w *wav.Writer, ringSize, blockSamples int, logger *slog.Logger) *fileSink {
	frameBytes := w.Channels() * 2
	s := &fileSink{
		file:       file,
		w:          w,
		ring:       ringbuffer.New(ringSize),
		logger:     logger,
		frameBytes: frameBytes,
		packed:     make([]byte, blockSamples*2),
		chunk:      make([]byte, frameBytes*2048),
		pcm:        make([]int16, frameBytes*1024),
		wake:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *fileSink) WriteFrames(samples []float32) error {
	if errp := s.writeErr.Load(); errp != nil {
		return *errp
	}

	need := len(samples) * 2
	if cap(s.packed) < need {
		s.packed = make([]byte, need)
	}
	b := s.packed[:need]
	for i, v := range samples {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(utils.Float32ToInt16(v)))
	}

	if s.ring.Free() < need {
		s.dropped.Add(uint64(need))
		return nil
	}
	if _, err := s.ring.Write(b); err != nil {
		s.dropped.Add(uint64(need))
		return nil
	}

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

func (s *fileSink) run() {
	defer close(s.done)

	for {
		s.drain()
		select {
		case <-s.stop:
			s.drain()
			return
		case <-s.wake:
		}
	}
}

// drain moves whole frames from the ring into the WAV writer until the
// ring is empty. The ring only ever receives whole blocks.
func (s *fileSink) drain() {
	for {
		size := min(len(s.chunk), s.ring.Length())
		size -= size % s.frameBytes
		if size == 0 {
			return
		}
		n, err := s.ring.Read(s.chunk[:size])
		if n == 0 || err != nil {
			return
		}

		count := n / 2
		for i := range count {
			s.pcm[i] = int16(binary.LittleEndian.Uint16(s.chunk[2*i:]))
		}
		if err := s.w.WriteInt16(s.pcm[:count]); err != nil {
			if s.writeErr.Load() == nil {
				s.logger.Error("writing wav failed", "error", err)
				werr := fmt.Errorf("wav write: %w", err)
				s.writeErr.Store(&werr)
			}
			continue
		}
		s.written.Add(uint64(n))
	}
}

// Close flushes whatever is buffered, finalises the WAV header and closes
// the file.
func (s *fileSink) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done

		if d := s.dropped.Load(); d > 0 {
			s.logger.Warn("wav recording dropped audio", "bytes", d)
		}
		s.closeErr = errors.Join(s.w.Close(), s.file.Close())
	})
	return s.closeErr
}
