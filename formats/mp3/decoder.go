// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"errors"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/ik5/audout/audio"
	"github.com/ik5/audout/utils"
)

// go-mp3 always decodes to interleaved stereo.
const channels = 2

// ErrNotSeekable is returned by Rewind when the underlying stream cannot seek.
var ErrNotSeekable = errors.New("mp3 stream is not seekable")

// mp3Reader is the subset of *gomp3.Decoder used by source.
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

type source struct {
	dec        mp3Reader
	sampleRate int
	buf        []byte
	carry      []byte // trailing bytes of an incomplete frame
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return cap(s.buf) / 2 }

// ReadSamples converts little-endian int16 PCM into float32. Only whole
// frames are returned; a partial frame is kept for the next call.
func (s *source) ReadSamples(dst []float32) (int, error) {
	want := (len(dst) - len(dst)%channels) * 2
	if want == 0 {
		return 0, nil
	}
	if cap(s.buf) < want {
		s.buf = make([]byte, want)
	}
	s.buf = s.buf[:want]

	pending := copy(s.buf, s.carry)
	s.carry = s.carry[:0]

	n, err := s.dec.Read(s.buf[pending:])
	n += pending

	frameBytes := channels * 2
	whole := n - n%frameBytes
	s.carry = append(s.carry, s.buf[whole:n]...)

	samples := whole / 2
	for i := range samples {
		v := int16(uint16(s.buf[2*i]) | uint16(s.buf[2*i+1])<<8)
		dst[i] = utils.Int16ToFloat32(v)
	}

	if err != nil && !errors.Is(err, io.EOF) {
		return samples, fmt.Errorf("%w", err)
	}
	if samples == 0 && err != nil {
		return 0, io.EOF
	}
	return samples, nil
}

// Rewind seeks to the first sample when the decoder input is seekable.
func (s *source) Rewind() error {
	sk, ok := s.dec.(io.Seeker)
	if !ok {
		return ErrNotSeekable
	}
	if _, err := sk.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w", err)
	}
	s.carry = s.carry[:0]
	return nil
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	return &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		buf:        make([]byte, 8192),
	}, nil
}
