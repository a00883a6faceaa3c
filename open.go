// SPDX-License-Identifier: EPL-2.0

package audout

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ik5/audout/audio"
	"github.com/ik5/audout/formats"
)

var ErrUnsupportedFormat = errors.New("unsupported audio format")

var registry = formats.NewRegistry()

// Formats lists the format keys Open and OpenReader understand.
func Formats() []string { return registry.Formats() }

// OpenReader decodes r as the given format key, for example "wav" or "ogg".
func OpenReader(r io.Reader, format string) (audio.Source, error) {
	dec, ok := registry.Get(format)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	src, err := dec.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", format, err)
	}
	return src, nil
}

// Open decodes the file at path, picking the decoder by extension. Closing
// the returned source also closes the file.
func Open(path string) (audio.Source, error) {
	format := formats.FormatOf(path)
	if _, ok := registry.Get(format); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	src, err := OpenReader(f, format)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fileSource{Source: src, file: f}, nil
}

type fileSource struct {
	audio.Source
	file *os.File
}

func (s *fileSource) Close() error {
	return errors.Join(s.Source.Close(), s.file.Close())
}

// Rewind forwards to the decoder when it supports rewinding.
func (s *fileSource) Rewind() error {
	rw, ok := s.Source.(audio.Rewinder)
	if !ok {
		return fmt.Errorf("%w: source cannot rewind", ErrUnsupportedFormat)
	}
	return rw.Rewind()
}
