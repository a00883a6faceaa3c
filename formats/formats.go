// SPDX-License-Identifier: EPL-2.0

// Package formats wires every bundled decoder into an audio.Registry.
package formats

import (
	"path/filepath"
	"strings"

	"github.com/ik5/audout/audio"
	"github.com/ik5/audout/formats/aiff"
	"github.com/ik5/audout/formats/mp3"
	"github.com/ik5/audout/formats/vorbis"
	"github.com/ik5/audout/formats/wav"
)

// NewRegistry returns a registry keyed by lower-case file extension
// without the dot.
func NewRegistry() *audio.Registry {
	r := audio.NewRegistry()
	r.Register("wav", wav.Decoder{})
	r.Register("wave", wav.Decoder{})
	r.Register("mp3", mp3.Decoder{})
	r.Register("ogg", vorbis.Decoder{})
	r.Register("aiff", aiff.Decoder{})
	r.Register("aif", aiff.Decoder{})
	return r
}

// FormatOf maps a file name to its registry key.
func FormatOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
