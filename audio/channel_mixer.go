// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// ChannelMixer adapts a Source to a different channel count.
//
//   - N -> 1 averages all channels.
//   - 1 -> N duplicates the mono channel.
//   - N -> M maps output channel c to input channel c mod N.
type ChannelMixer struct {
	src      Source
	channels int
	tmp      []float32
}

func NewChannelMixer(src Source, channels int) *ChannelMixer {
	return &ChannelMixer{
		src:      src,
		channels: channels,
		tmp:      make([]float32, 4096),
	}
}

// NewMonoMixer down-mixes src to a single channel.
func NewMonoMixer(src Source) *ChannelMixer {
	return NewChannelMixer(src, 1)
}

func (m *ChannelMixer) SampleRate() int { return m.src.SampleRate() }
func (m *ChannelMixer) Channels() int   { return m.channels }
func (m *ChannelMixer) BufSize() int    { return m.src.BufSize() }
func (m *ChannelMixer) Close() error {
	err := m.src.Close()
	if err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

// ReadSamples fills dst with interleaved samples at the mixer's channel
// count. len(dst) must be a multiple of Channels().
func (m *ChannelMixer) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if m.channels <= 0 || len(dst)%m.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	srcCh := m.src.Channels()
	if srcCh == m.channels {
		return m.src.ReadSamples(dst)
	}

	frames := len(dst) / m.channels
	samplesNeeded := frames * srcCh

	// Grow tmp buffer if needed (but don't shrink to avoid thrashing)
	if cap(m.tmp) < samplesNeeded {
		m.tmp = make([]float32, max(samplesNeeded, 8192))
	}
	m.tmp = m.tmp[:samplesNeeded]

	n, err := m.src.ReadSamples(m.tmp)
	if n == 0 {
		return 0, err
	}
	got := n / srcCh

	switch {
	case m.channels == 1:
		m.downmix(dst, got, srcCh)
	case srcCh == 1:
		for f := range got {
			v := m.tmp[f]
			out := dst[f*m.channels : (f+1)*m.channels]
			for c := range out {
				out[c] = v
			}
		}
	default:
		for f := range got {
			in := m.tmp[f*srcCh : (f+1)*srcCh]
			out := dst[f*m.channels : (f+1)*m.channels]
			for c := range out {
				out[c] = in[c%srcCh]
			}
		}
	}

	return got * m.channels, err
}

func (m *ChannelMixer) downmix(dst []float32, frames, srcCh int) {
	switch srcCh {
	case 2: // Stereo (most common)
		for f := range frames {
			idx := f << 1
			dst[f] = (m.tmp[idx] + m.tmp[idx+1]) * 0.5
		}
	default:
		inv := float32(1.0) / float32(srcCh)
		for f := range frames {
			sum := float32(0)
			base := f * srcCh
			for c := range srcCh {
				sum += m.tmp[base+c]
			}
			dst[f] = sum * inv
		}
	}
}
