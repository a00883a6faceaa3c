// SPDX-License-Identifier: EPL-2.0

package output

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/audout/audio"
	"github.com/ik5/audout/internal/audiotest"
)

var quiet = WithLogger(slog.New(slog.DiscardHandler))

func passthroughConfig(mixAhead int) Config {
	return Config{InputFrames: 64, InputRate: 48000, Channels: 2, OutputRate: 48000, MixAhead: mixAhead}
}

func newTestDevice(t *testing.T, cb SourceFunc, cfg Config, opts ...Option) *Device {
	t.Helper()

	d := NewDevice(append([]Option{quiet}, opts...)...)
	require.NoError(t, d.Init(cb, cfg))
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// pullBlocks collects n delivered blocks, retrying through underruns.
func pullBlocks(t *testing.T, d *Device, n int) [][]float32 {
	t.Helper()

	out := make([][]float32, 0, n)
	dst := make([]float32, d.Format().Samples())
	deadline := time.Now().Add(10 * time.Second)
	for len(out) < n {
		res, err := d.PullInto(dst)
		require.NoError(t, err)
		if res == Delivered {
			out = append(out, append([]float32(nil), dst...))
			continue
		}
		require.True(t, time.Now().Before(deadline), "only %d of %d blocks delivered", len(out), n)
		time.Sleep(100 * time.Microsecond)
	}
	return out
}

// assertConsecutive checks that every frame of every block continues the
// ramp from the previous one, on every channel.
func assertConsecutive(t *testing.T, blocks [][]float32, channels int, first float32) {
	t.Helper()

	want := first
	for b, block := range blocks {
		for i := 0; i < len(block); i += channels {
			for c := range channels {
				if block[i+c] != want {
					t.Fatalf("block %d frame %d channel %d = %v, want %v", b, i/channels, c, block[i+c], want)
				}
			}
			want++
		}
	}
}

func TestDevice_LifecycleErrors(t *testing.T) {
	t.Parallel()

	ramp := &audiotest.Ramp{}
	d := NewDevice(quiet)

	assert.Equal(t, StateUninitialized, d.State())
	assert.ErrorIs(t, d.Start(), ErrNotInitialized)
	assert.NoError(t, d.Stop())

	assert.ErrorIs(t, d.Init(nil, passthroughConfig(1)), ErrInvalidConfig)
	assert.ErrorIs(t, d.Init(ramp.Fill, Config{}), ErrInvalidConfig)
	assert.Equal(t, StateUninitialized, d.State())

	require.NoError(t, d.Init(ramp.Fill, passthroughConfig(1)))
	assert.Equal(t, StateReady, d.State())
	assert.ErrorIs(t, d.Init(ramp.Fill, passthroughConfig(1)), ErrAlreadyInitialized)

	require.NoError(t, d.Start())
	assert.Equal(t, StateRunning, d.State())
	assert.ErrorIs(t, d.Start(), ErrAlreadyRunning)

	require.NoError(t, d.Stop())
	assert.Equal(t, StateStopped, d.State())
	assert.NoError(t, d.Stop())

	require.NoError(t, d.Close())
	assert.Equal(t, StateClosed, d.State())
	assert.NoError(t, d.Close())
	assert.ErrorIs(t, d.Start(), ErrClosed)
	assert.ErrorIs(t, d.Init(ramp.Fill, passthroughConfig(1)), ErrClosed)
}

func TestDevice_CloseWithoutInit(t *testing.T) {
	t.Parallel()

	d := NewDevice(quiet)
	assert.NoError(t, d.Close())
	assert.Equal(t, StateClosed, d.State())
}

func TestDevice_PullIntoMisuse(t *testing.T) {
	t.Parallel()

	dst := []float32{1, 1, 1, 1}

	d := NewDevice(quiet)
	res, err := d.PullInto(dst)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.Equal(t, Underrun, res)
	assert.Equal(t, []float32{0, 0, 0, 0}, dst)

	ramp := &audiotest.Ramp{}
	require.NoError(t, d.Init(ramp.Fill, passthroughConfig(1)))

	short := []float32{1, 1}
	res, err = d.PullInto(short)
	assert.ErrorIs(t, err, ErrDestinationSize)
	assert.Equal(t, Underrun, res)
	assert.Equal(t, []float32{0, 0}, short)

	require.NoError(t, d.Close())
	dst[0] = 1
	res, err = d.PullInto(dst)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, Underrun, res)
	assert.Zero(t, dst[0])
}

func TestDevice_UnderrunBeforeStart(t *testing.T) {
	t.Parallel()

	ramp := &audiotest.Ramp{}
	d := newTestDevice(t, ramp.Fill, passthroughConfig(2))

	dst := make([]float32, d.Format().Samples())
	for i := range dst {
		dst[i] = 0.5
	}

	res, err := d.PullInto(dst)
	require.NoError(t, err)
	assert.Equal(t, Underrun, res)
	for i, v := range dst {
		require.Zero(t, v, "sample %d", i)
	}
	assert.Equal(t, Stats{Underruns: 1}, d.Stats())
	assert.Zero(t, ramp.Calls())
}

func TestDevice_PassthroughDeliversInOrder(t *testing.T) {
	t.Parallel()

	ramp := &audiotest.Ramp{Start: 1}
	cfg := passthroughConfig(3)
	d := newTestDevice(t, ramp.Fill, cfg)
	require.NoError(t, d.Start())

	blocks := pullBlocks(t, d, 200)
	require.NoError(t, d.Stop())

	for _, b := range blocks {
		require.Len(t, b, cfg.InputFrames*cfg.Channels)
	}
	assertConsecutive(t, blocks, cfg.Channels, 1)

	st := d.Stats()
	assert.EqualValues(t, 200, st.Delivered)
	assert.GreaterOrEqual(t, st.Fills, uint64(200))
	assert.LessOrEqual(t, st.Fills, uint64(200+cfg.Capacity()))
}

func TestDevice_LargerDestinationTailIsZeroed(t *testing.T) {
	t.Parallel()

	ramp := &audiotest.Ramp{Start: 1}
	d := newTestDevice(t, ramp.Fill, passthroughConfig(0))
	require.NoError(t, d.Start())

	block := d.Format().Samples()
	dst := make([]float32, block+10)
	for i := range dst {
		dst[i] = -1
	}

	require.Eventually(t, func() bool {
		res, err := d.PullInto(dst)
		return err == nil && res == Delivered
	}, 5*time.Second, 100*time.Microsecond)

	assert.Equal(t, float32(1), dst[0])
	for i := block; i < len(dst); i++ {
		assert.Zero(t, dst[i], "tail sample %d", i)
	}
}

func TestDevice_ProducerNeverOverwritesReadySlots(t *testing.T) {
	t.Parallel()

	ramp := &audiotest.Ramp{}
	cfg := passthroughConfig(2)
	cfg.InputFrames = 48 // 1ms back-off
	d := newTestDevice(t, ramp.Fill, cfg)
	require.NoError(t, d.Start())

	require.Eventually(t, func() bool { return d.Stats().Stalls >= 3 }, 5*time.Second, time.Millisecond)

	st := d.Stats()
	assert.EqualValues(t, cfg.Capacity(), st.Fills)
	assert.EqualValues(t, cfg.Capacity(), ramp.Calls())
	assert.Equal(t, cfg.Capacity(), d.Buffered())

	blocks := pullBlocks(t, d, cfg.Capacity()+2)
	assertConsecutive(t, blocks, cfg.Channels, 0)
}

func TestDevice_ConcurrentConsumerSeesEveryBlockOnce(t *testing.T) {
	t.Parallel()

	ramp := &audiotest.Ramp{}
	cfg := Config{InputFrames: 32, InputRate: 32000, Channels: 1, OutputRate: 32000, MixAhead: 1}
	d := newTestDevice(t, ramp.Fill, cfg)
	require.NoError(t, d.Start())

	var (
		wg     sync.WaitGroup
		blocks [][]float32
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		dst := make([]float32, cfg.InputFrames)
		for len(blocks) < 500 {
			if res, _ := d.PullInto(dst); res == Delivered {
				blocks = append(blocks, append([]float32(nil), dst...))
			}
		}
	}()
	wg.Wait()

	require.NoError(t, d.Stop())
	assertConsecutive(t, blocks, 1, 0)
}

func TestDevice_ResamplingConservation(t *testing.T) {
	t.Parallel()

	ramp := &audiotest.Ramp{}
	cfg := Config{InputFrames: 512, InputRate: 44100, Channels: 1, OutputRate: 48000, MixAhead: 7}
	require.Equal(t, 557, cfg.OutputFrames())

	d := newTestDevice(t, ramp.Fill, cfg)
	require.NoError(t, d.Start())
	blocks := pullBlocks(t, d, 200)
	require.NoError(t, d.Stop())

	prev := float32(-1)
	for b, block := range blocks {
		require.Len(t, block, 557)
		for i, v := range block {
			if v < prev {
				t.Fatalf("block %d sample %d = %v went backwards from %v", b, i, v, prev)
			}
			prev = v
		}
	}

	consumed := float64(ramp.Frames())
	produced := float64(d.Stats().Fills) * 557
	assert.InDelta(t, consumed*48000/44100, produced, 600)
}

func TestDevice_ResamplingBacklogBounded(t *testing.T) {
	t.Parallel()

	// 64 frames at 44.1k convert to 69.66 frames at 48k; the device takes 69.
	cfg := Config{InputFrames: 64, InputRate: 44100, Channels: 1, OutputRate: 48000, MixAhead: 7}

	var conv *audio.StreamResampler
	newConv := func(c Config) (Converter, error) {
		r, err := audio.NewStreamResampler(c.InputFrames, c.Channels, c.InputRate, c.OutputRate)
		conv = r
		return r, err
	}

	ramp := &audiotest.Ramp{}
	d := newTestDevice(t, ramp.Fill, cfg, WithConverter(newConv))
	require.NoError(t, d.Start())
	pullBlocks(t, d, 3000)
	require.NoError(t, d.Stop())

	require.NotNil(t, conv)
	assert.Less(t, conv.PendingFrames(), cfg.OutputFrames())
	assert.GreaterOrEqual(t, d.Stats().Fills, uint64(3000))
}

func TestDevice_ResamplingStereoBlocks(t *testing.T) {
	t.Parallel()

	ramp := &audiotest.Ramp{}
	cfg := Config{InputFrames: 480, InputRate: 48000, Channels: 2, OutputRate: 16000, MixAhead: 2}
	d := newTestDevice(t, ramp.Fill, cfg)
	require.NoError(t, d.Start())

	blocks := pullBlocks(t, d, 10)
	for _, b := range blocks {
		require.Len(t, b, 160*2)
		for i := 0; i < len(b); i += 2 {
			require.Equal(t, b[i], b[i+1], "channels diverged at sample %d", i)
		}
	}
}

func TestDevice_RestartContinues(t *testing.T) {
	t.Parallel()

	ramp := &audiotest.Ramp{}
	cfg := passthroughConfig(1)
	d := newTestDevice(t, ramp.Fill, cfg)

	require.NoError(t, d.Start())
	first := pullBlocks(t, d, 5)
	require.NoError(t, d.Stop())

	require.NoError(t, d.Start())
	second := pullBlocks(t, d, 5)
	require.NoError(t, d.Stop())

	assertConsecutive(t, append(first, second...), cfg.Channels, 0)
}

func TestDevice_StopWaitsForFill(t *testing.T) {
	t.Parallel()

	ramp := &audiotest.Ramp{}
	gate := audiotest.NewGate(ramp.Fill)
	d := newTestDevice(t, gate.Fill, passthroughConfig(1))
	require.NoError(t, d.Start())

	select {
	case <-gate.Entered():
	case <-time.After(5 * time.Second):
		t.Fatal("fill callback never ran")
	}

	stopped := make(chan error, 1)
	go func() { stopped <- d.Stop() }()

	select {
	case <-stopped:
		t.Fatal("Stop returned while the callback was still running")
	case <-time.After(50 * time.Millisecond):
	}

	gate.Open()
	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the callback finished")
	}
	assert.Equal(t, StateStopped, d.State())
}

func TestDevice_CloseRightAfterStart(t *testing.T) {
	t.Parallel()

	for range 20 {
		ramp := &audiotest.Ramp{}
		d := NewDevice(quiet)
		require.NoError(t, d.Init(ramp.Fill, Config{InputFrames: 256, InputRate: 44100, Channels: 2, OutputRate: 48000, MixAhead: 2}))
		require.NoError(t, d.Start())
		require.NoError(t, d.Close())
		assert.Equal(t, StateClosed, d.State())
	}
}

func TestDevice_CallbackPanicEndsFillLoop(t *testing.T) {
	t.Parallel()

	var calls int
	cb := func(buf []float32, channels int) {
		calls++
		if calls == 2 {
			panic("source exploded")
		}
		clear(buf)
	}

	d := newTestDevice(t, cb, passthroughConfig(3))
	require.NoError(t, d.Start())

	pullBlocks(t, d, 1)
	dst := make([]float32, d.Format().Samples())
	require.Never(t, func() bool {
		res, _ := d.PullInto(dst)
		return res == Delivered
	}, 50*time.Millisecond, time.Millisecond)

	assert.Equal(t, StateRunning, d.State())
	assert.NoError(t, d.Stop())
}

type failingConverter struct{}

func (failingConverter) Write([]float32) error   { return errors.New("converter broke") }
func (failingConverter) Read([]float32, int) int { return 0 }

func TestDevice_ConverterErrors(t *testing.T) {
	t.Parallel()

	cfg := Config{InputFrames: 64, InputRate: 44100, Channels: 1, OutputRate: 48000, MixAhead: 1}
	ramp := &audiotest.Ramp{}

	broken := errors.New("no converter today")
	d := newTestDevice(t, ramp.Fill, cfg, WithConverter(func(Config) (Converter, error) { return nil, broken }))
	assert.ErrorIs(t, d.Start(), broken)
	assert.Equal(t, StateReady, d.State())

	d2 := newTestDevice(t, ramp.Fill, cfg, WithConverter(func(Config) (Converter, error) { return failingConverter{}, nil }))
	require.NoError(t, d2.Start())
	require.Never(t, func() bool { return d2.Stats().Fills > 0 }, 30*time.Millisecond, time.Millisecond)
	assert.NoError(t, d2.Stop())
}

func TestDevice_ID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "speaker", NewDevice(quiet, WithID("speaker")).ID())

	a, b := NewDevice(quiet), NewDevice(quiet)
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "State(42)", State(42).String())
	assert.Equal(t, "underrun", Underrun.String())
	assert.Equal(t, "delivered", Delivered.String())
}

func BenchmarkDevice_PullInto(b *testing.B) {
	ramp := &audiotest.Ramp{}
	d := NewDevice(quiet)
	if err := d.Init(ramp.Fill, passthroughConfig(3)); err != nil {
		b.Fatal(err)
	}
	if err := d.Start(); err != nil {
		b.Fatal(err)
	}
	defer d.Close()

	dst := make([]float32, d.Format().Samples())
	b.ReportAllocs()
	for b.Loop() {
		_, _ = d.PullInto(dst)
	}
}

func TestDevice_PullIntoDoesNotAllocate(t *testing.T) {
	ramp := &audiotest.Ramp{}
	d := newTestDevice(t, ramp.Fill, passthroughConfig(3))
	require.NoError(t, d.Start())
	pullBlocks(t, d, 1)

	dst := make([]float32, d.Format().Samples())
	allocs := testing.AllocsPerRun(200, func() {
		_, _ = d.PullInto(dst)
	})
	assert.Zero(t, allocs)
}
