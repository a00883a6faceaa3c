// SPDX-License-Identifier: EPL-2.0

package null

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ik5/audout/internal/audiotest"
	"github.com/ik5/audout/output"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBackend_PlaysThroughFactory(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.DiscardHandler)
	f, err := output.NewFactory(New(logger), output.WithLogger(logger))
	require.NoError(t, err)

	assert.Equal(t, "null", f.Name())
	names, err := f.OutputNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"discard"}, names)

	ramp := &audiotest.Ramp{}
	d, err := f.CreateDevice(0, ramp.Fill, output.Config{
		InputFrames: 441, InputRate: 44100, Channels: 2, OutputRate: 48000, MixAhead: 2,
	})
	require.NoError(t, err)

	require.NoError(t, d.Start())
	require.Eventually(t, func() bool { return d.Stats().Delivered >= 3 }, 5*time.Second, time.Millisecond)

	require.NoError(t, f.Close())
	assert.Equal(t, output.StateStopped, d.State())
	require.NoError(t, d.Close())
}

func TestDiscard_Counts(t *testing.T) {
	t.Parallel()

	d := &discard{}
	require.NoError(t, d.WriteFrames(make([]float32, 10)))
	require.NoError(t, d.WriteFrames(make([]float32, 5)))
	assert.EqualValues(t, 15, d.samples.Load())
	assert.NoError(t, d.Close())
}
