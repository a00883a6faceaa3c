// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ik5/audout"
	"github.com/ik5/audout/audio"
	"github.com/ik5/audout/output"
)

// pollInterval is how often play checks whether the source has run out.
const pollInterval = 20 * time.Millisecond

func (a *app) playCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play [file]",
		Short: "Play an audio file",
		Long:  "Decode a WAV, MP3, Ogg Vorbis or AIFF file and play it through the selected backend.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.play(cmd.Context(), args[0])
		},
	}

	flags := cmd.Flags()
	flags.Int("output", 0, "Backend output index")
	flags.Int("frames", 1024, "Frames the source produces per block")
	flags.Int("output-rate", 48000, "Output sample rate, 0 keeps the file rate")
	flags.Int("channels", 2, "Output channels, 0 keeps the file layout")
	flags.Int("mix-ahead", 3, "Blocks prepared ahead of playback")
	flags.Bool("loop", false, "Restart the file when it ends")
	flags.Duration("duration", 0, "Stop after this long, 0 plays to the end")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")

	if err := a.v.BindPFlags(flags); err != nil {
		panic(fmt.Sprintf("binding flags: %v", err))
	}
	return cmd
}

func (a *app) play(ctx context.Context, path string) error {
	s := a.settings

	src, err := audout.Open(path)
	if err != nil {
		return err
	}
	feeder := audio.NewFeeder(src, s.Loop)
	defer feeder.Close()

	opts := []output.Option{output.WithLogger(a.logger)}
	if s.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		m, err := output.NewMetrics(reg)
		if err != nil {
			return err
		}
		opts = append(opts, output.WithMetrics(m))

		stopMetrics := a.serveMetrics(s.MetricsAddr, reg)
		defer stopMetrics()
	}

	b, err := a.backend(s.Backend)
	if err != nil {
		return err
	}
	f, err := output.NewFactory(b, opts...)
	if err != nil {
		return err
	}
	defer f.Close()

	cfg := s.DeviceConfig(src.SampleRate(), src.Channels())
	d, err := f.CreateDevice(s.Output, feeder.Fill, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	a.logger.Info("playing",
		"file", path,
		"backend", f.Name(),
		"source_rate", src.SampleRate(),
		"source_channels", src.Channels(),
		"output_rate", cfg.OutputRate,
		"channels", cfg.Channels)

	if err := d.Start(); err != nil {
		return err
	}

	if s.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Duration)
		defer cancel()
	}
	waitForEnd(ctx, feeder, drainWindow(d.Config()))

	if err := d.Stop(); err != nil {
		return err
	}

	st := d.Stats()
	a.logger.Info("finished",
		"delivered", st.Delivered,
		"underruns", st.Underruns,
		"stalls", st.Stalls,
		"unplayed_blocks", d.Buffered())
	return feeder.Err()
}

// drainWindow is how long playback continues after the source runs out.
// The ring never empties by itself because the fill loop keeps padding with
// silence, so allow one pass over it and the block in flight. The extra
// period covers frames still held by the resampler, which never exceed one
// block.
func drainWindow(cfg output.Config) time.Duration {
	return time.Duration(cfg.Capacity()+2) * cfg.Format().Period()
}

// waitForEnd returns when ctx is done, or once the source is exhausted and
// window has passed.
func waitForEnd(ctx context.Context, feeder *audio.Feeder, window time.Duration) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var drainBy time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !feeder.Done() {
			continue
		}
		if drainBy.IsZero() {
			drainBy = time.Now().Add(window)
		}
		if time.Now().After(drainBy) {
			return
		}
	}
}

func (a *app) serveMetrics(addr string, reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", "error", err)
		}
	}()
	a.logger.Info("serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
