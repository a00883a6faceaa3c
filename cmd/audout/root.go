// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ik5/audout/backend/null"
	"github.com/ik5/audout/backend/wavfile"
	"github.com/ik5/audout/output"
)

type app struct {
	v          *viper.Viper
	configFile string
	settings   *Settings
	logger     *slog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{v: newViper()}

	rootCmd := &cobra.Command{
		Use:           "audout",
		Short:         "Play audio through the mix-ahead output engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(a.v, a.configFile)
			if err != nil {
				return err
			}
			a.settings = s
			a.logger = newLogger(cmd.ErrOrStderr(), s)
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Config file (yaml, toml or json)")
	flags.String("backend", "null", "Output backend: null or wavfile")
	flags.String("out-dir", ".", "Directory the wavfile backend records into")
	flags.Int("outputs", 1, "Number of outputs the wavfile backend exposes")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", "text", "Log format: text or json")

	if err := a.v.BindPFlags(flags); err != nil {
		panic(fmt.Sprintf("binding flags: %v", err))
	}

	rootCmd.AddCommand(a.playCommand(), a.backendsCommand())
	return rootCmd
}

// backend builds the configured backend.
func (a *app) backend(name string) (output.Backend, error) {
	switch name {
	case null.Name:
		return null.New(a.logger), nil
	case wavfile.Name:
		b, err := wavfile.New(a.settings.OutDir,
			wavfile.WithOutputs(a.settings.Outputs),
			wavfile.WithLogger(a.logger))
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidSettings, name)
	}
}

func (a *app) backendsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List backends and their outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, name := range []string{null.Name, wavfile.Name} {
				b, err := a.backend(name)
				if err != nil {
					return err
				}
				outputs, err := b.Outputs()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\n", b.Name())
				for i, o := range outputs {
					fmt.Fprintf(out, "  %d: %s\n", i, o)
				}
			}
			return nil
		},
	}
}
