package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/precice-go/config"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solverdummy [precice-config.xml] [participant] [mesh]",
		Short: "Run a dummy solver coupled through preCICE",
		Long: `solverdummy registers a few vertices on its mesh, then reads, increments
and writes coupling data until the coupling scheme ends.

Settings are read from --settings (YAML), then PRECICE_* environment
variables, then positional arguments and flags.`,
		Args:          cobra.MaximumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := settings(cmd, args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if s.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, s.Timeout)
				defer cancel()
			}

			if s.Interactive {
				if isTerminal(cmd.OutOrStdout()) {
					return runInteractive(ctx, s)
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "DUMMY: output is not a terminal, interactive mode disabled")
			}
			return run(ctx, s, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.String("settings", "", "YAML settings file")
	f.String("engine", "", "engine backend: loopback, native or echo")
	f.String("protocol", "", "engine protocol generation: v3 or v2")
	f.String("kernel", "", "WebAssembly module exporting step(f64) f64, default adds one")
	f.String("kernel-export", "", "name of the kernel export")
	f.Int("vertices", 0, "number of vertices")
	f.Int("process-index", 0, "index of this process")
	f.Int("process-size", 0, "number of processes")
	f.Int("max-steps", 0, "fail when coupling is still ongoing after this many steps")
	f.Duration("timeout", 0, "abort the run after this long")
	f.String("log-level", "", "debug, info, warn or error")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address")
	f.BoolP("interactive", "i", false, "show a live dashboard")
	return cmd
}

// settings layers positional arguments and changed flags over the
// settings file and environment.
func settings(cmd *cobra.Command, args []string) (config.Settings, error) {
	f := cmd.Flags()
	path, _ := f.GetString("settings")
	s, err := config.Load(path)
	if err != nil {
		return s, err
	}

	if len(args) > 0 {
		s.Configuration = args[0]
	}
	if len(args) > 1 {
		s.Participant = args[1]
	}
	if len(args) > 2 {
		s.Mesh = args[2]
	}

	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if f.Changed(name) {
			*dst, _ = f.GetInt(name)
		}
	}
	str("engine", &s.Engine)
	str("protocol", &s.Protocol)
	str("kernel", &s.Kernel)
	str("kernel-export", &s.KernelExport)
	str("log-level", &s.LogLevel)
	str("metrics-addr", &s.MetricsAddr)
	num("vertices", &s.Vertices)
	num("process-index", &s.ProcessIndex)
	num("process-size", &s.ProcessSize)
	num("max-steps", &s.MaxSteps)
	if f.Changed("timeout") {
		s.Timeout, _ = f.GetDuration("timeout")
	}
	if f.Changed("interactive") {
		s.Interactive, _ = f.GetBool("interactive")
	}

	s.FillDefaults()
	return s, s.Validate()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
