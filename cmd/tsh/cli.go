package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/nixpig/tsh/internal/cgroups"
	"github.com/nixpig/tsh/internal/jobcontrol"
	"github.com/nixpig/tsh/internal/shell"
	"github.com/spf13/cobra"
)

// stdio is the terminal the shell runs on. Jobs inherit it.
type stdio struct {
	in  *os.File
	out *os.File
	err *os.File
}

func rootCmd(std stdio) *cobra.Command {
	cfg := &config{}

	c := &cobra.Command{
		Use:   "tsh",
		Short: "A tiny shell with job control",
		Long: "tsh reads command lines and runs each one as a job in its own " +
			"process group. Built-ins: quit, jobs, bg <job>, fg <job>, where " +
			"<job> is a PID or %jobid.",
		Example:       "  tsh -v\n  tsh --control-addr localhost:8443 --cgroup-root /sys/fs/cgroup --memory-max 512m",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.load(cmd.Flags()); err != nil {
				return err
			}

			if err := cfg.validate(); err != nil {
				return err
			}

			return run(cmd.Context(), cfg, std)
		},
	}

	cfg.bindFlags(c.Flags())

	c.CompletionOptions.HiddenDefaultCmd = true

	return c
}

func newLogger(cfg *config, w *os.File) *slog.Logger {
	level := slog.LevelWarn
	if cfg.Debug {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func run(ctx context.Context, cfg *config, std stdio) error {
	logger := newLogger(cfg, std.err)

	ctrl, err := jobcontrol.New(std.out, logger, jobcontrol.Config{
		Verbose:    cfg.Verbose,
		Stdin:      std.in,
		Stdout:     std.out,
		Stderr:     std.err,
		CgroupRoot: cfg.CgroupRoot,
		Limits:     cfg.limits,
	})
	if err != nil {
		return fmt.Errorf("create job controller: %w", err)
	}

	if cfg.limits != nil {
		logger.Debug(
			"job limits",
			"cpu_percent", cfg.limits.CPUMaxPercent,
			"memory", cgroups.FormatMemory(cfg.limits.MemoryMaxBytes),
			"io_bps", cfg.limits.IOMaxBPS,
		)
	}

	ctrl.Start()
	defer ctrl.Stop()

	if cfg.ControlAddr != "" {
		srv, err := newServer(ctrl, logger, cfg)
		if err != nil {
			return err
		}

		listener, err := net.Listen("tcp", cfg.ControlAddr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.ControlAddr, err)
		}

		go func() {
			if err := srv.start(listener); err != nil {
				logger.Error("job control API stopped", "err", err)
			}
		}()

		defer srv.shutdown()
	}

	return shell.New(ctrl, std.in, cfg.prompt(), logger).Run(ctx)
}
