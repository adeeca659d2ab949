// Package shell implements the read/eval loop of tsh: it reads command lines,
// runs the built-in commands itself and hands everything else to the job
// controller.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/nixpig/tsh/internal/cmdline"
	"github.com/nixpig/tsh/internal/jobcontrol"
	"github.com/nixpig/tsh/internal/jobs"
)

// DefaultPrompt is printed before every command line.
const DefaultPrompt = "tsh> "

const (
	builtinQuit = "quit"
	builtinJobs = "jobs"
	builtinBg   = "bg"
	builtinFg   = "fg"
)

// errQuit ends the loop without an error.
var errQuit = errors.New("quit")

type Shell struct {
	ctrl   *jobcontrol.Controller
	in     *bufio.Reader
	out    io.Writer
	prompt string
	logger *slog.Logger
}

// New creates a Shell that reads command lines from in. Everything it prints
// goes through the controller's writer. An empty prompt disables it.
func New(
	ctrl *jobcontrol.Controller,
	in io.Reader,
	prompt string,
	logger *slog.Logger,
) *Shell {
	return &Shell{
		ctrl:   ctrl,
		in:     bufio.NewReader(in),
		out:    ctrl.Writer(),
		prompt: prompt,
		logger: logger,
	}
}

// Run reads and evaluates command lines until quit, end of input or ctx is
// done. Jobs that are still running are left alone.
func (s *Shell) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		if s.prompt != "" {
			fmt.Fprint(s.out, s.prompt)
		}

		line, err := s.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read command line: %w", err)
		}

		if line == "" && errors.Is(err, io.EOF) {
			s.logger.Debug("end of input")
			return nil
		}

		if evalErr := s.Eval(line); evalErr != nil {
			if errors.Is(evalErr, errQuit) {
				return nil
			}

			fmt.Fprintln(s.out, evalErr)
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}

// Eval evaluates a single command line. The returned error is meant for the
// user; the loop prints it and carries on.
func (s *Shell) Eval(line string) error {
	argv, background := cmdline.Parse(line)
	if len(argv) == 0 {
		return nil
	}

	switch argv[0] {
	case builtinQuit:
		return errQuit

	case builtinJobs:
		jobs.FormatListing(s.out, s.ctrl.Jobs())
		return nil

	case builtinBg:
		_, err := s.ctrl.Background(builtinBg, argAt(argv, 1))
		return err

	case builtinFg:
		return s.ctrl.Foreground(builtinFg, argAt(argv, 1))
	}

	text := strings.TrimSuffix(line, "\n")

	return s.ctrl.Launch(argv, text, background)
}

func argAt(argv []string, i int) string {
	if i < len(argv) {
		return argv[i]
	}

	return ""
}
