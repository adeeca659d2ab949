package jobcontrol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"syscall"

	"github.com/nixpig/tsh/internal/jobs"
	"golang.org/x/sys/unix"
)

// jobRefPrefix marks a job ID reference, e.g. %1. A bare number is a PID.
const jobRefPrefix = "%"

// Background continues the job identified by ref and leaves it running in
// the background. Continuing a job that is already running is harmless and
// re-prints the acknowledgment. name is the command shown in error messages.
func (c *Controller) Background(name, ref string) (jobs.Job, error) {
	unblock := c.block()
	defer unblock()

	job, err := c.resolve(name, ref)
	if err != nil {
		return jobs.Job{}, err
	}

	if err := c.signalGroup(job.PID, unix.SIGCONT); err != nil {
		return jobs.Job{}, err
	}

	if err := c.table.SetState(job.PID, jobs.StateBackground); err != nil {
		return jobs.Job{}, err
	}

	job.State = jobs.StateBackground

	// The job may have been the foreground job, e.g. when resumed remotely.
	c.fgDone.Broadcast()

	c.printf("[%d] (%d) %s\n", job.ID, job.PID, job.Cmdline)

	return job, nil
}

// Foreground continues the job identified by ref in the foreground and waits
// for it. name is the command shown in error messages.
func (c *Controller) Foreground(name, ref string) error {
	unblock := c.block()

	job, err := c.resolve(name, ref)
	if err != nil {
		unblock()
		return err
	}

	if fg, busy := c.table.ForegroundPID(); busy && fg != job.PID {
		unblock()
		return jobs.ErrForegroundBusy
	}

	if err := c.signalGroup(job.PID, unix.SIGCONT); err != nil {
		unblock()
		return err
	}

	if err := c.table.SetState(job.PID, jobs.StateForeground); err != nil {
		unblock()
		return err
	}

	unblock()

	c.logger.Debug("job moved to foreground", "job", job.ID, "pid", job.PID)

	c.WaitForeground(job.PID)

	return nil
}

// Signal sends sig to the process group of the job identified by ref. Any
// resulting state change is picked up by the dispatcher.
func (c *Controller) Signal(name, ref string, sig syscall.Signal) (jobs.Job, error) {
	unblock := c.block()
	defer unblock()

	job, err := c.resolve(name, ref)
	if err != nil {
		return jobs.Job{}, err
	}

	if err := c.signalGroup(job.PID, sig); err != nil {
		return jobs.Job{}, err
	}

	return job, nil
}

// resolve looks up a job from a PID or %jobid reference. Must be called with
// notifications blocked.
func (c *Controller) resolve(name, ref string) (jobs.Job, error) {
	if ref == "" {
		return jobs.Job{}, fmt.Errorf("%s %w", name, ErrMissingReference)
	}

	if digits, isJobRef := strings.CutPrefix(ref, jobRefPrefix); isJobRef {
		id, err := parseDigits(digits)
		if err != nil {
			return jobs.Job{}, fmt.Errorf("%s: %w", name, ErrMalformedReference)
		}

		job, ok := c.table.FindByID(id)
		if !ok {
			return jobs.Job{}, fmt.Errorf("%s: %w", ref, ErrNoSuchJob)
		}

		return job, nil
	}

	pid, err := parseDigits(ref)
	if err != nil {
		return jobs.Job{}, fmt.Errorf("%s: %w", name, ErrMalformedReference)
	}

	job, ok := c.table.FindByPID(pid)
	if !ok {
		return jobs.Job{}, fmt.Errorf("(%s): %w", ref, ErrNoSuchProcess)
	}

	return job, nil
}

func (c *Controller) signalGroup(pid int, sig syscall.Signal) error {
	// ESRCH means the group is already gone and the dispatcher will reap it.
	if err := unix.Kill(-pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("signal process group %d: %w", pid, err)
	}

	return nil
}

// parseDigits accepts only a non-empty run of ASCII digits.
func parseDigits(s string) (int, error) {
	if s == "" {
		return 0, errors.New("empty number")
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a number: %q", s)
		}
	}

	return strconv.Atoi(s)
}
