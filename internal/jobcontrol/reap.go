package jobcontrol

import (
	"errors"

	"github.com/nixpig/tsh/internal/jobs"
	"golang.org/x/sys/unix"
)

// reap collects every child that has exited, been killed or been stopped
// since the last call, without waiting for children that have not changed
// state. Several SIGCHLDs can arrive as one, so it drains until wait4 has
// nothing left to report.
func (c *Controller) reap() {
	unblock := c.block()
	defer unblock()

	changed := false

	for {
		var status unix.WaitStatus

		pid, err := unix.Wait4(-1, &status, unix.WNOHANG|unix.WUNTRACED, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}

		if err != nil {
			if !errors.Is(err, unix.ECHILD) {
				c.logger.Warn("wait for children", "err", err)
			}

			break
		}

		if pid <= 0 {
			break
		}

		c.handleStatus(pid, status)
		changed = true
	}

	if changed {
		c.fgDone.Broadcast()
	}
}

// handleStatus applies one state change to the table. Must be called with
// notifications blocked.
func (c *Controller) handleStatus(pid int, status unix.WaitStatus) {
	switch {
	case status.Exited():
		c.releaseCgroup(pid)

		if err := c.table.Remove(pid); err != nil {
			c.logger.Debug("exit of untracked process", "pid", pid)
			return
		}

		c.logger.Debug("job exited", "pid", pid, "code", status.ExitStatus())

	case status.Signaled():
		c.releaseCgroup(pid)

		job, ok := c.table.FindByPID(pid)
		if !ok {
			c.logger.Debug("untracked process killed", "pid", pid, "signal", status.Signal())
			return
		}

		c.printf(
			"Job [%d] (%d) terminated by signal %d\n",
			job.ID,
			pid,
			int(status.Signal()),
		)

		c.table.Remove(pid)

	case status.Stopped():
		job, ok := c.table.FindByPID(pid)
		if !ok {
			c.logger.Debug("untracked process stopped", "pid", pid, "signal", status.StopSignal())
			return
		}

		c.table.SetState(pid, jobs.StateStopped)

		c.printf(
			"Job [%d] (%d) stopped by signal %d\n",
			job.ID,
			pid,
			int(status.StopSignal()),
		)
	}
}
