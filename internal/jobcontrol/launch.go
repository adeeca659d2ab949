package jobcontrol

import (
	"fmt"
	"os/exec"
	"syscall"

	"github.com/google/uuid"
	"github.com/nixpig/tsh/internal/cgroups"
	"github.com/nixpig/tsh/internal/jobs"
)

// Launch starts argv as a new job in its own process group. cmdline is the
// text recorded for the job.
//
// A background job is acknowledged and Launch returns straight away. A
// foreground job is waited for until it exits, is stopped or is moved to the
// background.
//
// If the table is full the process still runs but is not tracked and
// ErrTooManyJobs is returned.
func (c *Controller) Launch(argv []string, cmdline string, background bool) error {
	if len(argv) == 0 {
		return nil
	}

	state := jobs.StateForeground
	if background {
		state = jobs.StateBackground
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	c.attachStdio(cmd)

	// The child joins a new group with pgid == pid before it executes the
	// program, so terminal keystrokes never reach it directly.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	cg, err := c.newCgroup()
	if err != nil {
		return fmt.Errorf("create cgroup: %w", err)
	}

	if cg != nil && cg.FD() != nil {
		cmd.SysProcAttr.UseCgroupFD = true
		cmd.SysProcAttr.CgroupFD = int(cg.FD().Fd())
	}

	unblock := c.block()

	if err := cmd.Start(); err != nil {
		unblock()

		if cg != nil {
			c.destroyCgroup(cg)
		}

		c.logger.Debug("start process", "program", argv[0], "err", err)

		return fmt.Errorf("%s: %w", argv[0], ErrCommandNotFound)
	}

	pid := cmd.Process.Pid

	// Reaping is done by the dispatcher with wait4(-1), never by cmd.Wait.
	if err := cmd.Process.Release(); err != nil {
		c.logger.Debug("release process", "pid", pid, "err", err)
	}

	if cg != nil {
		c.trackCgroup(pid, cg, !cmd.SysProcAttr.UseCgroupFD)
	}

	job, err := c.table.Add(pid, state, cmdline)

	unblock()

	if err != nil {
		c.logger.Warn("job not tracked", "pid", pid, "err", err)
		return ErrTooManyJobs
	}

	c.logger.Debug("launched job", "job", job.ID, "pid", pid, "state", job.State)

	if c.cfg.Verbose {
		c.printf("Added job [%d] %d %s\n", job.ID, job.PID, job.Cmdline)
	}

	if background {
		c.printf("[%d] (%d) %s\n", job.ID, job.PID, job.Cmdline)
		return nil
	}

	c.WaitForeground(pid)

	return nil
}

func (c *Controller) attachStdio(cmd *exec.Cmd) {
	// A nil *os.File must not end up in the io.Reader/io.Writer fields.
	if c.cfg.Stdin != nil {
		cmd.Stdin = c.cfg.Stdin
	}

	if c.cfg.Stdout != nil {
		cmd.Stdout = c.cfg.Stdout
	}

	if c.cfg.Stderr != nil {
		cmd.Stderr = c.cfg.Stderr
	}
}

func (c *Controller) newCgroup() (*cgroups.Cgroup, error) {
	if c.cfg.CgroupRoot == "" {
		return nil, nil
	}

	return cgroups.New(c.cfg.CgroupRoot, uuid.NewString(), c.cfg.Limits)
}

// trackCgroup records the cgroup of pid until it is reaped. Must be called
// with notifications blocked.
func (c *Controller) trackCgroup(pid int, cg *cgroups.Cgroup, join bool) {
	if err := cg.CloseFD(); err != nil {
		c.logger.Debug("close cgroup", "pid", pid, "err", err)
	}

	if join {
		if err := cg.Join(pid); err != nil {
			c.logger.Warn("join cgroup", "pid", pid, "cgroup", cg.Path(), "err", err)
		}
	}

	c.cgroups[pid] = cg
}

// releaseCgroup removes the cgroup of a reaped pid. Must be called with
// notifications blocked.
func (c *Controller) releaseCgroup(pid int) {
	cg, ok := c.cgroups[pid]
	if !ok {
		return
	}

	delete(c.cgroups, pid)
	c.destroyCgroup(cg)
}

func (c *Controller) destroyCgroup(cg *cgroups.Cgroup) {
	if err := cg.Destroy(); err != nil {
		c.logger.Warn("destroy cgroup", "cgroup", cg.Path(), "err", err)
	}
}
