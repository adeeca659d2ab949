package jobcontrol

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// relay forwards an interactive signal (SIGINT or SIGTSTP) to the process
// group of the foreground job. With no foreground job the signal is dropped;
// it is never sent to the shell's own group.
func (c *Controller) relay(sig syscall.Signal) {
	unblock := c.block()
	pid, ok := c.table.ForegroundPID()
	unblock()

	if !ok {
		c.logger.Debug("no foreground job", "signal", sig)
		return
	}

	if err := unix.Kill(-pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		c.logger.Warn("relay signal", "pid", pid, "signal", sig, "err", err)
	}
}
