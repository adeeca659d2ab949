package jobcontrol

import "github.com/nixpig/tsh/internal/jobs"

// WaitForeground blocks until the job with the given pid is no longer in the
// foreground: it has been stopped, moved to the background or reaped.
//
// The dispatcher must be running (see Start), otherwise nothing ever wakes
// the waiter.
func (c *Controller) WaitForeground(pid int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Wait releases the mask and suspends in one step, so a state change
	// can't slip in between the check and the wait.
	for c.isForeground(pid) {
		c.fgDone.Wait()
	}
}

// isForeground must be called with notifications blocked.
func (c *Controller) isForeground(pid int) bool {
	job, ok := c.table.FindByPID(pid)
	return ok && job.State == jobs.StateForeground
}
