package jobcontrol

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// Start installs the signal dispatcher: SIGCHLD reaps children, SIGINT and
// SIGTSTP are relayed to the foreground job. Catching SIGINT and SIGTSTP also
// keeps the keystrokes from interrupting or suspending the shell itself.
func (c *Controller) Start() {
	c.startOnce.Do(func() {
		c.started = true

		signal.Notify(c.sigchld, unix.SIGCHLD)
		signal.Notify(c.interactive, unix.SIGINT, unix.SIGTSTP)

		go c.dispatch()

		// Children may have changed state before the handler was installed.
		select {
		case c.sigchld <- unix.SIGCHLD:
		default:
		}
	})
}

// Stop uninstalls the signal dispatcher and waits for it to return. Jobs are
// left running. A Controller that was never started cannot be started after
// Stop.
func (c *Controller) Stop() {
	// Claims startOnce if Start never ran, and orders the read of started
	// after any Start that did.
	c.startOnce.Do(func() {})

	c.stopOnce.Do(func() {
		if !c.started {
			return
		}

		signal.Stop(c.sigchld)
		signal.Stop(c.interactive)
		close(c.done)
		<-c.stopped
	})
}

func (c *Controller) dispatch() {
	defer close(c.stopped)

	for {
		select {
		case <-c.done:
			return
		case sig := <-c.sigchld:
			c.handleSignal(sig)
		case sig := <-c.interactive:
			c.handleSignal(sig)
		}
	}
}

func (c *Controller) handleSignal(sig os.Signal) {
	switch sig {
	case unix.SIGCHLD:
		c.reap()
	case unix.SIGINT, unix.SIGTSTP:
		c.relay(sig.(syscall.Signal))
	default:
		c.logger.Debug("unexpected signal", "signal", sig)
	}
}
