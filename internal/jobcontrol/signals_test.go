package jobcontrol

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestDispatcher(t *testing.T) {
	t.Run("Test stop without start", func(t *testing.T) {
		c, _ := newUnstartedController(t)

		done := make(chan struct{})
		go func() {
			c.Stop()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for Stop to return")
		}

		c.Start()

		if c.started {
			t.Error("expected Start after Stop to be a no-op")
		}
	})

	t.Run("Test child notification with interactive backlog", func(t *testing.T) {
		c, _ := newUnstartedController(t)

		if err := c.Launch([]string{"true"}, "true &", true); err != nil {
			t.Fatalf("expected not to receive error: got '%v'", err)
		}

		for range cap(c.interactive) {
			c.interactive <- unix.SIGINT
		}

		select {
		case c.sigchld <- unix.SIGCHLD:
		default:
			t.Fatal("expected SIGCHLD to be accepted with a full interactive queue")
		}

		c.Start()
		t.Cleanup(c.Stop)

		deadline := time.Now().Add(5 * time.Second)
		for len(c.Jobs()) != 0 {
			if time.Now().After(deadline) {
				t.Fatal("timed out waiting for job to be reaped")
			}

			time.Sleep(10 * time.Millisecond)
		}
	})
}
