package jobcontrol

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/nixpig/tsh/internal/cgroups"
	"github.com/nixpig/tsh/internal/jobs"
)

// Config configures a Controller.
type Config struct {
	// Verbose prints a line for every job added to the table.
	Verbose bool

	// Stdin, Stdout and Stderr are handed to every launched process. Nil means
	// the null device. They are files rather than io.Readers/io.Writers so the
	// child uses them directly and no copying goroutine outlives the job.
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	// CgroupRoot enables per-job cgroups under the given cgroup v2 root.
	CgroupRoot string
	Limits     *cgroups.Limits
}

// Controller supervises the jobs launched by the shell.
type Controller struct {
	// mu is the notification mask. Every access to table and cgroups happens
	// while holding it.
	mu      sync.Mutex
	fgDone  *sync.Cond
	table   *jobs.Table
	cgroups map[int]*cgroups.Cgroup

	cfg     Config
	session string
	logger  *slog.Logger
	out     *syncWriter

	// SIGCHLD has a channel of its own so a burst of keystrokes can never
	// crowd it out. One pending SIGCHLD is enough since every reap drains.
	sigchld     chan os.Signal
	interactive chan os.Signal
	done        chan struct{}
	stopped     chan struct{}
	started     bool
	startOnce   sync.Once
	stopOnce    sync.Once
}

// New creates a Controller with an empty job table. Messages for the user are
// written to out.
func New(out io.Writer, logger *slog.Logger, cfg Config) (*Controller, error) {
	if cfg.CgroupRoot != "" {
		if err := cgroups.Validate(cfg.CgroupRoot); err != nil {
			return nil, err
		}
	}

	session := uuid.NewString()

	c := &Controller{
		table:   jobs.NewTable(),
		cgroups: make(map[int]*cgroups.Cgroup),
		cfg:     cfg,
		session: session,
		logger:  logger.With("session", session),
		out:     &syncWriter{w: out},
		sigchld:     make(chan os.Signal, 1),
		interactive: make(chan os.Signal, 8),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}

	c.fgDone = sync.NewCond(&c.mu)

	return c, nil
}

// block masks notification handling until the returned function is called.
func (c *Controller) block() (unblock func()) {
	c.mu.Lock()
	return c.mu.Unlock
}

// Jobs returns a snapshot of the job table.
func (c *Controller) Jobs() []jobs.Job {
	unblock := c.block()
	defer unblock()

	return c.table.List()
}

// SessionID identifies this Controller. Job IDs are only meaningful within a
// session.
func (c *Controller) SessionID() string {
	return c.session
}

// Writer returns the writer used for user messages. Output written through it
// never interleaves with reports printed by the signal dispatcher.
func (c *Controller) Writer() io.Writer {
	return c.out
}

func (c *Controller) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.w.Write(p)
}
