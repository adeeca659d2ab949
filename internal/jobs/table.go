package jobs

import (
	"fmt"
	"io"
)

// MaxJobs is the capacity of a Table.
const MaxJobs = 16

// Job is a snapshot of a slot in the Table. Mutating a Job has no effect on
// the Table it came from.
type Job struct {
	PID     int
	ID      int
	State   State
	Cmdline string
}

// Table is a fixed-size registry of Jobs keyed by PID.
type Table struct {
	slots  [MaxJobs]Job
	nextID int
}

// NewTable creates an empty Table with the job ID allocator reset to 1.
func NewTable() *Table {
	return &Table{nextID: 1}
}

// Add occupies the first free slot with a new Job and returns it.
//
// It returns ErrInvalidPID for a non-positive pid, ErrTableFull if every slot
// is taken and ErrForegroundBusy if state is StateForeground while another
// job is already in the foreground. The Table is unchanged on error.
func (t *Table) Add(pid int, state State, cmdline string) (Job, error) {
	if pid < 1 {
		return Job{}, ErrInvalidPID
	}

	if state == StateForeground {
		if _, busy := t.ForegroundPID(); busy {
			return Job{}, ErrForegroundBusy
		}
	}

	for i := range t.slots {
		if t.slots[i].PID != 0 {
			continue
		}

		id := t.allocateID()

		t.slots[i] = Job{
			PID:     pid,
			ID:      id,
			State:   state,
			Cmdline: cmdline,
		}

		return t.slots[i], nil
	}

	return Job{}, ErrTableFull
}

// Remove clears the slot of the Job with the given pid and re-bases the job
// ID allocator on the largest remaining ID.
func (t *Table) Remove(pid int) error {
	i := t.indexOf(pid)
	if i < 0 {
		return ErrJobNotFound
	}

	t.slots[i] = Job{}
	t.nextID = t.maxID() + 1

	return nil
}

// SetState changes the state of the Job with the given pid. Moving a job to
// the foreground fails with ErrForegroundBusy if a different job is already
// there.
func (t *Table) SetState(pid int, state State) error {
	i := t.indexOf(pid)
	if i < 0 {
		return ErrJobNotFound
	}

	if state == StateForeground {
		if fg, busy := t.ForegroundPID(); busy && fg != pid {
			return ErrForegroundBusy
		}
	}

	t.slots[i].State = state

	return nil
}

// FindByPID returns the Job with the given pid.
func (t *Table) FindByPID(pid int) (Job, bool) {
	i := t.indexOf(pid)
	if i < 0 {
		return Job{}, false
	}

	return t.slots[i], true
}

// FindByID returns the Job with the given job ID.
func (t *Table) FindByID(id int) (Job, bool) {
	if id < 1 {
		return Job{}, false
	}

	for _, j := range t.slots {
		if j.PID != 0 && j.ID == id {
			return j, true
		}
	}

	return Job{}, false
}

// ForegroundPID returns the pid of the foreground job, if there is one.
func (t *Table) ForegroundPID() (int, bool) {
	for _, j := range t.slots {
		if j.PID != 0 && j.State == StateForeground {
			return j.PID, true
		}
	}

	return 0, false
}

// PIDToID maps a pid to its job ID.
func (t *Table) PIDToID(pid int) (int, bool) {
	j, ok := t.FindByPID(pid)
	if !ok {
		return 0, false
	}

	return j.ID, true
}

// List returns a copy of every live Job in slot order.
func (t *Table) List() []Job {
	list := make([]Job, 0, MaxJobs)

	for _, j := range t.slots {
		if j.PID != 0 {
			list = append(list, j)
		}
	}

	return list
}

// Len returns the number of live Jobs.
func (t *Table) Len() int {
	n := 0

	for _, j := range t.slots {
		if j.PID != 0 {
			n++
		}
	}

	return n
}

func (t *Table) indexOf(pid int) int {
	if pid < 1 {
		return -1
	}

	for i, j := range t.slots {
		if j.PID == pid {
			return i
		}
	}

	return -1
}

func (t *Table) maxID() int {
	highest := 0

	for _, j := range t.slots {
		if j.PID != 0 && j.ID > highest {
			highest = j.ID
		}
	}

	return highest
}

func (t *Table) idInUse(id int) bool {
	_, ok := t.FindByID(id)
	return ok
}

// allocateID hands out the next job ID and advances the allocator, wrapping
// back to 1 once it passes MaxJobs. Must only be called when a slot is free.
//
// The ID is not bounded by MaxJobs: Remove re-bases on the largest live ID,
// so while job MaxJobs is alive the next ID is MaxJobs+1.
func (t *Table) allocateID() int {
	id := t.nextID

	// After a wrap the allocator can land on an ID that a long-lived job
	// still holds.
	for t.idInUse(id) {
		id++
		if id > MaxJobs {
			id = 1
		}
	}

	t.nextID = id + 1
	if t.nextID > MaxJobs {
		t.nextID = 1
	}

	return id
}

// FormatListing writes one line per Job in the format used by the jobs
// built-in.
func FormatListing(w io.Writer, list []Job) {
	for _, j := range list {
		fmt.Fprintf(w, "[%d] (%d) %s %s\n", j.ID, j.PID, j.State, j.Cmdline)
	}
}
