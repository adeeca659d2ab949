package jobcontrol

import "errors"

// NOTE: The shell prints these messages verbatim, wrapped with the offending
// command or reference, so they follow the shell's output format rather than
// the usual lowercase error style.
var (
	ErrCommandNotFound    = errors.New("Command not found")
	ErrTooManyJobs        = errors.New("Tried to create too many jobs")
	ErrMissingReference   = errors.New("command requires PID or %jobid argument")
	ErrMalformedReference = errors.New("argument must be a PID or %jobid")
	ErrNoSuchProcess      = errors.New("No such process")
	ErrNoSuchJob          = errors.New("No such job")
)
