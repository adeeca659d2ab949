package jobs

import "errors"

var (
	ErrInvalidPID     = errors.New("invalid pid")
	ErrTableFull      = errors.New("job table full")
	ErrJobNotFound    = errors.New("job not found")
	ErrForegroundBusy = errors.New("another job is already in the foreground")
)
