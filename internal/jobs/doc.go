// Package jobs provides the fixed-capacity job table of the shell.
//
// A Job records a child process launched by the shell: its PID, the small
// integer job ID shown to the user, its run state and the command line that
// started it.
//
// A Table is a plain data structure and is not safe for concurrent use. The
// owner is responsible for serialising access, see package jobcontrol.
package jobs
