// Package jobcontrol launches child processes in their own process groups and
// keeps the job table in step with their state changes.
//
// A Controller owns the jobs.Table and a mask that stands in for blocking
// SIGCHLD, SIGINT and SIGTSTP: the signal dispatcher started by Start cannot
// reap children or relay keystrokes while the main path holds it. Launching a
// process and registering its job happen under the mask, so a child that
// exits straight away is never reaped before the table knows about it.
//
// The dispatcher is the only code that removes jobs or marks them stopped.
// Foreground jobs are waited for with a condition variable tied to the mask,
// so the check and the wait are a single step with respect to the dispatcher.
package jobcontrol
