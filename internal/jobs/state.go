package jobs

type State int

const (
	// StateUndefined is the state of a free slot.
	StateUndefined State = iota

	// StateForeground indicates the job is running and the shell is waiting
	// for it. At most one job can be in this state.
	StateForeground

	// StateBackground indicates the job is running and the shell is not
	// waiting for it.
	StateBackground

	// StateStopped indicates the job has been stopped by a signal and can be
	// resumed with bg or fg.
	StateStopped
)

// NOTE: This slice needs to be kept in sync with the State values. The labels
// are the ones printed by the jobs built-in, which is why a background job is
// reported as 'Running'.
var stateLabels = []string{
	"Undefined",
	"Foreground",
	"Running",
	"Stopped",
}

// String returns the label used when listing jobs.
func (s State) String() string {
	if int(s) < 0 || int(s) >= len(stateLabels) {
		return stateLabels[0]
	}

	return stateLabels[s]
}
