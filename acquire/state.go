package acquire

// State is a step of the session state machine.
//
//	Idle -> PreSetup -> Calibrating -> Acquiring <-> Centering -> Teardown -> Ended
//
// Cancelling and Aborted may be entered from any state and lead to Ended.
type State int

const (
	// Idle is a session that has not been run
	Idle State = iota

	// PreSetup homes, points and stops the mount
	PreSetup

	// Calibrating measures the download time of each binning
	Calibrating

	// Acquiring takes the frames of one set
	Acquiring

	// Centering returns the mount to the dither center between sets
	Centering

	// Teardown warms the camera and parks the mount
	Teardown

	// Cancelling aborts work in flight after a cancellation
	Cancelling

	// Aborted aborts work in flight after an error
	Aborted

	// Ended is terminal
	Ended
)

var stateNames = [...]string{"idle", "pre-setup", "calibrating", "acquiring", "centering", "teardown", "cancelling", "aborted", "ended"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Outcome is how a session ended
type Outcome int

const (
	// Completed sessions acquired every frame requested
	Completed Outcome = iota

	// Cancelled sessions were stopped by their context
	Cancelled

	// Failed sessions were stopped by an error
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	default:
		return "aborted"
	}
}
