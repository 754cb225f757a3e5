package sync

// State identifies where a run is in its lifecycle. A run moves
// Init → Reading → (Mapping → Resolving → Upserting)* → Finalizing → Done,
// with Aborted reachable from any step on a fatal error.
type State string

const (
	// StateInit means the run has been constructed but not started.
	StateInit State = "init"
	// StateReading means the run is pulling records from the source.
	StateReading State = "reading"
	// StateFinalizing means the stream is exhausted and the report is
	// being stamped.
	StateFinalizing State = "finalizing"
	// StateDone is the successful terminal state.
	StateDone State = "done"
	// StateAborted is the terminal state reached on a fatal error.
	StateAborted State = "aborted"
)

// String returns the string representation of a state.
func (s State) String() string {
	return string(s)
}
