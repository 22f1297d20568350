// Package pipeline implements spec.md §4.10's run state machine:
// Init -> LoadingMeta -> Reading -> Aggregating -> Writing -> Done, with a
// terminal Failed reachable from any state.
package pipeline

// State is one state of a pipeline run.
type State string

const (
	StateInit        State = "Init"
	StateLoadingMeta State = "LoadingMeta"
	StateReading     State = "Reading"
	StateAggregating State = "Aggregating"
	StateWriting     State = "Writing"
	StateDone        State = "Done"
	StateFailed      State = "Failed"
)

// transitions is the state machine's adjacency list. Failed is reachable
// from every non-terminal state but is left implicit here and enforced in
// Run rather than listed against each entry, to keep the table focused on
// the happy path.
var transitions = map[State]State{
	StateInit:        StateLoadingMeta,
	StateLoadingMeta: StateReading,
	StateReading:     StateAggregating,
	StateAggregating: StateWriting,
	StateWriting:     StateDone,
}

// Steps holds the step functions Run calls, in order, plus an optional
// per-transition hook.
type Steps struct {
	LoadMeta    func() error
	ReadFiles   func() error
	Aggregate   func() error
	Write       func() error
	OnStateEnter func(State) // optional hook for logging/metrics per transition
}

// Run drives a pipeline run through its states, calling the matching step
// function at each transition. A step returning a non-nil error moves the
// run to Failed and stops; Run returns that error. The returned State is
// Done on success or Failed on any step's error.
func Run(steps Steps) (State, error) {
	state := StateInit
	notify := func(s State) {
		if steps.OnStateEnter != nil {
			steps.OnStateEnter(s)
		}
	}
	notify(state)

	stepFns := []func() error{steps.LoadMeta, steps.ReadFiles, steps.Aggregate, steps.Write}
	for _, step := range stepFns {
		if err := step(); err != nil {
			state = StateFailed
			notify(state)
			return state, err
		}
		state = transitions[state]
		notify(state)
	}
	state = transitions[state]
	notify(state)
	return state, nil
}
