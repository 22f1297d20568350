package pipeline

import (
	"errors"
	"testing"
)

func TestRun_HappyPath_ReachesDone(t *testing.T) {
	var seen []State
	steps := Steps{
		LoadMeta:  func() error { return nil },
		ReadFiles: func() error { return nil },
		Aggregate: func() error { return nil },
		Write:     func() error { return nil },
		OnStateEnter: func(s State) {
			seen = append(seen, s)
		},
	}
	final, err := Run(steps)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if final != StateDone {
		t.Fatalf("final state = %s, want Done", final)
	}
	want := []State{StateInit, StateLoadingMeta, StateReading, StateAggregating, StateWriting, StateDone}
	if len(seen) != len(want) {
		t.Fatalf("got %v transitions, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("transition %d = %s, want %s", i, seen[i], want[i])
		}
	}
}

func TestRun_FailureAtReading_StopsAndReturnsFailed(t *testing.T) {
	readErr := errors.New("no files found")
	aggregateCalled := false
	steps := Steps{
		LoadMeta:  func() error { return nil },
		ReadFiles: func() error { return readErr },
		Aggregate: func() error { aggregateCalled = true; return nil },
		Write:     func() error { return nil },
	}
	final, err := Run(steps)
	if err != readErr {
		t.Fatalf("err = %v, want %v", err, readErr)
	}
	if final != StateFailed {
		t.Fatalf("final state = %s, want Failed", final)
	}
	if aggregateCalled {
		t.Fatal("Aggregate must not run after ReadFiles fails")
	}
}

func TestRun_FailureAtLoadMeta_NeverReachesReading(t *testing.T) {
	steps := Steps{
		LoadMeta:  func() error { return errors.New("db unavailable") },
		ReadFiles: func() error { t.Fatal("ReadFiles must not be called"); return nil },
		Aggregate: func() error { return nil },
		Write:     func() error { return nil },
	}
	final, _ := Run(steps)
	if final != StateFailed {
		t.Fatalf("final state = %s, want Failed", final)
	}
}
