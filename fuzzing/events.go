package fuzzing

import (
	"github.com/crytic/siren/events"
)

// FuzzerStartingEvent is published after setup succeeds, before the first trial.
type FuzzerStartingEvent struct {
	Fuzzer *Fuzzer
}

// FuzzerStoppingEvent is published when the loop reaches its terminal state.
type FuzzerStoppingEvent struct {
	Fuzzer *Fuzzer

	// Err is the fatal error ending the session, nil for normal completion.
	Err error
}

// TrialExecutedEvent is published after each completed trial.
type TrialExecutedEvent struct {
	Fuzzer *Fuzzer

	// Trial is the 1-based index of the completed trial.
	Trial int
}

// FuzzerEvents exposes the fuzzer's event emitters for subscription.
type FuzzerEvents struct {
	// FuzzerStarting emits when a session begins.
	FuzzerStarting events.EventEmitter[FuzzerStartingEvent]

	// FuzzerStopping emits when a session ends.
	FuzzerStopping events.EventEmitter[FuzzerStoppingEvent]

	// TrialExecuted emits per completed trial.
	TrialExecuted events.EventEmitter[TrialExecutedEvent]
}
