package fuzzing

import (
	"fmt"

	"github.com/crytic/siren/chain"
)

// TestCaseStatus describes the state of a check across a fuzzing session.
type TestCaseStatus string

const (
	// TestCaseStatusNotStarted describes a check which has not yet been exercised.
	TestCaseStatusNotStarted TestCaseStatus = "NOT STARTED"
	// TestCaseStatusRunning describes a check being exercised without a falsification so far.
	TestCaseStatusRunning TestCaseStatus = "RUNNING"
	// TestCaseStatusPassed describes a check that survived the whole session.
	TestCaseStatusPassed TestCaseStatus = "PASSED"
	// TestCaseStatusFailed describes a falsified check.
	TestCaseStatusFailed TestCaseStatus = "FAILED"
)

// TestCase describes one check tracked across a session: an invariant function or a property test function of the
// contract under test.
type TestCase interface {
	// Status returns the check's current status.
	Status() TestCaseStatus

	// Name returns the check's display name.
	Name() string

	// Message returns a finish message, non-empty once the check passed or failed.
	Message() string

	// ID returns a session-unique identifier for the check.
	ID() string
}

// checkTestCase is the TestCase for one invariant or property test function.
type checkTestCase struct {
	status        TestCaseStatus
	contract      chain.ContractID
	checkName     string
	falsification *Falsification
}

func (t *checkTestCase) Status() TestCaseStatus {
	return t.status
}

func (t *checkTestCase) Name() string {
	return fmt.Sprintf("%s.%s", t.contract, t.checkName)
}

func (t *checkTestCase) Message() string {
	switch t.status {
	case TestCaseStatusPassed:
		return fmt.Sprintf("%s held for the whole session", t.Name())
	case TestCaseStatusFailed:
		return fmt.Sprintf("%s falsified after %d trial(s) with seed %d", t.Name(), t.falsification.TrialsExecuted, t.falsification.Seed)
	default:
		return ""
	}
}

func (t *checkTestCase) ID() string {
	return string(t.contract) + "." + t.checkName
}
