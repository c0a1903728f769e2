package fuzzing

import (
	"strconv"
	"strings"

	"github.com/crytic/siren/chain"
	"github.com/crytic/siren/clarity"
	"github.com/crytic/siren/logging"
	"github.com/crytic/siren/logging/colors"
	"github.com/crytic/siren/utils"
)

// TrialStep is one replayable state-changing call of a trial sequence.
type TrialStep struct {
	// Function is the called SUT function.
	Function string

	// Caller is the simulated sender.
	Caller string

	// Args are the materialized arguments.
	Args []clarity.Value

	// BlockAdvance is how many blocks were mined after the trial's check, zero for none.
	BlockAdvance uint64
}

// Falsification is the structured record of one falsified check, handed to the reporter and the regression store.
type Falsification struct {
	// Seed is the session seed the falsification was found under.
	Seed int64

	// TrialsExecuted is how many trials ran before the check fell.
	TrialsExecuted int

	// ContractID identifies the contract under test.
	ContractID chain.ContractID

	// Mode is the fuzzing mode.
	Mode string

	// CheckName is the falsified invariant or property test.
	CheckName string

	// CheckCaller and CheckArgs are the falsifying check invocation.
	CheckCaller string
	CheckArgs   []clarity.Value

	// Sequence is the shrunk state-changing call sequence reproducing the falsification.
	Sequence []TrialStep

	// Output is the check's final output value, nil when the check raised an execution error.
	Output clarity.Value

	// Err is the execution error that falsified the check, nil when the check returned a falsifying value.
	Err error
}

// Reporter receives falsification records for presentation.
type Reporter interface {
	ReportFalsification(falsification *Falsification)
}

// ConsoleReporter renders falsifications through the logging package.
type ConsoleReporter struct {
	logger *logging.Logger
}

// NewConsoleReporter creates a reporter logging to the given logger.
func NewConsoleReporter(logger *logging.Logger) *ConsoleReporter {
	return &ConsoleReporter{logger: logger.NewSubLogger("module", "reporter")}
}

func (r *ConsoleReporter) ReportFalsification(falsification *Falsification) {
	r.logger.Error(colors.RedBold, "falsified ", colors.Reset, falsification.CheckName,
		" on ", string(falsification.ContractID),
		" after ", falsification.TrialsExecuted, " trial(s), seed ", falsification.Seed,
		falsification.Err)
	r.logger.Error("check call: ", renderCall(falsification.CheckName, falsification.CheckArgs), " as ", falsification.CheckCaller)
	if falsification.Output != nil {
		r.logger.Error("check output: ", falsification.Output.String())
	}
	for i, step := range falsification.Sequence {
		r.logger.Error("  step ", i+1, ": ", renderCall(step.Function, step.Args),
			" as ", step.Caller, blockAdvanceSuffix(step.BlockAdvance))
	}
}

func renderCall(function string, args []clarity.Value) string {
	rendered := utils.SliceSelect(args, func(v clarity.Value) string { return v.String() })
	if len(rendered) == 0 {
		return "(" + function + ")"
	}
	return "(" + function + " " + strings.Join(rendered, " ") + ")"
}

func blockAdvanceSuffix(advance uint64) string {
	if advance == 0 {
		return ""
	}
	return " (then advance " + strconv.FormatUint(advance, 10) + " blocks)"
}
