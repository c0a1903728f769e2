package fuzzing

import (
	"github.com/pkg/errors"

	"github.com/crytic/siren/clarity"
	"github.com/crytic/siren/fuzzing/config"
	"github.com/crytic/siren/fuzzing/valuegeneration"
	"github.com/crytic/siren/logging/colors"
)

// checkOutcome is the interpreted result of one check call.
type checkOutcome struct {
	falsified bool

	// discarded marks a property test that declined the trial; it counts as neither pass nor failure.
	discarded bool

	// output is the check's returned value; err is the execution error that felled it, if any.
	output clarity.Value
	err    error
}

// executeTrial runs one full trial: draw, state-changing call, ledger sync, check call and block advance. It
// returns the trial's recorded step, and a falsification when the check fell. Errors are fatal.
func (f *Fuzzer) executeTrial(s *session, priorSteps []TrialStep) (*Falsification, TrialStep, error) {
	f.state = StateSelectingTrial

	sutCaller := s.accounts[s.random.Intn(len(s.accounts))]
	checkCaller := s.accounts[s.random.Intn(len(s.accounts))]
	sutFunction := s.sutPool[s.random.Intn(len(s.sutPool))]
	check := s.checkPool[s.random.Intn(len(s.checkPool))]

	sutArgs := valuegeneration.GenerateFunctionArgs(s.generator, sutFunction)
	checkArgs := valuegeneration.GenerateFunctionArgs(s.generator, check)

	// Only invariant mode mines extra blocks; the per-trial cap keeps a session's total height growth within
	// its budget.
	var blockAdvance uint64
	if f.config.Fuzzing.Mode == config.ModeInvariant && s.random.Intn(2) == 0 && s.maxBlockAdvance > 0 {
		blockAdvance = 1 + uint64(s.random.Int63n(int64(s.maxBlockAdvance)))
	}

	step := TrialStep{Function: sutFunction.Name, Caller: sutCaller, Args: sutArgs, BlockAdvance: blockAdvance}

	f.state = StateExecutingSUT
	if err := f.executeStep(s, step); err != nil {
		return nil, step, err
	}

	f.state = StateExecutingCheck
	outcome := f.executeCheck(s, check.Name, checkCaller, checkArgs)
	switch {
	case outcome.falsified:
		sequence := make([]TrialStep, 0, len(priorSteps)+1)
		sequence = append(sequence, priorSteps...)
		sequence = append(sequence, step)
		return &Falsification{
			Seed:           s.seed,
			TrialsExecuted: f.trialsExecuted + 1,
			ContractID:     s.targetID,
			Mode:           f.config.Fuzzing.Mode,
			CheckName:      check.Name,
			CheckCaller:    checkCaller,
			CheckArgs:      checkArgs,
			Sequence:       sequence,
			Output:         outcome.output,
			Err:            outcome.err,
		}, step, nil
	case outcome.discarded:
		f.logger.Debug("discarded ", check.Name, " after ", renderCall(step.Function, step.Args))
	default:
		f.logger.Debug(colors.Green, "passed ", colors.Reset, check.Name, " after ", renderCall(step.Function, step.Args))
	}

	// The block advance lands after the check, so each check judges the exact post-call state.
	if step.BlockAdvance > 0 {
		s.vm.AdvanceBlocks(int(step.BlockAdvance))
	}
	return nil, step, nil
}

// executeStep performs one state-changing call with its hooks and ledger synchronization. A failing call is an
// expected outcome and leaves the ledger untouched; a ledger synchronization failure is fatal because it breaks
// the equality invariants depend on.
func (f *Fuzzer) executeStep(s *session, step TrialStep) error {
	hookCtx := &CallHookContext{
		Contract: s.targetID,
		Function: step.Function,
		Caller:   step.Caller,
		Args:     step.Args,
	}
	f.Hooks.invokePre(hookCtx)

	result, err := s.vm.CallPublicFunction(s.targetID, step.Function, step.Args, step.Caller)
	hookCtx.Result = result
	hookCtx.Err = err
	f.Hooks.invokePost(hookCtx)

	if err != nil {
		f.logger.Debug(renderCall(step.Function, step.Args), " raised: ", err.Error())
	} else if result.Failed() {
		f.logger.Debug(renderCall(step.Function, step.Args), " returned ", result.Value.String())
	} else {
		count := s.ledger.Increment(s.targetID, step.Function)
		syncResult, syncErr := s.vm.CallPublicFunction(s.targetID, ledgerFunction,
			[]clarity.Value{&clarity.StringAsciiValue{Data: step.Function}, clarity.NewUintValue(count)}, step.Caller)
		if syncErr != nil || syncResult.Failed() {
			return errors.Errorf("could not synchronize the on-chain ledger for '%s'", step.Function)
		}
		f.logger.Info(renderCall(step.Function, step.Args), " as ", step.Caller)
	}
	return nil
}

// executeCheck performs one check call and interprets its outcome. Invariants must return true; property tests
// return (response bool) where (ok true) passes, (ok false) discards the trial, and err falsifies. An execution
// error falsifies in both modes. Checks run read-only, so they never disturb chain state.
func (f *Fuzzer) executeCheck(s *session, checkName string, caller string, args []clarity.Value) checkOutcome {
	result, err := s.vm.CallReadOnlyFunction(s.targetID, checkName, args, caller)
	if err != nil {
		return checkOutcome{falsified: true, err: err}
	}

	if f.config.Fuzzing.Mode == config.ModeInvariant {
		if boolean, ok := result.Value.(*clarity.BoolValue); ok && boolean.Value {
			return checkOutcome{}
		}
		return checkOutcome{falsified: true, output: result.Value}
	}

	if response, ok := result.Value.(*clarity.ResponseValue); ok && response.Ok {
		if boolean, ok := response.Inner.(*clarity.BoolValue); ok {
			if boolean.Value {
				return checkOutcome{}
			}
			return checkOutcome{discarded: true, output: result.Value}
		}
	}
	return checkOutcome{falsified: true, output: result.Value}
}
