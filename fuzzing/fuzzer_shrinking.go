package fuzzing

import (
	"golang.org/x/exp/slices"
)

// shrinkFalsification minimizes a falsifying sequence by removing one step at a time and replaying the remainder
// on a fresh chain. A removal survives when the check still falsifies without the removed step. Replay failures
// abort shrinking and leave the sequence as found; the falsification itself is already established.
func (f *Fuzzer) shrinkFalsification(falsification *Falsification) {
	sequence := falsification.Sequence
	for i := 0; i < len(sequence); {
		candidate := append(slices.Clone(sequence[:i]), sequence[i+1:]...)
		stillFalsifies, err := f.replayFalsifies(candidate, falsification)
		if err != nil {
			f.logger.Warn("shrinking aborted", err)
			break
		}
		if stillFalsifies {
			sequence = candidate
		} else {
			i++
		}
	}
	falsification.Sequence = sequence
}

// replayFalsifies replays a candidate sequence on a fresh session and re-runs the falsifying check with its
// recorded caller and arguments. Block advances replay after each step's call except the last: in the original
// session the falsifying check ran before its own trial's advance.
func (f *Fuzzer) replayFalsifies(sequence []TrialStep, falsification *Falsification) (bool, error) {
	s, err := f.setupSession(falsification.Seed)
	if err != nil {
		return false, err
	}
	for i, step := range sequence {
		if err = f.executeStep(s, step); err != nil {
			return false, err
		}
		if i < len(sequence)-1 && step.BlockAdvance > 0 {
			s.vm.AdvanceBlocks(int(step.BlockAdvance))
		}
	}
	outcome := f.executeCheck(s, falsification.CheckName, falsification.CheckCaller, falsification.CheckArgs)
	return outcome.falsified, nil
}
