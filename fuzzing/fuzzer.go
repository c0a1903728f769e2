// Package fuzzing implements the invariant and property-test fuzzing engine. A Fuzzer fixes one contract under
// test, deploys its instrumented form onto an embedded chain, and drives randomized call trials against it,
// checking a declared invariant or property test after every call and shrinking any falsifying sequence before
// reporting it.
package fuzzing

import (
	"context"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/crytic/siren/chain"
	"github.com/crytic/siren/clarity"
	"github.com/crytic/siren/clarity/ast"
	"github.com/crytic/siren/fuzzing/config"
	"github.com/crytic/siren/fuzzing/contracts"
	"github.com/crytic/siren/fuzzing/regressions"
	"github.com/crytic/siren/fuzzing/traits"
	"github.com/crytic/siren/fuzzing/valuegeneration"
	"github.com/crytic/siren/logging"
	"github.com/crytic/siren/logging/colors"
	"github.com/crytic/siren/project"
	"github.com/crytic/siren/utils"
)

// FuzzerState is the loop's current phase.
type FuzzerState string

const (
	StateIdle           FuzzerState = "Idle"
	StateSelectingTrial FuzzerState = "SelectingTrial"
	StateExecutingSUT   FuzzerState = "ExecutingSUT"
	StateExecutingCheck FuzzerState = "ExecutingCheck"
	StateReporting      FuzzerState = "Reporting"
	StateTerminal       FuzzerState = "Terminal"
)

// Check naming conventions in paired test sources.
const (
	// InvariantPrefix marks read-only invariant functions.
	InvariantPrefix = "invariant-"
	// PropertyTestPrefix marks self-contained property test functions.
	PropertyTestPrefix = "test-"
	// ledgerFunction is the instrumented contract's ledger-mutating entry point.
	ledgerFunction = "update-context"
)

// Fuzzer is the top-level object of one fuzzing session over one contract under test.
type Fuzzer struct {
	config config.ProjectConfig
	logger *logging.Logger

	// contract is the contract under test; extraContracts deploy un-instrumented before it (trait
	// implementations, dependencies).
	contract       *contracts.Contract
	extraContracts []*contracts.Contract

	// newChain builds a fresh chain for a session or a shrink replay. Tests may replace it.
	newChain func(accounts int) (chain.Chain, error)

	// seed is the session seed, resolved at construction for reporting and replay.
	seed int64

	// Hooks is the pre/post call hook registry.
	Hooks CallHooks

	// Events exposes the fuzzer's emitters.
	Events FuzzerEvents

	// reporter receives falsifications; store persists them when configured.
	reporter Reporter
	store    *regressions.Store

	state          FuzzerState
	testCases      []*checkTestCase
	falsification  *Falsification
	trialsExecuted int

	// session is the live run's state, retained after Start for inspection.
	session *session

	ctx    context.Context
	cancel context.CancelFunc
}

// NewFuzzer creates a fuzzer from a validated project configuration, loading the target contract and its
// neighbors from the configured contracts directory.
func NewFuzzer(projectConfig config.ProjectConfig) (*Fuzzer, error) {
	discovered, err := contracts.DiscoverContracts(projectConfig.Fuzzing.ContractsDirectory)
	if err != nil {
		return nil, err
	}
	var target *contracts.Contract
	extras := make([]*contracts.Contract, 0, len(discovered))
	for _, candidate := range discovered {
		if candidate.Name == projectConfig.Fuzzing.TargetContract {
			target = candidate
		} else {
			extras = append(extras, candidate)
		}
	}
	if target == nil {
		return nil, errors.Errorf("target contract '%s' not found under '%s'", projectConfig.Fuzzing.TargetContract, projectConfig.Fuzzing.ContractsDirectory)
	}
	return NewFuzzerWithContract(projectConfig, target, extras...)
}

// NewFuzzerWithContract creates a fuzzer over an in-memory contract under test. Extra contracts deploy before the
// target, un-instrumented.
func NewFuzzerWithContract(projectConfig config.ProjectConfig, contract *contracts.Contract, extras ...*contracts.Contract) (*Fuzzer, error) {
	if err := projectConfig.Validate(); err != nil {
		return nil, err
	}

	seed := projectConfig.Fuzzing.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	logger := logging.GlobalLogger.NewSubLogger("module", "fuzzer")
	fuzzer := &Fuzzer{
		config:         projectConfig,
		logger:         logger,
		contract:       contract,
		extraContracts: extras,
		newChain: func(accounts int) (chain.Chain, error) {
			return chain.NewTestChain(accounts), nil
		},
		seed:     seed,
		reporter: NewConsoleReporter(logger),
		state:    StateIdle,
	}
	fuzzer.ctx, fuzzer.cancel = context.WithCancel(context.Background())

	if path := projectConfig.Fuzzing.RegressionsPath; path != "" {
		store, err := regressions.OpenStore(path, projectConfig.Fuzzing.RegressionLimit)
		if err != nil {
			// Persistence failures degrade the session, never abort it.
			logger.Warn("continuing without regression persistence", err)
		} else {
			fuzzer.store = store
		}
	}
	return fuzzer, nil
}

// SetReporter replaces the console reporter.
func (f *Fuzzer) SetReporter(reporter Reporter) {
	f.reporter = reporter
}

// Seed returns the session seed.
func (f *Fuzzer) Seed() int64 {
	return f.seed
}

// State returns the loop's current phase.
func (f *Fuzzer) State() FuzzerState {
	return f.state
}

// TrialsExecuted returns how many trials have completed.
func (f *Fuzzer) TrialsExecuted() int {
	return f.trialsExecuted
}

// Falsification returns the session's falsification record, nil while no check has fallen.
func (f *Fuzzer) Falsification() *Falsification {
	return f.falsification
}

// TestCases returns the session's tracked checks.
func (f *Fuzzer) TestCases() []TestCase {
	cases := make([]TestCase, len(f.testCases))
	for i, testCase := range f.testCases {
		cases[i] = testCase
	}
	return cases
}

// Stop cancels the session after the current trial completes.
func (f *Fuzzer) Stop() {
	f.cancel()
}

// Chain returns the session's chain, nil before Start.
func (f *Fuzzer) Chain() chain.Chain {
	if f.session == nil {
		return nil
	}
	return f.session.vm
}

// TargetContractID returns the deployed identity of the contract under test, empty before Start.
func (f *Fuzzer) TargetContractID() chain.ContractID {
	if f.session == nil {
		return ""
	}
	return f.session.targetID
}

// LedgerCount returns the off-chain call count recorded for a function of the contract under test.
func (f *Fuzzer) LedgerCount(function string) uint64 {
	if f.session == nil {
		return 0
	}
	return f.session.ledger.Count(f.session.targetID, function)
}

// session holds the per-run state: the chain, the ledger, the eligibility pools and the random streams. Shrink
// replays build fresh sessions from the same inputs.
type session struct {
	vm       chain.Chain
	ledger   *CallContext
	accounts []string
	targetID chain.ContractID

	// sutPool and checkPool are the eligible state-changing functions and checks.
	sutPool   []clarity.FunctionSignature
	checkPool []clarity.FunctionSignature

	// seed drove this session's random streams; replayed sessions carry their record's seed here.
	seed      int64
	random    *rand.Rand
	generator *valuegeneration.RandomValueGenerator

	// maxBlockAdvance caps each trial's block-advance draw so total height growth stays within budget.
	maxBlockAdvance uint64
}

// Start runs the fuzzing session: setup, the trial loop, shrinking and reporting on falsification. The returned
// error covers fatal conditions only; a falsification is a normal outcome exposed through Falsification and the
// test cases.
func (f *Fuzzer) Start() error {
	defer func() {
		f.state = StateTerminal
		if f.store != nil {
			_ = f.store.Close()
		}
	}()

	s, err := f.setupSession(f.seed)
	if err != nil {
		f.Events.FuzzerStopping.Publish(FuzzerStoppingEvent{Fuzzer: f, Err: err})
		return err
	}
	f.session = s

	// One test case per eligible check.
	f.testCases = utils.SliceSelect(s.checkPool, func(check clarity.FunctionSignature) *checkTestCase {
		return &checkTestCase{status: TestCaseStatusRunning, contract: s.targetID, checkName: check.Name}
	})

	f.logger.Info("fuzzing ", colors.Bold, string(s.targetID), colors.Reset,
		" in ", f.config.Fuzzing.Mode, " mode, seed ", f.seed,
		", ", len(s.sutPool), " function(s), ", len(s.checkPool), " check(s)")
	f.Events.FuzzerStarting.Publish(FuzzerStartingEvent{Fuzzer: f})

	// Stored failures replay first, each under its recorded seed, so a known regression resurfaces before
	// fresh trials spend the budget.
	replayed, err := f.replayRegressions(s.targetID)
	if err != nil {
		f.Events.FuzzerStopping.Publish(FuzzerStoppingEvent{Fuzzer: f, Err: err})
		return err
	}
	if replayed != nil {
		f.state = StateReporting
		f.recordFalsification(replayed)
	}

	steps := make([]TrialStep, 0, f.config.Fuzzing.Runs)
	for trial := 1; replayed == nil && trial <= f.config.Fuzzing.Runs; trial++ {
		if f.ctx.Err() != nil {
			break
		}

		falsification, step, err := f.executeTrial(s, steps)
		if err != nil {
			f.Events.FuzzerStopping.Publish(FuzzerStoppingEvent{Fuzzer: f, Err: err})
			return err
		}
		steps = append(steps, step)
		f.trialsExecuted++
		f.Events.TrialExecuted.Publish(TrialExecutedEvent{Fuzzer: f, Trial: trial})

		if falsification != nil {
			f.state = StateReporting
			if !f.config.Fuzzing.BailOnFailure {
				f.shrinkFalsification(falsification)
			}
			f.recordFalsification(falsification)
			break
		}
	}

	// Checks that never fell pass.
	for _, testCase := range f.testCases {
		if testCase.status == TestCaseStatusRunning {
			testCase.status = TestCaseStatusPassed
		}
	}
	f.Events.FuzzerStopping.Publish(FuzzerStoppingEvent{Fuzzer: f})
	return nil
}

// setupSession deploys everything and builds the eligibility pools for a session driven by the given seed. All
// setup failures are fatal and non-retryable.
func (f *Fuzzer) setupSession(seed int64) (*session, error) {
	vm, err := f.newChain(f.config.Fuzzing.Accounts)
	if err != nil {
		return nil, errors.Wrap(err, "could not initialize the chain")
	}
	accounts := vm.ListAccounts()
	deployer := accounts[0]

	// A configured deployment plan publishes requirement contracts first, in epoch order.
	if planPath := f.config.Fuzzing.DeploymentPlanPath; planPath != "" {
		plan, planErr := project.LoadDeploymentPlan(planPath)
		if planErr != nil {
			return nil, planErr
		}
		if err = plan.Apply(vm, filepath.Dir(planPath)); err != nil {
			return nil, err
		}
	}

	// Neighbor contracts deploy first so trait implementations exist before the index is built.
	for _, extra := range f.extraContracts {
		extraID := chain.NewContractID(deployer, extra.Name)
		if err = vm.DeployContract(extraID, extra.Source, 2, deployer); err != nil {
			return nil, errors.Wrapf(err, "could not deploy contract '%s'", extra.Name)
		}
	}

	// The instrumented contract replaces the target at its original ID, so other contracts' references stay
	// valid.
	targetID := chain.NewContractID(deployer, f.contract.Name)
	instrumented := contracts.Instrument(f.contract.Source, f.contract.TestSource)
	if err = vm.DeployContract(targetID, instrumented, 2, deployer); err != nil {
		return nil, errors.Wrapf(err, "could not deploy the instrumented contract; its test source '%s%s' is the likely cause", f.contract.Name, contracts.TestSourceSuffix)
	}

	// The ledger keys are exactly the target's non-private function names, zero-initialized on both sides
	// before any trial runs.
	ledger := NewCallContext()
	sutNames, err := sutFunctionNames(f.contract.Source)
	if err != nil {
		return nil, err
	}
	for _, name := range sutNames {
		ledger.Register(targetID, name)
		result, callErr := vm.CallPublicFunction(targetID, ledgerFunction,
			[]clarity.Value{&clarity.StringAsciiValue{Data: name}, clarity.NewUintValue(0)}, deployer)
		if callErr != nil || result.Failed() {
			return nil, errors.Errorf("could not initialize the on-chain ledger for '%s'", name)
		}
	}

	index, err := traits.BuildImplementationIndex(vm)
	if err != nil {
		return nil, err
	}
	enriched, err := traits.EnrichContractInterface(vm, targetID)
	if err != nil {
		return nil, err
	}

	s := &session{
		vm:              vm,
		ledger:          ledger,
		accounts:        accounts,
		targetID:        targetID,
		seed:            seed,
		random:          rand.New(rand.NewSource(seed)),
		maxBlockAdvance: (f.config.Fuzzing.BlockHeightBudget + uint64(f.config.Fuzzing.Runs) - 1) / uint64(f.config.Fuzzing.Runs),
	}
	s.generator = valuegeneration.NewRandomValueGenerator(s.random, accounts, vm.DeployedContracts(), index)

	if err = f.buildPools(s, enriched, sutNames, index); err != nil {
		return nil, err
	}
	return s, nil
}

// buildPools splits the enriched interface into the state-changing pool and the check pool, excluding functions
// that reference traits with no deployed implementers.
func (f *Fuzzer) buildPools(s *session, enriched []clarity.FunctionSignature, sutNames []string, index *traits.ImplementationIndex) error {
	isSutFunction := func(name string) bool {
		return utils.SliceContains(sutNames, func(sutName string) bool { return sutName == name })
	}

	for _, signature := range enriched {
		orphan := orphanedTrait(signature, index)
		if orphan != nil {
			f.logger.Warn("excluding ", signature.Name, ": no deployed contract implements trait '", orphan.Name, "'")
			continue
		}

		switch {
		case strings.HasPrefix(signature.Name, InvariantPrefix):
			if f.config.Fuzzing.Mode == config.ModeInvariant && signature.Access == clarity.FunctionAccessReadOnly {
				s.checkPool = append(s.checkPool, signature)
			}
		case strings.HasPrefix(signature.Name, PropertyTestPrefix):
			if f.config.Fuzzing.Mode == config.ModeTest && signature.Access != clarity.FunctionAccessPrivate {
				s.checkPool = append(s.checkPool, signature)
			}
		case signature.Access == clarity.FunctionAccessPublic && signature.Name != ledgerFunction && isSutFunction(signature.Name):
			s.sutPool = append(s.sutPool, signature)
		}
	}

	if len(s.sutPool) == 0 {
		return errors.Errorf("contract '%s' has no eligible public functions to fuzz", s.targetID)
	}
	if len(s.checkPool) == 0 {
		return errors.Errorf("contract '%s' declares no eligible checks for %s mode", s.targetID, f.config.Fuzzing.Mode)
	}
	return nil
}

// orphanedTrait returns a trait referenced anywhere in the signature's parameters that no deployed contract
// implements, or nil when every referenced trait has implementers.
func orphanedTrait(signature clarity.FunctionSignature, index *traits.ImplementationIndex) *clarity.TraitDescriptor {
	var walk func(parameterType clarity.ParameterType) *clarity.TraitDescriptor
	walk = func(parameterType clarity.ParameterType) *clarity.TraitDescriptor {
		switch typed := parameterType.(type) {
		case *clarity.TraitReferenceType:
			if typed.Trait == nil || len(index.GetContractIDsImplementingTrait(typed.Trait)) == 0 {
				return typed.Trait
			}
		case *clarity.ListType:
			return walk(typed.Element)
		case *clarity.OptionalType:
			return walk(typed.Inner)
		case *clarity.ResponseType:
			if orphan := walk(typed.Ok); orphan != nil {
				return orphan
			}
			return walk(typed.Error)
		case *clarity.TupleType:
			for _, field := range typed.Fields {
				if orphan := walk(field.Type); orphan != nil {
					return orphan
				}
			}
		}
		return nil
	}

	for _, arg := range signature.Args {
		if orphan := walk(arg.Type); orphan != nil {
			return orphan
		}
	}
	return nil
}

// sutFunctionNames returns the non-private function names of the contract under test, in definition order.
func sutFunctionNames(source string) ([]string, error) {
	program, err := ast.Parse(source)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse the contract under test")
	}
	names := make([]string, 0)
	for _, definition := range ast.TopLevelForms(program, "define-public", "define-read-only") {
		if len(definition.Items) < 2 {
			continue
		}
		header, ok := definition.Items[1].(*ast.List)
		if !ok || len(header.Items) == 0 {
			continue
		}
		names = append(names, ast.AtomToken(header.Items[0]))
	}
	return names, nil
}

// replayRegressions re-runs every stored failure of the contract under test as a deterministic session driven by
// the record's seed. It returns the first falsification that still reproduces, shrunk, or nil when no store is
// configured, the store is unreadable, or every stored failure has since been fixed. A reproduced falsification
// leaves its session installed for inspection.
func (f *Fuzzer) replayRegressions(targetID chain.ContractID) (*Falsification, error) {
	if f.store == nil {
		return nil, nil
	}
	records, err := f.store.List(string(targetID), f.config.Fuzzing.Mode)
	if err != nil {
		// An unreadable store degrades the session to fresh fuzzing only.
		f.logger.Warn("continuing without regression replay", err)
		return nil, nil
	}

	replayedSeeds := make(map[int64]struct{})
	for _, record := range records {
		if f.ctx.Err() != nil {
			break
		}
		// Records found under the same seed replay as one session.
		if _, done := replayedSeeds[record.Seed]; done {
			continue
		}
		replayedSeeds[record.Seed] = struct{}{}

		f.logger.Info("replaying stored failure of ", colors.Bold, record.CheckName, colors.Reset, " under seed ", record.Seed)
		s, err := f.setupSession(record.Seed)
		if err != nil {
			return nil, err
		}

		steps := make([]TrialStep, 0, f.config.Fuzzing.Runs)
		for trial := 1; trial <= f.config.Fuzzing.Runs; trial++ {
			falsification, step, err := f.executeTrial(s, steps)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step)
			f.trialsExecuted++

			if falsification != nil {
				f.session = s
				if !f.config.Fuzzing.BailOnFailure {
					f.shrinkFalsification(falsification)
				}
				return falsification, nil
			}
		}
		f.trialsExecuted = 0
		f.logger.Info("stored failure of ", record.CheckName, " no longer reproduces under seed ", record.Seed)
	}
	return nil, nil
}

// recordFalsification reports a falsification, persists it, and fails its test case.
func (f *Fuzzer) recordFalsification(falsification *Falsification) {
	f.falsification = falsification
	f.reporter.ReportFalsification(falsification)

	for _, testCase := range f.testCases {
		if testCase.checkName == falsification.CheckName {
			testCase.status = TestCaseStatusFailed
			testCase.falsification = falsification
		}
	}

	if f.store != nil {
		record := &regressions.Record{
			ContractID: string(falsification.ContractID),
			Mode:       falsification.Mode,
			CheckName:  falsification.CheckName,
			Seed:       falsification.Seed,
			Sequence: utils.SliceSelect(falsification.Sequence, func(step TrialStep) regressions.RecordedCall {
				return regressions.RecordedCall{
					Function:     step.Function,
					Caller:       step.Caller,
					Arguments:    utils.SliceSelect(step.Args, func(v clarity.Value) string { return v.String() }),
					BlockAdvance: step.BlockAdvance,
				}
			}),
		}
		if err := f.store.Save(record); err != nil {
			f.logger.Warn("could not persist the falsification", err)
		}
	}
}
