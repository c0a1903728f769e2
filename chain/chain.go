// Package chain defines the narrow surface through which the fuzzer drives a Clarity virtual machine, along with an
// embedded in-memory implementation used for local fuzzing sessions and tests. The fuzzer owns the chain exclusively
// for the duration of a run; all access is synchronous and strictly ordered.
package chain

import (
	"fmt"
	"strings"

	"github.com/crytic/siren/clarity"
	"github.com/crytic/siren/clarity/ast"
)

// ContractID uniquely identifies a deployed contract as "ISSUER.contract-name".
type ContractID string

// NewContractID constructs a ContractID from an issuing principal and a contract name.
func NewContractID(issuer string, name string) ContractID {
	return ContractID(issuer + "." + name)
}

// Issuer returns the issuing principal portion of the contract identifier.
func (c ContractID) Issuer() string {
	if i := strings.IndexByte(string(c), '.'); i >= 0 {
		return string(c)[:i]
	}
	return string(c)
}

// Name returns the contract name portion of the contract identifier.
func (c ContractID) Name() string {
	if i := strings.IndexByte(string(c), '.'); i >= 0 {
		return string(c)[i+1:]
	}
	return string(c)
}

// CallResult describes the outcome of a single contract call which the VM itself accepted and executed. A public
// function's result value is always a response; a response with Ok=false indicates the call failed and its state
// changes were rolled back.
type CallResult struct {
	// Value describes the value the called function returned.
	Value clarity.Value
}

// Failed returns whether the call returned an err-tagged response, meaning the VM rolled its effects back.
func (r *CallResult) Failed() bool {
	if response, ok := r.Value.(*clarity.ResponseValue); ok {
		return !response.Ok
	}
	return false
}

// ExecutionError describes a runtime fault raised by the VM while executing a call: an arithmetic overflow, a failed
// assertion, an unwrap of none, an ill-typed argument. It is distinct from an err-tagged response result.
type ExecutionError struct {
	// Contract describes the contract in which the fault was raised.
	Contract ContractID

	// Function describes the function being executed.
	Function string

	// Reason describes the fault itself.
	Reason string
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error in %s.%s: %s", e.Contract, e.Function, e.Reason)
}

// Chain describes the VM operations the fuzzer consumes. Implementations must execute each call to completion before
// returning; the fuzzer never issues overlapping calls.
type Chain interface {
	// DeployContract compiles and deploys a contract under the provided identifier from the given sender.
	DeployContract(id ContractID, source string, clarityVersion int, sender string) error

	// CallPublicFunction executes a state-changing call from the given caller. It returns the call result, or an
	// ExecutionError if the VM raised a runtime fault.
	CallPublicFunction(contract ContractID, function string, args []clarity.Value, caller string) (*CallResult, error)

	// CallReadOnlyFunction executes a read-only call from the given caller. State changes are not persisted.
	CallReadOnlyFunction(contract ContractID, function string, args []clarity.Value, caller string) (*CallResult, error)

	// AdvanceBlocks advances the chain tip by the provided number of blocks, returning the new height.
	AdvanceBlocks(count int) uint64

	// BlockHeight returns the current chain tip height.
	BlockHeight() uint64

	// GetContractInterface returns the compiled function signatures of a deployed contract.
	GetContractInterface(id ContractID) ([]clarity.FunctionSignature, error)

	// GetContractSyntaxTree returns the parsed top-level forms of a deployed contract's source.
	GetContractSyntaxTree(id ContractID) ([]ast.Node, error)

	// ListAccounts returns the funded account principals available as callers.
	ListAccounts() []string

	// DeployedContracts returns the identifiers of every deployed contract, in deployment order.
	DeployedContracts() []ContractID
}
