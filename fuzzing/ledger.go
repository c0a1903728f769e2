package fuzzing

import (
	"github.com/crytic/siren/chain"
)

// CallContext is the off-chain call-count ledger. The fuzzer keeps it numerically equal to the on-chain context
// map inside the instrumented contract: every successful state-changing call increments here first, then mirrors
// the new count on-chain through update-context.
type CallContext struct {
	counts map[chain.ContractID]map[string]uint64
}

// NewCallContext creates an empty ledger.
func NewCallContext() *CallContext {
	return &CallContext{counts: make(map[chain.ContractID]map[string]uint64)}
}

// Register adds a function to the ledger with a zero count.
func (c *CallContext) Register(contract chain.ContractID, function string) {
	if c.counts[contract] == nil {
		c.counts[contract] = make(map[string]uint64)
	}
	c.counts[contract][function] = 0
}

// Increment bumps a function's call count and returns the new value.
func (c *CallContext) Increment(contract chain.ContractID, function string) uint64 {
	if c.counts[contract] == nil {
		c.counts[contract] = make(map[string]uint64)
	}
	c.counts[contract][function]++
	return c.counts[contract][function]
}

// Count returns a function's current call count.
func (c *CallContext) Count(contract chain.ContractID, function string) uint64 {
	return c.counts[contract][function]
}
