package fuzzing

import (
	"github.com/crytic/siren/chain"
	"github.com/crytic/siren/clarity"
)

// CallHookContext is the record handed to call hooks around each state-changing call.
type CallHookContext struct {
	// Contract and Function identify the call.
	Contract chain.ContractID
	Function string

	// Caller is the simulated sender.
	Caller string

	// Args are the materialized call arguments.
	Args []clarity.Value

	// Result and Err hold the call outcome; both are nil in pre-call hooks.
	Result *chain.CallResult
	Err    error
}

// CallHook observes one state-changing call.
type CallHook func(*CallHookContext)

// CallHooks is the registry of pre- and post-call hooks the loop invokes around every state-changing call. The
// registry contents are owned by external integrations; the loop only defines the invocation points.
type CallHooks struct {
	pre  []CallHook
	post []CallHook
}

// RegisterPreCall adds a hook invoked before each state-changing call executes.
func (h *CallHooks) RegisterPreCall(hook CallHook) {
	h.pre = append(h.pre, hook)
}

// RegisterPostCall adds a hook invoked after each state-changing call returns, with the result attached.
func (h *CallHooks) RegisterPostCall(hook CallHook) {
	h.post = append(h.post, hook)
}

func (h *CallHooks) invokePre(ctx *CallHookContext) {
	for _, hook := range h.pre {
		hook(ctx)
	}
}

func (h *CallHooks) invokePost(ctx *CallHookContext) {
	for _, hook := range h.post {
		hook(ctx)
	}
}
