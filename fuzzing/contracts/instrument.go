package contracts

// LedgerDefinition is the call-count ledger appended between a contract under test and its paired test contract.
// The fuzzer mirrors every recorded call through update-context, so invariants can read per-function call counts
// from the context map while the fuzzer keeps an identical off-chain copy.
const LedgerDefinition = `(define-map context (string-ascii 100) {
    called: uint
    ;; other fields
  })

(define-public (update-context (function-name (string-ascii 100)) (called uint))
  (ok (map-set context function-name {called: called})))`

// Instrument welds a contract under test to its paired test contract with the ledger definition between them. The
// concatenation is purely textual and deterministic: the same inputs always produce the same instrumented source.
// Deploying the result at the contract's original ID gives invariants and property tests direct access to the
// contract's private functions and data.
func Instrument(source string, testSource string) string {
	return source + "\n\n" + LedgerDefinition + "\n\n" + testSource
}
