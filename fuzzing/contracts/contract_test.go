package contracts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/crytic/siren/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sutSource = `(define-data-var total uint u0)

(define-public (add (amount uint))
  (ok (var-set total (+ (var-get total) amount))))`

const pairedSource = `(define-read-only (invariant-total-bounded)
  (<= (var-get total) u1000000))`

// writeContractPair writes a contract and its paired test source into a directory.
func writeContractPair(t *testing.T, directory string, name string) string {
	sourcePath := filepath.Join(directory, name+".clar")
	require.NoError(t, os.WriteFile(sourcePath, []byte(sutSource), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(directory, name+TestSourceSuffix), []byte(pairedSource), 0644))
	return sourcePath
}

// TestLoadContractReadsPair checks loading resolves the paired test source beside the contract.
func TestLoadContractReadsPair(t *testing.T) {
	directory := t.TempDir()
	sourcePath := writeContractPair(t, directory, "counter")

	contract, err := LoadContract(sourcePath)
	require.NoError(t, err)
	assert.Equal(t, "counter", contract.Name)
	assert.Equal(t, sutSource, contract.Source)
	assert.Equal(t, pairedSource, contract.TestSource)
}

// TestLoadContractRejectsTestSource checks a test contract source cannot itself be loaded as a target.
func TestLoadContractRejectsTestSource(t *testing.T) {
	directory := t.TempDir()
	writeContractPair(t, directory, "counter")

	_, err := LoadContract(filepath.Join(directory, "counter"+TestSourceSuffix))
	require.Error(t, err)
}

// TestLoadContractRequiresPair checks a contract without a paired test source fails to load.
func TestLoadContractRequiresPair(t *testing.T) {
	directory := t.TempDir()
	sourcePath := filepath.Join(directory, "orphan.clar")
	require.NoError(t, os.WriteFile(sourcePath, []byte(sutSource), 0644))

	_, err := LoadContract(sourcePath)
	require.Error(t, err)
}

// TestDiscoverContractsSkipsUnpaired checks discovery returns only contracts with paired test sources.
func TestDiscoverContractsSkipsUnpaired(t *testing.T) {
	directory := t.TempDir()
	writeContractPair(t, directory, "counter")
	require.NoError(t, os.WriteFile(filepath.Join(directory, "orphan.clar"), []byte(sutSource), 0644))

	discovered, err := DiscoverContracts(directory)
	require.NoError(t, err)
	require.Len(t, discovered, 1)
	assert.Equal(t, "counter", discovered[0].Name)
}

// TestInstrumentConcatenatesDeterministically checks the instrumented source layout and its byte determinism.
func TestInstrumentConcatenatesDeterministically(t *testing.T) {
	instrumented := Instrument(sutSource, pairedSource)

	assert.Equal(t, sutSource+"\n\n"+LedgerDefinition+"\n\n"+pairedSource, instrumented)
	assert.Equal(t, instrumented, Instrument(sutSource, pairedSource))
}

// TestInstrumentedSourceDeploys checks the welded source parses and deploys, exposing the contract's functions,
// the ledger, and the paired tests at one contract ID.
func TestInstrumentedSourceDeploys(t *testing.T) {
	testChain := chain.NewTestChain(1)
	deployer := testChain.ListAccounts()[0]
	contractID := chain.NewContractID(deployer, "counter")
	require.NoError(t, testChain.DeployContract(contractID, Instrument(sutSource, pairedSource), 2, deployer))

	signatures, err := testChain.GetContractInterface(contractID)
	require.NoError(t, err)

	names := make([]string, len(signatures))
	for i, signature := range signatures {
		names[i] = signature.Name
	}
	assert.Contains(t, names, "add")
	assert.Contains(t, names, "update-context")
	assert.Contains(t, names, "invariant-total-bounded")
}
