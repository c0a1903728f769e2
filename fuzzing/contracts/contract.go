// Package contracts tracks the contracts under test: their sources on disk, the paired test contracts that carry
// their invariants and property tests, and the instrumentation that welds the two together for fuzzing.
package contracts

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// TestSourceSuffix is the filename suffix marking a contract's paired test source: the tests for
// "counter.clar" live in "counter.tests.clar" beside it.
const TestSourceSuffix = ".tests.clar"

// contractSourceExtension is the filename extension of contract sources.
const contractSourceExtension = ".clar"

// Contract describes one contract under test: its project name, its source, and the paired test source holding its
// invariants and property tests.
type Contract struct {
	// Name is the contract's name within the project, also used as its deployed contract name.
	Name string

	// SourcePath is the path the contract source was read from, empty for in-memory contracts.
	SourcePath string

	// Source is the contract's code.
	Source string

	// TestSource is the paired test contract's code. Fuzzing requires it; it holds every invariant and property
	// test for the contract.
	TestSource string
}

// NewContract creates a contract descriptor from in-memory sources.
func NewContract(name string, source string, testSource string) *Contract {
	return &Contract{Name: name, Source: source, TestSource: testSource}
}

// LoadContract reads a contract source and its paired test source from disk. The contract's name derives from the
// source filename; the paired source must exist beside it.
func LoadContract(sourcePath string) (*Contract, error) {
	if strings.HasSuffix(sourcePath, TestSourceSuffix) {
		return nil, errors.Errorf("'%s' is a test contract source, not a contract under test", sourcePath)
	}
	source, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, errors.Wrap(err, "could not read contract source")
	}

	testPath := strings.TrimSuffix(sourcePath, contractSourceExtension) + TestSourceSuffix
	testSource, err := os.ReadFile(testPath)
	if err != nil {
		return nil, errors.Wrapf(err, "contract '%s' has no readable test contract at '%s'", sourcePath, testPath)
	}

	name := strings.TrimSuffix(filepath.Base(sourcePath), contractSourceExtension)
	return &Contract{
		Name:       name,
		SourcePath: sourcePath,
		Source:     string(source),
		TestSource: string(testSource),
	}, nil
}

// DiscoverContracts loads every contract under a directory that has a paired test source, skipping the test
// sources themselves and contracts without a pair.
func DiscoverContracts(directory string) ([]*Contract, error) {
	contracts := make([]*Contract, 0)
	err := filepath.WalkDir(directory, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.HasSuffix(path, contractSourceExtension) || strings.HasSuffix(path, TestSourceSuffix) {
			return nil
		}
		testPath := strings.TrimSuffix(path, contractSourceExtension) + TestSourceSuffix
		if _, statErr := os.Stat(testPath); statErr != nil {
			// A contract without a paired test source is not a fuzzing target.
			return nil
		}
		contract, loadErr := LoadContract(path)
		if loadErr != nil {
			return loadErr
		}
		contracts = append(contracts, contract)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not discover contracts")
	}
	return contracts, nil
}
