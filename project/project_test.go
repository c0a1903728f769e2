package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/crytic/siren/chain"
)

const manifestSource = `
[project]
name = "counter-project"
description = "counter and friends"
authors = ["dev@example.org"]

[[project.requirements]]
contract_id = "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7.token-lib"

# Sections other tools write are tolerated.
[repl.analysis]
passes = ["check_checker"]

[contracts.counter]
path = "contracts/counter.clar"
clarity_version = 2
epoch = "2.4"

[contracts.registry]
path = "contracts/registry.clar"
clarity_version = 1
epoch = "2.1"

[contracts.vault]
path = "contracts/vault.clar"
clarity_version = 2
epoch = "2.4"
`

func writeManifest(t *testing.T, source string) string {
	path := filepath.Join(t.TempDir(), "Clarinet.toml")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

func TestLoadManifest(t *testing.T) {
	manifest, err := LoadManifest(writeManifest(t, manifestSource))
	require.NoError(t, err)
	assert.Equal(t, "counter-project", manifest.Project.Name)
	require.Len(t, manifest.Project.Requirements, 1)
	assert.Equal(t, "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7.token-lib", manifest.Project.Requirements[0].ContractID)
	require.Len(t, manifest.Contracts, 3)
	assert.Equal(t, "contracts/counter.clar", manifest.Contracts["counter"].Path)
	assert.Equal(t, 2, manifest.Contracts["counter"].ClarityVersion)
}

func TestOrderedContractsSortByEpochThenName(t *testing.T) {
	manifest, err := LoadManifest(writeManifest(t, manifestSource))
	require.NoError(t, err)

	ordered := manifest.OrderedContracts()
	names := make([]string, len(ordered))
	for i, contract := range ordered {
		names[i] = contract.Name
	}
	assert.Equal(t, []string{"registry", "counter", "vault"}, names)
}

func TestLoadManifestRejectsBadEntries(t *testing.T) {
	t.Run("bad epoch", func(t *testing.T) {
		_, err := LoadManifest(writeManifest(t, `
[contracts.counter]
path = "contracts/counter.clar"
epoch = "not-an-epoch"
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid epoch")
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := LoadManifest(writeManifest(t, `
[contracts.counter]
epoch = "2.4"
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no source path")
	})
}

func TestGeneratePlanGroupsBatchesByEpoch(t *testing.T) {
	manifest, err := LoadManifest(writeManifest(t, manifestSource))
	require.NoError(t, err)

	plan := GeneratePlan(manifest, "SP000000000000000000002Q6VF78")
	require.NoError(t, plan.Validate())
	require.Len(t, plan.Plan.Batches, 2)

	assert.Equal(t, "2.1", plan.Plan.Batches[0].Epoch)
	require.Len(t, plan.Plan.Batches[0].Transactions, 1)
	assert.Equal(t, "registry", plan.Plan.Batches[0].Transactions[0].ContractPublish.ContractName)

	assert.Equal(t, "2.4", plan.Plan.Batches[1].Epoch)
	require.Len(t, plan.Plan.Batches[1].Transactions, 2)
	assert.Equal(t, "counter", plan.Plan.Batches[1].Transactions[0].ContractPublish.ContractName)
	assert.Equal(t, "vault", plan.Plan.Batches[1].Transactions[1].ContractPublish.ContractName)
	for _, batch := range plan.Plan.Batches {
		for _, transaction := range batch.Transactions {
			assert.Equal(t, "SP000000000000000000002Q6VF78", transaction.ContractPublish.ExpectedSender)
		}
	}
}

// TestGeneratedPlanReloads checks a generated plan survives serialization to disk and loads back as an equal,
// valid plan.
func TestGeneratedPlanReloads(t *testing.T) {
	manifest, err := LoadManifest(writeManifest(t, manifestSource))
	require.NoError(t, err)
	plan := GeneratePlan(manifest, "SP000000000000000000002Q6VF78")

	encoded, err := yaml.Marshal(plan)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "default.simnet-plan.yaml")
	require.NoError(t, os.WriteFile(path, encoded, 0o644))

	reloaded, err := LoadDeploymentPlan(path)
	require.NoError(t, err)
	assert.Equal(t, plan, reloaded)
}

const planSource = `
id: 0
name: counter simnet deployment
network: simnet
genesis:
  wallets:
    - name: deployer
      address: SP000000000000000000002Q6VF78
      balance: "100000000000000"
    - name: wallet_1
      address: SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7
      balance: "10000000000000"
plan:
  batches:
    - id: 0
      epoch: "2.1"
      transactions:
        - contract-publish:
            contract-name: registry
            expected-sender: SP000000000000000000002Q6VF78
            path: contracts/registry.clar
            clarity-version: 1
    - id: 1
      epoch: "2.4"
      transactions:
        - contract-publish:
            contract-name: counter
            expected-sender: SP000000000000000000002Q6VF78
            path: contracts/counter.clar
            clarity-version: 2
`

func writePlan(t *testing.T, source string) string {
	path := filepath.Join(t.TempDir(), "default.simnet-plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

func TestLoadDeploymentPlan(t *testing.T) {
	plan, err := LoadDeploymentPlan(writePlan(t, planSource))
	require.NoError(t, err)

	require.Len(t, plan.Genesis.Wallets, 2)
	deployer := plan.Genesis.Wallets[0]
	assert.Equal(t, "100000000000000", deployer.Balance.String())
	assert.Equal(t, "100000000", deployer.STX().String())
	assert.Equal(t, "110000000000000", plan.TotalGenesisBalance().String())

	require.Len(t, plan.Plan.Batches, 2)
	assert.Equal(t, "registry", plan.Plan.Batches[0].Transactions[0].ContractPublish.ContractName)
}

func TestDeploymentPlanValidate(t *testing.T) {
	t.Run("epoch regression", func(t *testing.T) {
		plan, err := LoadDeploymentPlan(writePlan(t, planSource))
		require.NoError(t, err)
		plan.Plan.Batches[1].Epoch = "2.0"
		err = plan.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "regresses")
	})

	t.Run("negative balance", func(t *testing.T) {
		plan, err := LoadDeploymentPlan(writePlan(t, planSource))
		require.NoError(t, err)
		plan.Genesis.Wallets[0].Balance = MicroSTX{decimal.NewFromInt(-1)}
		require.Error(t, plan.Validate())
	})

	t.Run("unsupported transaction", func(t *testing.T) {
		plan, err := LoadDeploymentPlan(writePlan(t, planSource))
		require.NoError(t, err)
		plan.Plan.Batches[0].Transactions[0].ContractPublish = nil
		require.Error(t, plan.Validate())
	})
}

func TestApplyDeploysManifestContractsInEpochOrder(t *testing.T) {
	rootDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(rootDir, "contracts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, "contracts", "registry.clar"), []byte(`
(define-read-only (ping)
  true)
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, "contracts", "counter.clar"), []byte(`
(define-data-var count uint u0)

(define-public (bump)
  (ok (var-set count (+ (var-get count) u1))))
`), 0o644))

	manifest := &Manifest{Contracts: map[string]ContractEntry{
		"registry": {Path: "contracts/registry.clar", ClarityVersion: 1, Epoch: "2.1"},
		"counter":  {Path: "contracts/counter.clar", ClarityVersion: 2, Epoch: "2.4"},
	}}
	require.NoError(t, manifest.Validate())

	vm := chain.NewTestChain(2)
	sender := vm.ListAccounts()[0]
	plan := GeneratePlan(manifest, sender)
	require.NoError(t, plan.Apply(vm, rootDir))

	deployed := vm.DeployedContracts()
	assert.Contains(t, deployed, chain.NewContractID(sender, "registry"))
	assert.Contains(t, deployed, chain.NewContractID(sender, "counter"))

	result, err := vm.CallPublicFunction(chain.NewContractID(sender, "counter"), "bump", nil, sender)
	require.NoError(t, err)
	assert.False(t, result.Failed())

	t.Run("missing source fails", func(t *testing.T) {
		broken := GeneratePlan(&Manifest{Contracts: map[string]ContractEntry{
			"ghost": {Path: "contracts/ghost.clar"},
		}}, sender)
		require.Error(t, broken.Apply(chain.NewTestChain(1), rootDir))
	})
}

func TestGenesisWalletYamlRoundTrip(t *testing.T) {
	amount, err := decimal.NewFromString("123456789123456789")
	require.NoError(t, err)
	wallet := GenesisWallet{Name: "deployer", Address: "SP000000000000000000002Q6VF78", Balance: MicroSTX{amount}}
	assert.Equal(t, "123456789123.456789", wallet.STX().String())

	encoded, err := yaml.Marshal(wallet)
	require.NoError(t, err)
	decoded := GenesisWallet{}
	require.NoError(t, yaml.Unmarshal(encoded, &decoded))
	assert.True(t, decoded.Balance.Equal(wallet.Balance.Decimal))

	t.Run("rejects non-numeric balances", func(t *testing.T) {
		err := yaml.Unmarshal([]byte("balance: plenty"), &GenesisWallet{})
		require.Error(t, err)
	})
}
