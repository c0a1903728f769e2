package project

import (
	"os"
	"path/filepath"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/crytic/siren/chain"
)

// microStxPerStx converts between uSTX, the plan's balance unit, and whole STX.
var microStxPerStx = decimal.New(1, 6)

// MicroSTX is a uSTX amount kept as a decimal so plans carrying amounts beyond float precision round-trip exactly.
// Plans serialize it as a scalar, quoted or not.
type MicroSTX struct {
	decimal.Decimal
}

func (m *MicroSTX) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errors.Errorf("cannot parse a uSTX amount from a %v node", node.Kind)
	}
	parsed, err := decimal.NewFromString(node.Value)
	if err != nil {
		return errors.Wrapf(err, "cannot parse '%s' as a uSTX amount", node.Value)
	}
	m.Decimal = parsed
	return nil
}

func (m MicroSTX) MarshalYAML() (any, error) {
	return m.String(), nil
}

// GenesisWallet funds one account at genesis.
type GenesisWallet struct {
	Name    string   `yaml:"name"`
	Address string   `yaml:"address"`
	Balance MicroSTX `yaml:"balance"`
}

// STX returns the wallet balance in whole STX.
func (w GenesisWallet) STX() decimal.Decimal {
	return w.Balance.Div(microStxPerStx)
}

// ContractPublish is one contract deployment transaction.
type ContractPublish struct {
	ContractName   string `yaml:"contract-name"`
	ExpectedSender string `yaml:"expected-sender"`
	Path           string `yaml:"path"`
	ClarityVersion int    `yaml:"clarity-version"`
}

// Transaction wraps the supported transaction kinds. Only contract publishes are modeled.
type Transaction struct {
	ContractPublish *ContractPublish `yaml:"contract-publish,omitempty"`
}

// Batch is one epoch's worth of transactions, applied in order.
type Batch struct {
	ID           int           `yaml:"id"`
	Epoch        string        `yaml:"epoch,omitempty"`
	Transactions []Transaction `yaml:"transactions"`
}

// DeploymentPlan is a parsed deployment plan: genesis wallets plus epoch-ordered batches of contract publishes.
type DeploymentPlan struct {
	ID      int    `yaml:"id"`
	Name    string `yaml:"name"`
	Network string `yaml:"network"`
	Genesis struct {
		Wallets []GenesisWallet `yaml:"wallets"`
	} `yaml:"genesis"`
	Plan struct {
		Batches []Batch `yaml:"batches"`
	} `yaml:"plan"`
}

// LoadDeploymentPlan reads and parses a deployment plan file.
func LoadDeploymentPlan(path string) (*DeploymentPlan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read the deployment plan at '%s'", path)
	}
	plan := &DeploymentPlan{}
	if err = yaml.Unmarshal(raw, plan); err != nil {
		return nil, errors.Wrapf(err, "could not parse the deployment plan at '%s'", path)
	}
	if err = plan.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid deployment plan at '%s'", path)
	}
	return plan, nil
}

// GeneratePlan derives a simnet deployment plan from a manifest: one batch per distinct epoch, earliest first,
// every contract published by the given sender.
func GeneratePlan(manifest *Manifest, sender string) *DeploymentPlan {
	plan := &DeploymentPlan{Name: manifest.Project.Name + " simnet deployment", Network: "simnet"}

	var current *Batch
	for _, contract := range manifest.OrderedContracts() {
		if current == nil || current.Epoch != contract.Entry.Epoch {
			plan.Plan.Batches = append(plan.Plan.Batches, Batch{ID: len(plan.Plan.Batches), Epoch: contract.Entry.Epoch})
			current = &plan.Plan.Batches[len(plan.Plan.Batches)-1]
		}
		current.Transactions = append(current.Transactions, Transaction{ContractPublish: &ContractPublish{
			ContractName:   contract.Name,
			ExpectedSender: sender,
			Path:           contract.Entry.Path,
			ClarityVersion: contract.Entry.ClarityVersion,
		}})
	}
	return plan
}

// Validate checks wallet balances are non-negative uSTX amounts, batches stay in epoch order, and every
// transaction names its contract and source path.
func (p *DeploymentPlan) Validate() error {
	for _, wallet := range p.Genesis.Wallets {
		if wallet.Balance.IsNegative() {
			return errors.Errorf("wallet '%s' has a negative balance", wallet.Name)
		}
	}

	previousEpoch := ""
	for _, batch := range p.Plan.Batches {
		if batch.Epoch != "" {
			if _, err := semver.NewVersion(batch.Epoch); err != nil {
				return errors.Wrapf(err, "batch %d has an invalid epoch '%s'", batch.ID, batch.Epoch)
			}
			if previousEpoch != "" && compareEpochs(batch.Epoch, previousEpoch) < 0 {
				return errors.Errorf("batch %d regresses from epoch %s to %s", batch.ID, previousEpoch, batch.Epoch)
			}
			previousEpoch = batch.Epoch
		}
		for _, transaction := range batch.Transactions {
			publish := transaction.ContractPublish
			if publish == nil {
				return errors.Errorf("batch %d contains an unsupported transaction kind", batch.ID)
			}
			if publish.ContractName == "" || publish.Path == "" {
				return errors.Errorf("batch %d contains a contract publish without a name or path", batch.ID)
			}
		}
	}
	return nil
}

// TotalGenesisBalance returns the sum of all genesis wallet balances, in uSTX.
func (p *DeploymentPlan) TotalGenesisBalance() decimal.Decimal {
	total := decimal.Zero
	for _, wallet := range p.Genesis.Wallets {
		total = total.Add(wallet.Balance.Decimal)
	}
	return total
}

// Apply publishes every batch's contracts onto the chain in plan order, reading sources relative to rootDir.
// Each contract deploys under its expected sender's identity.
func (p *DeploymentPlan) Apply(vm chain.Chain, rootDir string) error {
	for _, batch := range p.Plan.Batches {
		for _, transaction := range batch.Transactions {
			publish := transaction.ContractPublish
			source, err := os.ReadFile(filepath.Join(rootDir, publish.Path))
			if err != nil {
				return errors.Wrapf(err, "could not read the source of contract '%s'", publish.ContractName)
			}
			contractID := chain.NewContractID(publish.ExpectedSender, publish.ContractName)
			if err = vm.DeployContract(contractID, string(source), publish.ClarityVersion, publish.ExpectedSender); err != nil {
				return errors.Wrapf(err, "could not deploy contract '%s' from batch %d", publish.ContractName, batch.ID)
			}
		}
	}
	return nil
}
