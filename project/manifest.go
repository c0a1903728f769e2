// Package project reads Clarinet-style project manifests and deployment plans, and applies deployment plans to a
// chain. The manifest lists contract sources with their Clarity versions and activation epochs; a deployment plan
// groups contract publishes into epoch-ordered batches.
package project

import (
	"os"
	"sort"

	"github.com/Masterminds/semver"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// ProjectInfo is the manifest's [project] section.
type ProjectInfo struct {
	Name        string   `toml:"name"`
	Description string   `toml:"description,omitempty"`
	Authors     []string `toml:"authors,omitempty"`

	// Requirements are mainnet contracts the project depends on, referenced by fully qualified ID.
	Requirements []Requirement `toml:"requirements,omitempty"`
}

// Requirement references an externally deployed contract.
type Requirement struct {
	ContractID string `toml:"contract_id"`
}

// ContractEntry describes one contract in the manifest's [contracts.<name>] table.
type ContractEntry struct {
	Path string `toml:"path"`

	// ClarityVersion selects the language version the contract compiles under.
	ClarityVersion int `toml:"clarity_version"`

	// Epoch is the chain epoch the contract activates in, e.g. "2.4". Epochs order like versions.
	Epoch string `toml:"epoch"`
}

// Manifest is a parsed Clarinet.toml-style project manifest. Unknown sections are tolerated so manifests written
// for other tooling load unchanged.
type Manifest struct {
	Project   ProjectInfo              `toml:"project"`
	Contracts map[string]ContractEntry `toml:"contracts"`
}

// ManifestContract pairs a contract's manifest name with its entry.
type ManifestContract struct {
	Name  string
	Entry ContractEntry
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read the manifest at '%s'", path)
	}
	manifest := &Manifest{}
	if err = toml.Unmarshal(raw, manifest); err != nil {
		return nil, errors.Wrapf(err, "could not parse the manifest at '%s'", path)
	}
	if err = manifest.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid manifest at '%s'", path)
	}
	return manifest, nil
}

// Validate checks every contract entry carries a source path and a parseable epoch.
func (m *Manifest) Validate() error {
	for name, entry := range m.Contracts {
		if entry.Path == "" {
			return errors.Errorf("contract '%s' has no source path", name)
		}
		if entry.Epoch != "" {
			if _, err := semver.NewVersion(entry.Epoch); err != nil {
				return errors.Wrapf(err, "contract '%s' has an invalid epoch '%s'", name, entry.Epoch)
			}
		}
	}
	return nil
}

// OrderedContracts returns the manifest's contracts sorted by activation epoch, earliest first, with name order
// breaking ties so the result is deterministic. Entries without an epoch sort first.
func (m *Manifest) OrderedContracts() []ManifestContract {
	ordered := make([]ManifestContract, 0, len(m.Contracts))
	for name, entry := range m.Contracts {
		ordered = append(ordered, ManifestContract{Name: name, Entry: entry})
	}
	sort.Slice(ordered, func(i, j int) bool {
		cmp := compareEpochs(ordered[i].Entry.Epoch, ordered[j].Entry.Epoch)
		if cmp != 0 {
			return cmp < 0
		}
		return ordered[i].Name < ordered[j].Name
	})
	return ordered
}

// compareEpochs orders two epoch strings, treating the empty epoch as earliest. Epochs are validated at load time,
// so parse failures cannot occur here.
func compareEpochs(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return -1
	case b == "":
		return 1
	}
	return semver.MustParse(a).Compare(semver.MustParse(b))
}
