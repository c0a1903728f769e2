package traits

import (
	"testing"

	"github.com/crytic/siren/chain"
	"github.com/crytic/siren/clarity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hubSource defines a local trait, imports one from another issuer, and takes trait references both bare and
// nested inside a list.
const hubSource = `
(use-trait token 'SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7.token-lib.token-trait)
(define-trait payable ((pay (uint) (response bool uint))))

(define-public (route (recipient <payable>) (assets (list 4 <token>)))
  (ok true))

(define-public (settle (amount uint))
  (ok true))
`

func deployHub(t *testing.T) (*chain.TestChain, chain.ContractID) {
	testChain := chain.NewTestChain(2)
	deployer := testChain.ListAccounts()[0]
	hubID := chain.NewContractID(deployer, "trait-hub")
	require.NoError(t, testChain.DeployContract(hubID, hubSource, 2, deployer))
	return testChain, hubID
}

// TestEnrichSignatureResolvesDescriptors checks bare and nested trait references resolve to the descriptors the
// syntax tree declares.
func TestEnrichSignatureResolvesDescriptors(t *testing.T) {
	testChain, hubID := deployHub(t)

	enriched, err := EnrichContractInterface(testChain, hubID)
	require.NoError(t, err)
	require.Len(t, enriched, 2)

	route := enriched[0]
	require.Equal(t, "route", route.Name)
	require.Len(t, route.Args, 2)

	recipient, ok := route.Args[0].Type.(*clarity.TraitReferenceType)
	require.True(t, ok)
	require.NotNil(t, recipient.Trait)
	assert.Equal(t, "payable", recipient.Trait.Name)
	assert.Equal(t, hubID.Issuer(), recipient.Trait.OriginIssuer)
	assert.Equal(t, "trait-hub", recipient.Trait.OriginContractName)

	assets, ok := route.Args[1].Type.(*clarity.ListType)
	require.True(t, ok)
	element, ok := assets.Element.(*clarity.TraitReferenceType)
	require.True(t, ok)
	require.NotNil(t, element.Trait)
	assert.Equal(t, "token-trait", element.Trait.Name)
	assert.Equal(t, "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7", element.Trait.OriginIssuer)
	assert.Equal(t, "token-lib", element.Trait.OriginContractName)
}

// TestEnrichLeavesPlainSignaturesAlone checks signatures without trait references pass through unchanged.
func TestEnrichLeavesPlainSignaturesAlone(t *testing.T) {
	testChain, hubID := deployHub(t)

	enriched, err := EnrichContractInterface(testChain, hubID)
	require.NoError(t, err)

	settle := enriched[1]
	require.Equal(t, "settle", settle.Name)
	require.Len(t, settle.Args, 1)
	assert.IsType(t, &clarity.UintType{}, settle.Args[0].Type)
}

// TestUndeclaredAliasFails checks a trait parameter with no matching use-trait or define-trait is rejected.
func TestUndeclaredAliasFails(t *testing.T) {
	testChain := chain.NewTestChain(1)
	deployer := testChain.ListAccounts()[0]
	contractID := chain.NewContractID(deployer, "broken")
	source := `
(define-public (call-it (target <missing>))
  (ok true))
`
	require.NoError(t, testChain.DeployContract(contractID, source, 2, deployer))

	_, err := EnrichContractInterface(testChain, contractID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

// TestImplementationIndex checks impl-trait scanning and descriptor matching across deployed contracts.
func TestImplementationIndex(t *testing.T) {
	testChain, hubID := deployHub(t)
	deployer := testChain.ListAccounts()[0]

	implementerSource := `
(impl-trait .trait-hub.payable)

(define-public (pay (amount uint))
  (ok true))
`
	implementerID := chain.NewContractID(deployer, "vault")
	require.NoError(t, testChain.DeployContract(implementerID, implementerSource, 2, deployer))

	bystanderSource := `
(define-public (noop)
  (ok true))
`
	bystanderID := chain.NewContractID(deployer, "bystander")
	require.NoError(t, testChain.DeployContract(bystanderID, bystanderSource, 2, deployer))

	index, err := BuildImplementationIndex(testChain)
	require.NoError(t, err)

	payable := &clarity.TraitDescriptor{Name: "payable", OriginIssuer: hubID.Issuer(), OriginContractName: "trait-hub"}
	implementers := index.GetContractIDsImplementingTrait(payable)
	assert.Equal(t, []chain.ContractID{implementerID}, implementers)

	orphan := &clarity.TraitDescriptor{Name: "unclaimed", OriginIssuer: hubID.Issuer(), OriginContractName: "trait-hub"}
	assert.Empty(t, index.GetContractIDsImplementingTrait(orphan))
}
