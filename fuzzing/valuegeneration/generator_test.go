package valuegeneration

import (
	"math/rand"
	"testing"

	"github.com/crytic/siren/chain"
	"github.com/crytic/siren/clarity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testAccounts is a fixed principal pool for generator tests.
var testAccounts = []string{
	"ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM",
	"ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG",
}

func newTestGenerator(seed int64) *RandomValueGenerator {
	return NewRandomValueGenerator(rand.New(rand.NewSource(seed)), testAccounts, nil, nil)
}

// compositeType builds a type exercising every composite kind around primitive leaves.
func compositeType() clarity.ParameterType {
	return &clarity.TupleType{Fields: []clarity.TupleField{
		{Name: "amounts", Type: &clarity.ListType{Element: &clarity.UintType{}, MaxLength: 8}},
		{Name: "memo", Type: &clarity.OptionalType{Inner: &clarity.BufferType{MaxLength: 34}}},
		{Name: "outcome", Type: &clarity.ResponseType{Ok: &clarity.BoolType{}, Error: &clarity.IntType{}}},
		{Name: "recipient", Type: &clarity.PrincipalType{}},
		{Name: "tag", Type: &clarity.StringAsciiType{MaxLength: 17}},
		{Name: "title", Type: &clarity.StringUtf8Type{MaxLength: 9}},
	}}
}

// TestGeneratedValuesInhabitTheirTypes round-trips generated base values through materialization and checks the
// result against the originating type.
func TestGeneratedValuesInhabitTheirTypes(t *testing.T) {
	generator := newTestGenerator(42)
	parameterType := compositeType()

	for i := 0; i < 200; i++ {
		base := GenerateArgValue(generator, parameterType)
		value := MaterializeArgValue(parameterType, base)
		require.True(t, clarity.CheckType(value, parameterType), "round %d produced ill-typed value %s", i, value)
	}
}

// TestAsciiStringsStayPrintable checks generated ASCII strings use only the 95 printable characters and honor the
// length bound.
func TestAsciiStringsStayPrintable(t *testing.T) {
	generator := newTestGenerator(7)
	for i := 0; i < 500; i++ {
		s := generator.GenerateAsciiString(24)
		assert.LessOrEqual(t, len(s), 24)
		for _, c := range []byte(s) {
			assert.GreaterOrEqual(t, c, byte(0x20))
			assert.LessOrEqual(t, c, byte(0x7e))
		}
	}
}

// TestUtf8StringsHonorRuneBound checks UTF-8 string lengths count runes, not bytes.
func TestUtf8StringsHonorRuneBound(t *testing.T) {
	generator := newTestGenerator(7)
	for i := 0; i < 500; i++ {
		s := generator.GenerateUtf8String(6)
		assert.LessOrEqual(t, len([]rune(s)), 6)
	}
}

// TestListsHonorLengthBound checks generated list lengths never exceed the type's maximum.
func TestListsHonorLengthBound(t *testing.T) {
	generator := newTestGenerator(11)
	listType := &clarity.ListType{Element: &clarity.BoolType{}, MaxLength: 5}
	for i := 0; i < 200; i++ {
		base := GenerateArgValue(generator, listType).([]any)
		assert.LessOrEqual(t, len(base), 5)
	}
}

// TestPrincipalsDrawFromKnownPools checks generated principals come from the configured accounts and contracts.
func TestPrincipalsDrawFromKnownPools(t *testing.T) {
	contracts := []chain.ContractID{"ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM.registry"}
	generator := NewRandomValueGenerator(rand.New(rand.NewSource(3)), testAccounts, contracts, nil)

	pool := map[string]bool{}
	for _, account := range testAccounts {
		pool[account] = true
	}
	pool[string(contracts[0])] = true

	seen := map[string]bool{}
	for i := 0; i < 300; i++ {
		principal := generator.GeneratePrincipal()
		require.True(t, pool[principal], "principal %q outside the configured pool", principal)
		seen[principal] = true
	}
	// With 300 uniform draws every pool member should have appeared.
	assert.Len(t, seen, len(pool))
}

// TestSameSeedReplaysSameStream checks two generators with equal seeds produce identical argument streams.
func TestSameSeedReplaysSameStream(t *testing.T) {
	parameterType := compositeType()
	first := newTestGenerator(99)
	second := newTestGenerator(99)

	for i := 0; i < 50; i++ {
		left := MaterializeArgValue(parameterType, GenerateArgValue(first, parameterType))
		right := MaterializeArgValue(parameterType, GenerateArgValue(second, parameterType))
		require.Equal(t, left.String(), right.String())
	}
}

// TestUnresolvedTraitReferencePanics checks generation refuses a trait reference with no descriptor attached.
func TestUnresolvedTraitReferencePanics(t *testing.T) {
	generator := newTestGenerator(1)
	assert.Panics(t, func() {
		GenerateArgValue(generator, &clarity.TraitReferenceType{})
	})
}
