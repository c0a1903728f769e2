// Package valuegeneration provides the random argument generation used to drive contract calls. Generation is
// split in two: a ValueGenerator produces loosely typed base values from a parameter's type, and the materializer
// converts a base value back into a typed VM value. The two walk the same type tree, so a mismatch between them is
// a programming error and panics rather than failing a fuzzing run.
package valuegeneration

import (
	"math/big"
	"math/rand"

	"github.com/crytic/siren/chain"
	"github.com/crytic/siren/clarity"
	"github.com/crytic/siren/fuzzing/traits"
)

// asciiCharset holds the 95 printable ASCII characters (0x20 through 0x7e) string-ascii values draw from.
const asciiCharset = " !\"#$%&'()*+,-./0123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_`abcdefghijklmnopqrstuvwxyz{|}~"

// utf8Runes holds the rune pool string-utf8 values draw from: the printable ASCII range plus a handful of
// multi-byte code points so encoders see non-trivial input.
var utf8Runes = []rune(asciiCharset + "àéîöùΣλπдоñ中文字☂★♞")

// ValueGenerator describes a provider of base values for each primitive parameter kind. Composite kinds (lists,
// tuples, optionals, responses) are driven by GenerateArgValue on top of these primitives.
type ValueGenerator interface {
	// GenerateInteger returns a signed value within the 128-bit range.
	GenerateInteger() *big.Int

	// GenerateUnsignedInteger returns an unsigned value within the 128-bit range.
	GenerateUnsignedInteger() *big.Int

	// GenerateBool returns a coin flip.
	GenerateBool() bool

	// GenerateBytes returns a byte string of length zero through maxLength.
	GenerateBytes(maxLength int) []byte

	// GenerateAsciiString returns a printable ASCII string of length zero through maxLength.
	GenerateAsciiString(maxLength int) string

	// GenerateUtf8String returns a string of zero through maxLength runes.
	GenerateUtf8String(maxLength int) string

	// GeneratePrincipal returns a standard or contract principal drawn uniformly from the deployment's known
	// accounts and contracts.
	GeneratePrincipal() string

	// GenerateTraitImplementer returns the ID of a deployed contract implementing the given trait. The trait must
	// have at least one implementer; eligibility filtering upstream guarantees that.
	GenerateTraitImplementer(trait *clarity.TraitDescriptor) chain.ContractID

	// GenerateLength returns a composite length of zero through maxLength.
	GenerateLength(maxLength int) int
}

// RandomValueGenerator generates uniformly random base values from an externally seeded source, so a run's entire
// argument stream replays from its seed.
type RandomValueGenerator struct {
	random *rand.Rand

	// accounts and contracts are the principal pools GeneratePrincipal draws from.
	accounts  []string
	contracts []chain.ContractID

	// implementations answers trait-implementer queries.
	implementations *traits.ImplementationIndex
}

// NewRandomValueGenerator creates a generator over the deployment's principal pools. The random source is shared
// with the caller; seeding it is the caller's responsibility.
func NewRandomValueGenerator(random *rand.Rand, accounts []string, contracts []chain.ContractID, implementations *traits.ImplementationIndex) *RandomValueGenerator {
	return &RandomValueGenerator{
		random:          random,
		accounts:        accounts,
		contracts:       contracts,
		implementations: implementations,
	}
}

func (g *RandomValueGenerator) GenerateInteger() *big.Int {
	// Draw uniformly from the full unsigned range, then shift into the signed one.
	value := g.randomBits(128)
	return value.Add(value, clarity.MinInt128)
}

func (g *RandomValueGenerator) GenerateUnsignedInteger() *big.Int {
	return g.randomBits(128)
}

// randomBits draws a uniform value in [0, 2^bits).
func (g *RandomValueGenerator) randomBits(bits int) *big.Int {
	bound := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	return new(big.Int).Rand(g.random, bound)
}

func (g *RandomValueGenerator) GenerateBool() bool {
	return g.random.Intn(2) == 0
}

func (g *RandomValueGenerator) GenerateBytes(maxLength int) []byte {
	data := make([]byte, g.GenerateLength(maxLength))
	g.random.Read(data)
	return data
}

func (g *RandomValueGenerator) GenerateAsciiString(maxLength int) string {
	characters := make([]byte, g.GenerateLength(maxLength))
	for i := range characters {
		characters[i] = asciiCharset[g.random.Intn(len(asciiCharset))]
	}
	return string(characters)
}

func (g *RandomValueGenerator) GenerateUtf8String(maxLength int) string {
	runes := make([]rune, g.GenerateLength(maxLength))
	for i := range runes {
		runes[i] = utf8Runes[g.random.Intn(len(utf8Runes))]
	}
	return string(runes)
}

func (g *RandomValueGenerator) GeneratePrincipal() string {
	// Accounts and contracts form a single uniform pool.
	choice := g.random.Intn(len(g.accounts) + len(g.contracts))
	if choice < len(g.accounts) {
		return g.accounts[choice]
	}
	return string(g.contracts[choice-len(g.accounts)])
}

func (g *RandomValueGenerator) GenerateTraitImplementer(trait *clarity.TraitDescriptor) chain.ContractID {
	implementers := g.implementations.GetContractIDsImplementingTrait(trait)
	if len(implementers) == 0 {
		panic("no deployed contract implements trait '" + trait.Name + "'")
	}
	return implementers[g.random.Intn(len(implementers))]
}

func (g *RandomValueGenerator) GenerateLength(maxLength int) int {
	return g.random.Intn(maxLength + 1)
}
