package chain

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160"
)

// c32Alphabet is the Crockford-style base32 alphabet used to render principal addresses.
const c32Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// testnetAddressPrefix prefixes every principal the embedded chain derives.
const testnetAddressPrefix = "ST"

// hash160 computes ripemd160(sha256(data)), the 20-byte digest principal addresses derive from.
func hash160(data []byte) []byte {
	sha := sha256.Sum256(data)
	ripemd := ripemd160.New()
	ripemd.Write(sha[:])
	return ripemd.Sum(nil)
}

// DeriveAccountAddress deterministically derives a principal address from a seed label. The embedded chain uses it
// to mint its funded test accounts; the same label always yields the same principal.
func DeriveAccountAddress(seed string) string {
	digest := hash160([]byte(seed))

	// Render the digest in base32; 20 bytes become 32 characters.
	encoded := make([]byte, 0, 32)
	var accumulator uint64
	var bits uint
	for _, b := range digest {
		accumulator = accumulator<<8 | uint64(b)
		bits += 8
		for bits >= 5 {
			bits -= 5
			encoded = append(encoded, c32Alphabet[(accumulator>>bits)&0x1f])
		}
	}
	return testnetAddressPrefix + string(encoded)
}
