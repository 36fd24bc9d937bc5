// Package util holds small helpers shared by the node packages.
package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// RandomUint32 returns a uniformly distributed value in the closed range
// [min, max] read from the system CSPRNG.
func RandomUint32(min, max uint32) (uint32, error) {
	if max < min {
		return 0, fmt.Errorf("invalid range [%d, %d]", min, max)
	}
	span := new(big.Int).SetUint64(uint64(max-min) + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return 0, fmt.Errorf("cannot read random value: %w", err)
	}
	return min + uint32(n.Uint64()), nil
}

// TrimHex trims the '0x' prefix from a hex string.
func TrimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
