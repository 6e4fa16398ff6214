package utils

import (
	"crypto/rand"
	"math/big"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateID returns a short random base36 token. Used for room ids, where
// collision probability over a handful of concurrent rooms is negligible.
func GenerateID(length int) string {
	id := make([]byte, length)
	for i := range id {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(idAlphabet))))
		if err != nil {
			// crypto/rand only fails if the platform entropy source is
			// broken; fall back to a fixed character rather than panic.
			id[i] = idAlphabet[0]
			continue
		}
		id[i] = idAlphabet[n.Int64()]
	}
	return string(id)
}
