// Package token generates the short verification secrets users must retype.
package token

import (
	"crypto/rand"
	"math/big"
)

// Alphabet is uppercase alphanumeric. Comparison at resolution time is
// case-insensitive, so lowercase answers still match.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultLength matches the claim prompt shown to users.
const DefaultLength = 6

// New returns a random token of n characters drawn uniformly from Alphabet
// using crypto/rand. n <= 0 falls back to DefaultLength.
func New(n int) string {
	if n <= 0 {
		n = DefaultLength
	}
	max := big.NewInt(int64(len(Alphabet)))
	buf := make([]byte, n)
	for i := range buf {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is
			// broken; nothing sensible to do but stop.
			panic(err)
		}
		buf[i] = Alphabet[v.Int64()]
	}
	return string(buf)
}
