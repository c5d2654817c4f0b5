// Package random generates opaque tokens.
package random

import (
	crand "crypto/rand"
	"fmt"
	"math/big"
)

const charset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Token returns a string of length characters drawn from crypto/rand.
func Token(length int) (string, error) {
	max := big.NewInt(int64(len(charset)))

	b := make([]byte, length)
	for i := range b {
		n, err := crand.Int(crand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("reading random source: %w", err)
		}
		b[i] = charset[n.Int64()]
	}
	return string(b), nil
}
