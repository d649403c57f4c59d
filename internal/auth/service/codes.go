package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// userCodeAlphabet omits 0/O, 1/I/L and other confusable glyphs so a code
// read off a TV screen survives human transcription.
const userCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const userCodeLength = 8

// generateUserCode returns a human-typeable code in XXXX-XXXX form. Each
// character is drawn uniformly, no modulo bias.
func generateUserCode() (string, error) {
	max := big.NewInt(int64(len(userCodeAlphabet)))
	var b strings.Builder
	b.Grow(userCodeLength + 1)
	for i := range userCodeLength {
		if i == userCodeLength/2 {
			b.WriteByte('-')
		}
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("could not generate user code: %w", err)
		}
		b.WriteByte(userCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// normalizeUserCode uppercases and strips separators so "abcd-efgh",
// "ABCD EFGH" and "abcdefgh" all match the stored XXXX-XXXX form.
func normalizeUserCode(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ':
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(raw)))
	if len(cleaned) != userCodeLength {
		return cleaned
	}
	return cleaned[:userCodeLength/2] + "-" + cleaned[userCodeLength/2:]
}
