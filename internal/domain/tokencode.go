package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// Token codes look like VIP-7QK2-M9XD-4HTA. The alphabet drops 0/O and 1/I/L
// so codes survive being read aloud or typed from a screenshot.
const (
	TokenPrefix   = "VIP"
	tokenAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
	tokenGroups   = 3
	tokenGroupLen = 4
)

var tokenPattern = regexp.MustCompile(`^VIP(-[23456789ABCDEFGHJKMNPQRSTUVWXYZ]{4}){3}$`)

// NewTokenCode returns a random code using crypto/rand.
func NewTokenCode() (string, error) {
	var b strings.Builder
	b.WriteString(TokenPrefix)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for g := 0; g < tokenGroups; g++ {
		b.WriteByte('-')
		for i := 0; i < tokenGroupLen; i++ {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", fmt.Errorf("token code: %w", err)
			}
			b.WriteByte(tokenAlphabet[n.Int64()])
		}
	}
	return b.String(), nil
}

// NormalizeTokenCode upper-cases user input and strips surrounding spaces.
func NormalizeTokenCode(in string) string {
	return strings.ToUpper(strings.TrimSpace(in))
}

// ValidTokenCode reports whether a normalized code is well formed.
func ValidTokenCode(code string) bool {
	return tokenPattern.MatchString(code)
}
