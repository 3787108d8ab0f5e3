package utils

import (
	"strings"
)

// Obfuscate masks a secret, keeping its length and showing only the first
// and last 2 characters. Secrets of 4 characters or fewer are masked entirely.
// Example: "ab******yz"
func Obfuscate(secret string) string {
	n := len(secret)
	if n <= 4 {
		return strings.Repeat("*", n)
	}
	return secret[:2] + strings.Repeat("*", n-4) + secret[n-2:]
}
