package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

const LinkCodeLen = 32

// NewLinkCode returns 16 random bytes as upper-case hex.
func NewLinkCode() (string, error) {
	b := make([]byte, LinkCodeLen/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// NormalizeLinkCode strips quotes, punctuation and spacing that chat
// clients add around a pasted code.
func NormalizeLinkCode(s string) (string, bool) {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if strings.ContainsRune("0123456789ABCDEF", r) {
			b.WriteRune(r)
		}
	}
	code := b.String()
	if len(code) != LinkCodeLen {
		return "", false
	}
	return code, true
}
