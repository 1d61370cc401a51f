package domain

import (
	"crypto/rand"
	"fmt"
	"io"
)

const (
	// CodeAlphabet is the set of characters a ticket code is drawn from
	CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// CodeLength is the number of characters in a ticket code
	CodeLength = 8
)

// Largest multiple of len(CodeAlphabet) that fits in a byte; bytes at or
// above it are discarded so every character is equally likely.
const maxUnbiasedByte = 256 - 256%len(CodeAlphabet)

// CodeGenerator produces candidate ticket codes. It does not check
// uniqueness.
type CodeGenerator struct {
	rand io.Reader
}

// NewCodeGenerator returns a generator reading entropy from r, or from
// crypto/rand when r is nil
func NewCodeGenerator(r io.Reader) *CodeGenerator {
	if r == nil {
		r = rand.Reader
	}
	return &CodeGenerator{rand: r}
}

// Generate returns a CodeLength string over CodeAlphabet
func (g *CodeGenerator) Generate() (string, error) {
	out := make([]byte, 0, CodeLength)
	buf := make([]byte, CodeLength*2)
	for len(out) < CodeLength {
		if _, err := io.ReadFull(g.rand, buf); err != nil {
			return "", fmt.Errorf("read code entropy: %w", err)
		}
		for _, b := range buf {
			if int(b) >= maxUnbiasedByte {
				continue
			}
			out = append(out, CodeAlphabet[int(b)%len(CodeAlphabet)])
			if len(out) == CodeLength {
				break
			}
		}
	}
	return string(out), nil
}

// IsValidCode reports whether code has the generated shape
func IsValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
