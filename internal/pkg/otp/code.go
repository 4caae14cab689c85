package otp

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// CodeLength is the length of mailed verification codes.
const CodeLength = 6

var ten = big.NewInt(10)

// Coder produces mailed verification codes.
type Coder interface {
	Code() (string, error)
}

// DigitCode draws each digit uniformly from 0-9.
type DigitCode struct {
	length int
}

func NewDigitCode() *DigitCode { return &DigitCode{length: CodeLength} }

func (d *DigitCode) Code() (string, error) {
	var sb strings.Builder
	sb.Grow(d.length)

	for range d.length {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		sb.WriteByte(byte('0' + n.Int64()))
	}

	return sb.String(), nil
}

// IsDigitCode reports whether s is exactly CodeLength ASCII digits.
func IsDigitCode(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
