// Package mfa encrypts second-factor material at rest. Ciphertexts are bound
// to the owning user and purpose so a value copied to another row fails to
// decrypt.
package mfa

import "fmt"

type Purpose string

const PurposeTOTPSecret Purpose = "totp_secret"

// Scope is authenticated, not encrypted, alongside the plaintext.
type Scope struct {
	UserID  int64
	Purpose Purpose
}

func (s Scope) canonical() string {
	return fmt.Sprintf("uid=%d\npurpose=%s\n", s.UserID, s.Purpose)
}

type Encryptor interface {
	Encrypt(plaintext []byte, scope Scope) ([]byte, error)
	Decrypt(ciphertext []byte, scope Scope) ([]byte, error)
}

// KeyProvider resolves the AES-256 key for a scope.
type KeyProvider interface {
	Key(scope Scope) ([]byte, error)
}

// StaticKeyProvider serves one key for every scope.
type StaticKeyProvider struct {
	KeyBytes []byte
}

func (p StaticKeyProvider) Key(Scope) ([]byte, error) {
	if len(p.KeyBytes) == 0 {
		return nil, ErrMissingStaticKey
	}
	return append([]byte(nil), p.KeyBytes...), nil
}
