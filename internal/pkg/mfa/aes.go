package mfa

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
)

// Layout: uint16 version | 12-byte nonce | sealed ciphertext and tag.
const (
	aesGCMVersion uint16 = 1
	gcmNonceSize         = 12
	aesKeyLen            = 32
	headerLen            = 2 + gcmNonceSize
)

var (
	ErrEncryptorNotConfigured       = errors.New("mfa: encryptor not configured")
	ErrPlaintextEmpty               = errors.New("mfa: plaintext is empty")
	ErrInvalidKeyLength             = errors.New("mfa: invalid key length")
	ErrCiphertextTooShort           = errors.New("mfa: ciphertext too short")
	ErrUnsupportedCiphertextVersion = errors.New("mfa: unsupported ciphertext version")
	ErrDecryptFailed                = errors.New("mfa: decrypt failed")
	ErrMissingStaticKey             = errors.New("mfa: missing static key")
)

// AESGCM implements Encryptor with AES-256-GCM.
type AESGCM struct {
	keys KeyProvider
}

func NewAESGCM(keys KeyProvider) *AESGCM {
	return &AESGCM{keys: keys}
}

func (e *AESGCM) aead(scope Scope) (cipher.AEAD, error) {
	if e == nil || e.keys == nil {
		return nil, ErrEncryptorNotConfigured
	}

	key, err := e.keys.Key(scope)
	if err != nil {
		return nil, fmt.Errorf("mfa: key provider: %w", err)
	}
	if len(key) != aesKeyLen {
		return nil, fmt.Errorf("mfa: got %d byte key, want %d: %w", len(key), aesKeyLen, ErrInvalidKeyLength)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("mfa: aes: %w", err)
	}

	return cipher.NewGCMWithNonceSize(block, gcmNonceSize)
}

func (e *AESGCM) Encrypt(plaintext []byte, scope Scope) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, ErrPlaintextEmpty
	}

	gcm, err := e.aead(scope)
	if err != nil {
		return nil, err
	}

	out := make([]byte, headerLen, headerLen+len(plaintext)+gcm.Overhead())
	binary.BigEndian.PutUint16(out[:2], aesGCMVersion)
	if _, err := rand.Read(out[2:headerLen]); err != nil {
		return nil, fmt.Errorf("mfa: nonce: %w", err)
	}

	return gcm.Seal(out, out[2:headerLen], plaintext, aad(scope)), nil
}

func (e *AESGCM) Decrypt(ciphertext []byte, scope Scope) ([]byte, error) {
	if len(ciphertext) <= headerLen {
		return nil, ErrCiphertextTooShort
	}
	if v := binary.BigEndian.Uint16(ciphertext[:2]); v != aesGCMVersion {
		return nil, fmt.Errorf("mfa: version %d: %w", v, ErrUnsupportedCiphertextVersion)
	}

	gcm, err := e.aead(scope)
	if err != nil {
		return nil, err
	}

	plain, err := gcm.Open(nil, ciphertext[2:headerLen], ciphertext[headerLen:], aad(scope))
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plain, nil
}

func aad(s Scope) []byte {
	sum := sha256.Sum256([]byte(s.canonical()))
	return sum[:]
}
