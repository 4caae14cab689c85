package entity

import "time"

type TwoFactorState int8

const (
	TwoFactorUnprovisioned TwoFactorState = iota
	TwoFactorActive
	TwoFactorDisabled
)

func (s TwoFactorState) String() string {
	switch s {
	case TwoFactorActive:
		return "active"
	case TwoFactorDisabled:
		return "disabled"
	default:
		return "unprovisioned"
	}
}

// TwoFactorSecret is a user's TOTP enrollment. SecretKey holds the encrypted
// base32 secret exactly as persisted.
type TwoFactorSecret struct {
	UserID    int64
	SecretKey []byte
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StateOf maps a possibly missing record to its lifecycle state.
func StateOf(s *TwoFactorSecret) TwoFactorState {
	switch {
	case s == nil || len(s.SecretKey) == 0:
		return TwoFactorUnprovisioned
	case s.IsActive:
		return TwoFactorActive
	default:
		return TwoFactorDisabled
	}
}

func NewTwoFactorSecret(userID int64, secretKey []byte, now time.Time) *TwoFactorSecret {
	return &TwoFactorSecret{
		UserID:    userID,
		SecretKey: secretKey,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Activate re-enables a disabled record with a freshly minted key. It reports
// false when the record is already active.
func (s *TwoFactorSecret) Activate(secretKey []byte, now time.Time) bool {
	if s.IsActive {
		return false
	}
	s.SecretKey = secretKey
	s.IsActive = true
	s.UpdatedAt = now
	return true
}

// Rotate replaces the key of an active record. It reports false when inactive.
func (s *TwoFactorSecret) Rotate(secretKey []byte, now time.Time) bool {
	if !s.IsActive {
		return false
	}
	s.SecretKey = secretKey
	s.UpdatedAt = now
	return true
}

func (s *TwoFactorSecret) Deactivate(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	s.IsActive = false
	s.UpdatedAt = now
	return true
}
