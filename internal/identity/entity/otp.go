package entity

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/shandysiswandi/gootp/internal/pkg/otp"
)

var (
	ErrInvalidCode             = errors.New("identity: otp code must be 6 digits")
	ErrInvalidVerificationType = errors.New("identity: invalid verification type")
)

type VerificationType string

const (
	VerificationEmail     VerificationType = "email"
	VerificationPassword  VerificationType = "password"
	VerificationTwoFactor VerificationType = "two_factor"
)

func (t VerificationType) String() string { return string(t) }

// Mailable reports whether codes of this type are delivered by email.
// two_factor codes come from an authenticator app instead.
func (t VerificationType) Mailable() bool {
	return t == VerificationEmail || t == VerificationPassword
}

func ParseVerificationType(s string) (VerificationType, error) {
	switch t := VerificationType(s); t {
	case VerificationEmail, VerificationPassword, VerificationTwoFactor:
		return t, nil
	default:
		return "", ErrInvalidVerificationType
	}
}

type VerificationStatus string

const (
	StatusVerified VerificationStatus = "VERIFIED"
	StatusExpired  VerificationStatus = "EXPIRED"
	StatusInvalid  VerificationStatus = "INVALID"
	StatusUsed     VerificationStatus = "USED"
)

func (s VerificationStatus) String() string { return string(s) }

type OtpCode struct {
	ID        int64
	UserID    int64
	Code      string
	Type      VerificationType
	ExpiresAt time.Time
	IsUsed    bool
	CreatedAt time.Time
}

// NewOtpCode builds an unused code expiring ttl after now.
func NewOtpCode(id, userID int64, code string, typ VerificationType, now time.Time, ttl time.Duration) (OtpCode, error) {
	if !otp.IsDigitCode(code) {
		return OtpCode{}, ErrInvalidCode
	}
	if _, err := ParseVerificationType(string(typ)); err != nil {
		return OtpCode{}, err
	}

	return OtpCode{
		ID:        id,
		UserID:    userID,
		Code:      code,
		Type:      typ,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, nil
}

// Check classifies a submitted code against this record. A StatusVerified
// result is tentative until the record is atomically marked used.
func (c OtpCode) Check(code string, now time.Time) VerificationStatus {
	switch {
	case subtle.ConstantTimeCompare([]byte(c.Code), []byte(code)) != 1:
		return StatusInvalid
	case c.IsUsed:
		return StatusUsed
	case now.After(c.ExpiresAt):
		return StatusExpired
	default:
		return StatusVerified
	}
}
