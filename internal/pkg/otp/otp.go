// Package otp implements RFC 6238 TOTP on top of pquerna/otp, and the random
// numeric codes mailed for email verification and password reset.
package otp

import (
	"bytes"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"image/jpeg"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// SecretSize is the raw secret length in bytes. It encodes to 32 base32 characters.
	SecretSize = 20

	defaultPeriod = 30
	qrSize        = 200
)

var (
	ErrInvalidSecret = errors.New("otp: secret is not valid base32")
	ErrMissingIssuer = errors.New("otp: issuer is required")
)

var secretEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// OTP is the TOTP contract used by the 2FA flows.
type OTP interface {
	// Generate mints a new secret and returns it with its provisioning URI.
	Generate(account string) (secret, uri string, err error)
	// URI builds the provisioning URI of an existing secret.
	URI(secret, account string) (string, error)
	// QRCode renders uri as a base64 encoded JPEG.
	QRCode(uri string) (string, error)
	Validate(code, secret string, at time.Time) bool
	GenerateCode(secret string, at time.Time) (string, error)
}

// Config tunes a TOTP. A zero Skew accepts only the current time step.
type Config struct {
	Issuer string
	Period uint
	Skew   uint
	Digits otp.Digits
}

type TOTP struct {
	issuer string
	period uint
	skew   uint
	digits otp.Digits
}

// NewTOTP falls back to 30 second steps and 6 digits when unset.
func NewTOTP(cfg Config) (*TOTP, error) {
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, ErrMissingIssuer
	}

	if cfg.Digits != otp.DigitsSix && cfg.Digits != otp.DigitsEight {
		cfg.Digits = otp.DigitsSix
	}
	if cfg.Period == 0 {
		cfg.Period = defaultPeriod
	}

	return &TOTP{issuer: cfg.Issuer, period: cfg.Period, skew: cfg.Skew, digits: cfg.Digits}, nil
}

func (o *TOTP) opts(account string, secret []byte) totp.GenerateOpts {
	return totp.GenerateOpts{
		Issuer:      o.issuer,
		AccountName: account,
		Period:      o.period,
		SecretSize:  SecretSize,
		Secret:      secret,
		Digits:      o.digits,
		Algorithm:   otp.AlgorithmSHA1,
	}
}

func (o *TOTP) Generate(account string) (string, string, error) {
	key, err := totp.Generate(o.opts(account, nil))
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

func (o *TOTP) URI(secret, account string) (string, error) {
	raw, err := secretEncoding.DecodeString(strings.ToUpper(strings.TrimSpace(secret)))
	if err != nil || len(raw) == 0 {
		return "", ErrInvalidSecret
	}

	key, err := totp.Generate(o.opts(account, raw))
	if err != nil {
		return "", err
	}
	return key.URL(), nil
}

func (o *TOTP) QRCode(uri string) (string, error) {
	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		return "", fmt.Errorf("otp: parse uri: %w", err)
	}

	img, err := key.Image(qrSize, qrSize)
	if err != nil {
		return "", fmt.Errorf("otp: render qr: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpeg.DefaultQuality}); err != nil {
		return "", fmt.Errorf("otp: encode jpeg: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (o *TOTP) validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    o.period,
		Skew:      o.skew,
		Digits:    o.digits,
		Algorithm: otp.AlgorithmSHA1,
	}
}

func (o *TOTP) Validate(code, secret string, at time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, at, o.validateOpts())
	return ok && err == nil
}

func (o *TOTP) GenerateCode(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, at, o.validateOpts())
}
