package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/gootp/internal/identity/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
	"github.com/shandysiswandi/gootp/internal/pkg/mfa"
)

var errTwoFactorMissing = goerror.NewNotFound("two-factor authentication is not set up")

type EnrollTwoFactorOutput struct {
	State  entity.TwoFactorState
	Secret string
	URI    string
}

type TwoFactorQRCodeOutput struct {
	Secret string
	Image  string
}

type VerifyTwoFactorCodeInput struct {
	Code string `validate:"required,otpcode"`
	// Secret, when set, is checked instead of the stored key.
	Secret string
}

func (s *Usecase) totpScope(userID int64) mfa.Scope {
	return mfa.Scope{UserID: userID, Purpose: mfa.PurposeTOTPSecret}
}

func (s *Usecase) sealSecret(userID int64, secret string) ([]byte, error) {
	return s.mfaEncryptor.Encrypt([]byte(secret), s.totpScope(userID))
}

func (s *Usecase) openSecret(rec *entity.TwoFactorSecret) (string, error) {
	plain, err := s.mfaEncryptor.Decrypt(rec.SecretKey, s.totpScope(rec.UserID))
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// mintSecret returns a new plaintext secret and its sealed form.
func (s *Usecase) mintSecret(user *entity.User) (string, []byte, error) {
	secret, _, err := s.totp.Generate(user.Email)
	if err != nil {
		return "", nil, err
	}
	sealed, err := s.sealSecret(user.ID, secret)
	if err != nil {
		return "", nil, err
	}
	return secret, sealed, nil
}

func (s *Usecase) currentUser(ctx context.Context) (*entity.User, error) {
	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	return s.userByID(ctx, clm.UserID)
}

func (s *Usecase) userByID(ctx context.Context, id int64) (*entity.User, error) {
	user, err := s.repoDB.GetUserByID(ctx, id)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewNotFound("user not found")
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by id", "user_id", id, "error", err)
		return nil, goerror.NewServer(err)
	}
	return user, nil
}

// loadTwoFactor returns the stored record, or nil when the user never enrolled.
func (s *Usecase) loadTwoFactor(ctx context.Context, userID int64) (*entity.TwoFactorSecret, error) {
	rec, err := s.repoDB.GetTwoFactorSecret(ctx, userID)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get two factor secret", "user_id", userID, "error", err)
		return nil, goerror.NewServer(err)
	}
	return rec, nil
}

// mutateTwoFactor retries once when a concurrent first enrollment won.
func (s *Usecase) mutateTwoFactor(ctx context.Context, userID int64, fn func(*entity.TwoFactorSecret) (*entity.TwoFactorSecret, error)) error {
	err := s.repoDB.MutateTwoFactorSecret(ctx, userID, fn)
	if errors.Is(err, goerror.ErrConflict) {
		err = s.repoDB.MutateTwoFactorSecret(ctx, userID, fn)
	}
	if err != nil {
		if _, ok := goerror.As(err); ok {
			return err
		}
		slog.ErrorContext(ctx, "failed to repo mutate two factor secret", "user_id", userID, "error", err)
		return goerror.NewServer(err)
	}
	return nil
}

// EnrollTwoFactor is idempotent. A first call provisions an active secret; an
// active enrollment is returned unchanged; a disabled one stays disabled and
// its secret is not disclosed.
func (s *Usecase) EnrollTwoFactor(ctx context.Context) (*EnrollTwoFactorOutput, error) {
	ctx, span := s.startSpan(ctx, "EnrollTwoFactor")
	defer span.End()

	user, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	var out EnrollTwoFactorOutput
	err = s.mutateTwoFactor(ctx, user.ID, func(cur *entity.TwoFactorSecret) (*entity.TwoFactorSecret, error) {
		switch entity.StateOf(cur) {
		case entity.TwoFactorActive:
			secret, err := s.openSecret(cur)
			if err != nil {
				return nil, err
			}
			out = EnrollTwoFactorOutput{State: entity.TwoFactorActive, Secret: secret}
			return nil, nil

		case entity.TwoFactorDisabled:
			out = EnrollTwoFactorOutput{State: entity.TwoFactorDisabled}
			return nil, nil

		default:
			secret, sealed, err := s.mintSecret(user)
			if err != nil {
				return nil, err
			}
			out = EnrollTwoFactorOutput{State: entity.TwoFactorActive, Secret: secret}
			return entity.NewTwoFactorSecret(user.ID, sealed, s.clock.Now()), nil
		}
	})
	if err != nil {
		return nil, err
	}

	if out.Secret != "" {
		if out.URI, err = s.totp.URI(out.Secret, user.Email); err != nil {
			slog.ErrorContext(ctx, "failed to build provisioning uri", "user_id", user.ID, "error", err)
			return nil, goerror.NewServer(err)
		}
	}

	return &out, nil
}

// TwoFactorProvisioningURI requires a stored secret, active or not.
func (s *Usecase) TwoFactorProvisioningURI(ctx context.Context) (string, error) {
	ctx, span := s.startSpan(ctx, "TwoFactorProvisioningURI")
	defer span.End()

	user, err := s.currentUser(ctx)
	if err != nil {
		return "", err
	}

	rec, err := s.loadTwoFactor(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if entity.StateOf(rec) == entity.TwoFactorUnprovisioned {
		return "", errTwoFactorMissing
	}

	secret, err := s.openSecret(rec)
	if err != nil {
		slog.ErrorContext(ctx, "failed to decrypt totp secret", "user_id", user.ID, "error", err)
		return "", goerror.NewServer(err)
	}

	uri, err := s.totp.URI(secret, user.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build provisioning uri", "user_id", user.ID, "error", err)
		return "", goerror.NewServer(err)
	}
	return uri, nil
}

func (s *Usecase) TwoFactorQRCode(ctx context.Context) (*TwoFactorQRCodeOutput, error) {
	ctx, span := s.startSpan(ctx, "TwoFactorQRCode")
	defer span.End()

	user, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.qrCode(ctx, user)
}

// UserTwoFactorQRCode is the administrative variant for any user.
func (s *Usecase) UserTwoFactorQRCode(ctx context.Context, userID int64) (*TwoFactorQRCodeOutput, error) {
	ctx, span := s.startSpan(ctx, "UserTwoFactorQRCode")
	defer span.End()

	user, err := s.userByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.qrCode(ctx, user)
}

// qrCode yields an empty pair unless the user has an active secret.
func (s *Usecase) qrCode(ctx context.Context, user *entity.User) (*TwoFactorQRCodeOutput, error) {
	rec, err := s.loadTwoFactor(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if entity.StateOf(rec) != entity.TwoFactorActive {
		return &TwoFactorQRCodeOutput{}, nil
	}

	secret, err := s.openSecret(rec)
	if err != nil {
		slog.ErrorContext(ctx, "failed to decrypt totp secret", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	uri, err := s.totp.URI(secret, user.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build provisioning uri", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	img, err := s.totp.QRCode(uri)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render qr code", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &TwoFactorQRCodeOutput{Secret: secret, Image: img}, nil
}

func (s *Usecase) VerifyTwoFactorCode(ctx context.Context, in VerifyTwoFactorCodeInput) (bool, error) {
	ctx, span := s.startSpan(ctx, "VerifyTwoFactorCode")
	defer span.End()

	in.Code = strings.TrimSpace(in.Code)
	in.Secret = strings.TrimSpace(in.Secret)
	if err := s.validator.Validate(in); err != nil {
		return false, goerror.NewInvalidInput(err)
	}

	clm, err := s.authenticated(ctx)
	if err != nil {
		return false, err
	}

	return s.verifyTOTP(ctx, clm.UserID, in.Code, in.Secret)
}

// verifyTOTP checks code against explicitSecret when given, otherwise against
// the user's stored secret, which must then be active.
func (s *Usecase) verifyTOTP(ctx context.Context, userID int64, code, explicitSecret string) (bool, error) {
	if debugBypass(s.cfg.GetString("app.env"), code) {
		slog.WarnContext(ctx, "totp debug bypass used", "user_id", userID)
		return true, nil
	}

	secret := explicitSecret
	if secret == "" {
		rec, err := s.loadTwoFactor(ctx, userID)
		if err != nil {
			return false, err
		}
		if entity.StateOf(rec) != entity.TwoFactorActive {
			return false, nil
		}

		if secret, err = s.openSecret(rec); err != nil {
			slog.ErrorContext(ctx, "failed to decrypt totp secret", "user_id", userID, "error", err)
			return false, goerror.NewServer(err)
		}
	}

	return s.totp.Validate(code, secret, s.clock.Now()), nil
}

// ResetTwoFactorSecret rotates the key of an active enrollment and reports
// false, leaving everything unchanged, otherwise.
func (s *Usecase) ResetTwoFactorSecret(ctx context.Context) (bool, error) {
	ctx, span := s.startSpan(ctx, "ResetTwoFactorSecret")
	defer span.End()

	user, err := s.currentUser(ctx)
	if err != nil {
		return false, err
	}

	reset := false
	err = s.mutateTwoFactor(ctx, user.ID, func(cur *entity.TwoFactorSecret) (*entity.TwoFactorSecret, error) {
		reset = false
		if entity.StateOf(cur) != entity.TwoFactorActive {
			return nil, nil
		}
		_, sealed, err := s.mintSecret(user)
		if err != nil {
			return nil, err
		}
		reset = cur.Rotate(sealed, s.clock.Now())
		return cur, nil
	})
	if err != nil {
		return false, err
	}

	if reset {
		slog.InfoContext(ctx, "totp secret rotated", "user_id", user.ID)
	}
	return reset, nil
}

func (s *Usecase) DeactivateTwoFactor(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "DeactivateTwoFactor")
	defer span.End()

	user, err := s.currentUser(ctx)
	if err != nil {
		return err
	}

	return s.mutateTwoFactor(ctx, user.ID, func(cur *entity.TwoFactorSecret) (*entity.TwoFactorSecret, error) {
		if cur == nil {
			return nil, errTwoFactorMissing
		}
		if !cur.Deactivate(s.clock.Now()) {
			return nil, nil
		}
		return cur, nil
	})
}

// ActivateTwoFactor re-enables a disabled enrollment under a fresh key, since
// the old key may have leaked while it was off. Active is a no-op.
func (s *Usecase) ActivateTwoFactor(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "ActivateTwoFactor")
	defer span.End()

	user, err := s.currentUser(ctx)
	if err != nil {
		return err
	}

	return s.mutateTwoFactor(ctx, user.ID, func(cur *entity.TwoFactorSecret) (*entity.TwoFactorSecret, error) {
		if cur == nil {
			return nil, errTwoFactorMissing
		}
		if cur.IsActive {
			return nil, nil
		}
		_, sealed, err := s.mintSecret(user)
		if err != nil {
			return nil, err
		}
		cur.Activate(sealed, s.clock.Now())
		return cur, nil
	})
}
