package usecase

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/gootp/internal/identity/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
)

const (
	refreshTokenBytes          = 32
	defaultRefreshTokenTTLDays = 7
)

var (
	errInvalidCredential = goerror.NewBusiness("invalid email or password", goerror.CodeUnauthorized)
	errInvalidToken      = goerror.NewBusiness("Invalid or expired token", goerror.CodeUnauthorized)
	errTwoFactorRequired = goerror.NewInvalidInput(nil, "code", "Two-factor code is required.")
	errTwoFactorInvalid  = goerror.NewBusiness("invalid two-factor code", goerror.CodeUnauthorized)
)

type LoginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
	Code     string
}

type TokenOutput struct {
	AccessToken      string
	AccessExpiresIn  time.Duration
	RefreshToken     string
	RefreshExpiresIn time.Duration
}

func (s *Usecase) Login(ctx context.Context, in LoginInput) (*TokenOutput, error) {
	ctx, span := s.startSpan(ctx, "Login")
	defer span.End()

	in.Email = strings.TrimSpace(in.Email)
	in.Code = strings.TrimSpace(in.Code)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	user, err := s.repoDB.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "login for unknown email", "email", in.Email)
		return nil, errInvalidCredential
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !s.bcrypt.Verify(user.Password, in.Password) {
		slog.WarnContext(ctx, "login with wrong password", "user_id", user.ID)
		return nil, errInvalidCredential
	}

	rec, err := s.loadTwoFactor(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if entity.StateOf(rec) == entity.TwoFactorActive {
		if in.Code == "" {
			return nil, errTwoFactorRequired
		}
		ok, err := s.verifyTOTP(ctx, user.ID, in.Code, "")
		if err != nil {
			return nil, err
		}
		if !ok {
			slog.WarnContext(ctx, "login with wrong two factor code", "user_id", user.ID)
			return nil, errTwoFactorInvalid
		}
	}

	out, next, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.repoDB.CreateRefreshToken(ctx, next); err != nil {
		slog.ErrorContext(ctx, "failed to repo create refresh token", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return out, nil
}

func (s *Usecase) refreshTTL() time.Duration {
	ttl := s.cfg.GetDay("modules.identity.refresh_token_ttl_days")
	if ttl <= 0 {
		ttl = defaultRefreshTokenTTLDays * 24 * time.Hour
	}
	return ttl
}

// issueTokens signs an access token and mints a refresh token. Only the hash
// of the refresh token is returned for storage.
func (s *Usecase) issueTokens(ctx context.Context, user *entity.User) (*TokenOutput, entity.RefreshToken, error) {
	access, err := s.jwt.Generate(user.ID, user.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate access token", "user_id", user.ID, "error", err)
		return nil, entity.RefreshToken{}, goerror.NewServer(err)
	}

	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		slog.ErrorContext(ctx, "failed to read random refresh token", "error", err)
		return nil, entity.RefreshToken{}, goerror.NewServer(err)
	}
	refresh := base64.RawURLEncoding.EncodeToString(buf)

	digest, err := s.hmac.Hash(refresh)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash refresh token", "error", err)
		return nil, entity.RefreshToken{}, goerror.NewServer(err)
	}

	now := s.clock.Now()
	ttl := s.refreshTTL()
	next := entity.RefreshToken{
		ID:        s.uid.Generate(),
		UserID:    user.ID,
		TokenHash: string(digest),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	return &TokenOutput{
		AccessToken:      access,
		AccessExpiresIn:  s.jwt.TTL(),
		RefreshToken:     refresh,
		RefreshExpiresIn: ttl,
	}, next, nil
}

func (s *Usecase) hashRefreshToken(ctx context.Context, token string) (string, error) {
	digest, err := s.hmac.Hash(token)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash refresh token", "error", err)
		return "", goerror.NewServer(err)
	}
	return string(digest), nil
}
