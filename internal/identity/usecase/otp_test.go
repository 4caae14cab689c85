package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/gootp/internal/identity/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueOTP(t *testing.T) {
	ctx := context.Background()

	t.Run("issues and publishes", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		u := f.user(t, 1, "ada@example.com", "Secret123!")
		f.coder.codes = []string{"482913"}

		// Act
		out, err := f.uc.IssueOTP(ctx, IssueOTPInput{Email: "ada@example.com", VerificationType: "email"})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, int64(600), out.TTLSeconds)

		active := f.db.unusedOTPs(u.ID, entity.VerificationEmail)
		require.Len(t, active, 1)
		assert.Equal(t, "482913", active[0].Code)
		assert.Equal(t, testNow.Add(10*time.Minute), active[0].ExpiresAt)

		require.Len(t, f.mq.events, 1)
		ev := f.mq.events[0]
		assert.Equal(t, "482913", ev.Code)
		assert.Equal(t, "Ada Lovelace", ev.Name)
		assert.Equal(t, 10, ev.ExpirationMinutes)
		assert.NotEmpty(t, ev.ID)
	})

	t.Run("reissue retires the previous code", func(t *testing.T) {
		f := newFixture(t)
		u := f.user(t, 1, "ada@example.com", "Secret123!")
		f.coder.codes = []string{"111111", "222222"}

		_, err := f.uc.IssueOTP(ctx, IssueOTPInput{Email: u.Email, VerificationType: "password"})
		require.NoError(t, err)
		_, err = f.uc.IssueOTP(ctx, IssueOTPInput{Email: u.Email, VerificationType: "password"})
		require.NoError(t, err)

		active := f.db.unusedOTPs(u.ID, entity.VerificationPassword)
		require.Len(t, active, 1)
		assert.Equal(t, "222222", active[0].Code)
	})

	t.Run("concurrent conflicts are retried", func(t *testing.T) {
		f := newFixture(t)
		u := f.user(t, 1, "ada@example.com", "Secret123!")
		f.db.issueConflicts = 3

		_, err := f.uc.IssueOTP(ctx, IssueOTPInput{Email: u.Email, VerificationType: "password"})
		require.NoError(t, err)
		assert.Len(t, f.db.unusedOTPs(u.ID, entity.VerificationPassword), 1)
	})

	t.Run("persistent conflict is a conflict error", func(t *testing.T) {
		f := newFixture(t)
		u := f.user(t, 1, "ada@example.com", "Secret123!")
		f.db.issueConflicts = 100

		_, err := f.uc.IssueOTP(ctx, IssueOTPInput{Email: u.Email, VerificationType: "password"})
		e, ok := goerror.As(err)
		require.True(t, ok)
		assert.Equal(t, goerror.CodeConflict, e.Code())
		assert.Empty(t, f.db.unusedOTPs(u.ID, entity.VerificationPassword))
	})

	t.Run("publish failure does not fail the request", func(t *testing.T) {
		f := newFixture(t)
		f.user(t, 1, "ada@example.com", "Secret123!")
		f.mq.err = errors.New("broker down")

		_, err := f.uc.IssueOTP(ctx, IssueOTPInput{Email: "ada@example.com", VerificationType: "email"})
		assert.NoError(t, err)
	})

	t.Run("limiter error fails open", func(t *testing.T) {
		f := newFixture(t)
		f.user(t, 1, "ada@example.com", "Secret123!")
		f.limiter.err = errors.New("redis down")

		_, err := f.uc.IssueOTP(ctx, IssueOTPInput{Email: "ada@example.com", VerificationType: "email"})
		assert.NoError(t, err)
	})

	t.Run("rate limited", func(t *testing.T) {
		f := newFixture(t)
		f.user(t, 1, "ada@example.com", "Secret123!")
		f.limiter.wait = 1500 * time.Millisecond

		_, err := f.uc.IssueOTP(ctx, IssueOTPInput{Email: "ada@example.com", VerificationType: "email"})
		e := requireCode(t, err, goerror.CodeTooManyRequest)
		assert.Equal(t, "Too many requests. Try again in 2 seconds.", e.Msg())
		assert.Empty(t, f.mq.events)
	})

	tests := []struct {
		name   string
		in     IssueOTPInput
		code   goerror.Code
		fields map[string]string
	}{
		{
			name:   "two factor is not mailable",
			in:     IssueOTPInput{Email: "ada@example.com", VerificationType: "two_factor"},
			code:   goerror.CodeInvalidInput,
			fields: map[string]string{"verification_type": "Invalid verification"},
		},
		{
			name:   "unknown type",
			in:     IssueOTPInput{Email: "ada@example.com", VerificationType: "sms"},
			code:   goerror.CodeInvalidInput,
			fields: map[string]string{"verification_type": "Invalid verification"},
		},
		{
			name:   "missing email for email verification",
			in:     IssueOTPInput{VerificationType: "email"},
			code:   goerror.CodeInvalidInput,
			fields: map[string]string{"email": "Email is required for email verification."},
		},
		{
			name:   "missing email for password",
			in:     IssueOTPInput{VerificationType: "password"},
			code:   goerror.CodeInvalidInput,
			fields: map[string]string{"email": "Email is required."},
		},
		{
			name:   "email must match exactly",
			in:     IssueOTPInput{Email: "ADA@example.com", VerificationType: "email"},
			code:   goerror.CodeInvalidInput,
			fields: map[string]string{"email": "Invalid email address."},
		},
		{
			name: "unknown user",
			in:   IssueOTPInput{Email: "bob@example.com", VerificationType: "email"},
			code: goerror.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.user(t, 1, "ada@example.com", "Secret123!")

			_, err := f.uc.IssueOTP(ctx, tt.in)

			e := requireCode(t, err, tt.code)
			if tt.fields != nil {
				assert.Equal(t, tt.fields, e.Fields())
			}
			assert.Empty(t, f.db.otps)
		})
	}

	t.Run("already verified", func(t *testing.T) {
		f := newFixture(t)
		u := f.user(t, 1, "ada@example.com", "Secret123!")
		f.db.users[u.ID].IsEmailVerified = true

		_, err := f.uc.IssueOTP(ctx, IssueOTPInput{Email: u.Email, VerificationType: "email"})
		e := requireCode(t, err, goerror.CodeInvalidInput)
		assert.Equal(t, map[string]string{"email": "Email already verified."}, e.Fields())
	})
}

func TestVerifyOTP(t *testing.T) {
	ctx := context.Background()

	issue := func(t *testing.T, f *fixture, typ string) {
		t.Helper()
		f.coder.codes = []string{"482913"}
		_, err := f.uc.IssueOTP(ctx, IssueOTPInput{Email: "ada@example.com", VerificationType: typ})
		require.NoError(t, err)
	}

	t.Run("verified marks used and verifies email", func(t *testing.T) {
		f := newFixture(t)
		u := f.user(t, 1, "ada@example.com", "Secret123!")
		issue(t, f, "email")

		out, err := f.uc.VerifyOTP(ctx, VerifyOTPInput{Email: u.Email, VerificationType: "email", Code: "482913"})

		require.NoError(t, err)
		assert.Equal(t, entity.StatusVerified, out.Status)
		assert.Equal(t, "482913", out.Code)
		assert.True(t, f.db.users[u.ID].IsEmailVerified)
		assert.Empty(t, f.db.unusedOTPs(u.ID, entity.VerificationEmail))
	})

	t.Run("replay is used", func(t *testing.T) {
		f := newFixture(t)
		u := f.user(t, 1, "ada@example.com", "Secret123!")
		issue(t, f, "password")

		in := VerifyOTPInput{Email: u.Email, VerificationType: "password", Code: "482913"}
		first, err := f.uc.VerifyOTP(ctx, in)
		require.NoError(t, err)
		second, err := f.uc.VerifyOTP(ctx, in)
		require.NoError(t, err)

		assert.Equal(t, entity.StatusVerified, first.Status)
		assert.Equal(t, entity.StatusUsed, second.Status)
		assert.False(t, f.db.users[u.ID].IsEmailVerified, "password codes leave the email flag alone")
	})

	t.Run("expired", func(t *testing.T) {
		f := newFixture(t)
		u := f.user(t, 1, "ada@example.com", "Secret123!")
		issue(t, f, "email")
		f.clock.Advance(10*time.Minute + time.Second)

		out, err := f.uc.VerifyOTP(ctx, VerifyOTPInput{Email: u.Email, VerificationType: "email", Code: "482913"})

		require.NoError(t, err)
		assert.Equal(t, entity.StatusExpired, out.Status)
		assert.Len(t, f.db.unusedOTPs(u.ID, entity.VerificationEmail), 1)
	})

	t.Run("invalid", func(t *testing.T) {
		f := newFixture(t)
		u := f.user(t, 1, "ada@example.com", "Secret123!")
		issue(t, f, "email")

		out, err := f.uc.VerifyOTP(ctx, VerifyOTPInput{Email: u.Email, VerificationType: "email", Code: "000000"})

		require.NoError(t, err)
		assert.Equal(t, entity.StatusInvalid, out.Status)
	})

	t.Run("no code issued", func(t *testing.T) {
		f := newFixture(t)
		u := f.user(t, 1, "ada@example.com", "Secret123!")

		_, err := f.uc.VerifyOTP(ctx, VerifyOTPInput{Email: u.Email, VerificationType: "email", Code: "482913"})

		e := requireCode(t, err, goerror.CodeInvalidFormat)
		assert.Equal(t, "invalid code", e.Msg())
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.uc.VerifyOTP(ctx, VerifyOTPInput{Email: "bob@example.com", VerificationType: "email", Code: "482913"})
		requireCode(t, err, goerror.CodeNotFound)
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.uc.VerifyOTP(ctx, VerifyOTPInput{VerificationType: "email"})
		requireCode(t, err, goerror.CodeInvalidInput)
	})
}
