package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a token pair", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		u := f.user(t, 1, "ada@example.com", "Secret123!")

		// Act
		out, err := f.uc.Login(ctx, LoginInput{Email: "ADA@example.com", Password: "Secret123!"})

		// Assert
		require.NoError(t, err)
		assert.NotEmpty(t, out.AccessToken)
		assert.Equal(t, 15*time.Minute, out.AccessExpiresIn)
		assert.Equal(t, 7*24*time.Hour, out.RefreshExpiresIn)
		require.Len(t, f.db.tokens, 1)
		for hash, tok := range f.db.tokens {
			assert.NotEqual(t, out.RefreshToken, hash, "only the digest is stored")
			assert.Equal(t, u.ID, tok.UserID)
			assert.Equal(t, testNow.Add(7*24*time.Hour), tok.ExpiresAt)
		}
	})

	tests := []struct {
		name string
		in   LoginInput
		code goerror.Code
	}{
		{"wrong password", LoginInput{Email: "ada@example.com", Password: "nope"}, goerror.CodeUnauthorized},
		{"unknown email", LoginInput{Email: "bob@example.com", Password: "Secret123!"}, goerror.CodeUnauthorized},
		{"missing password", LoginInput{Email: "ada@example.com"}, goerror.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.user(t, 1, "ada@example.com", "Secret123!")

			_, err := f.uc.Login(ctx, tt.in)

			requireCode(t, err, tt.code)
			assert.Empty(t, f.db.tokens)
		})
	}

	t.Run("active two factor requires a code", func(t *testing.T) {
		f := newFixture(t)
		u := f.user(t, 1, "ada@example.com", "Secret123!")
		enrolled, err := f.uc.EnrollTwoFactor(authCtx(u))
		require.NoError(t, err)

		_, err = f.uc.Login(ctx, LoginInput{Email: u.Email, Password: "Secret123!"})
		e := requireCode(t, err, goerror.CodeInvalidInput)
		assert.Contains(t, e.Fields(), "code")

		_, err = f.uc.Login(ctx, LoginInput{Email: u.Email, Password: "Secret123!", Code: "abcdef"})
		requireCode(t, err, goerror.CodeUnauthorized)

		out, err := f.uc.Login(ctx, LoginInput{Email: u.Email, Password: "Secret123!", Code: f.currentCode(t, enrolled.Secret)})
		require.NoError(t, err)
		assert.NotEmpty(t, out.RefreshToken)
	})

	t.Run("disabled two factor is skipped", func(t *testing.T) {
		f := newFixture(t)
		u := f.user(t, 1, "ada@example.com", "Secret123!")
		_, err := f.uc.EnrollTwoFactor(authCtx(u))
		require.NoError(t, err)
		require.NoError(t, f.uc.DeactivateTwoFactor(authCtx(u)))

		_, err = f.uc.Login(ctx, LoginInput{Email: u.Email, Password: "Secret123!"})
		assert.NoError(t, err)
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, 1, "ada@example.com", "Secret123!")

	login, err := f.uc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "Secret123!"})
	require.NoError(t, err)

	next, err := f.uc.Refresh(ctx, RefreshInput{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, next.RefreshToken)

	_, err = f.uc.Refresh(ctx, RefreshInput{RefreshToken: login.RefreshToken})
	e := requireCode(t, err, goerror.CodeUnauthorized)
	assert.Equal(t, "Invalid or expired token", e.Msg())

	_, err = f.uc.Refresh(ctx, RefreshInput{RefreshToken: "garbage"})
	requireCode(t, err, goerror.CodeUnauthorized)

	f.clock.Advance(8 * 24 * time.Hour)
	_, err = f.uc.Refresh(ctx, RefreshInput{RefreshToken: next.RefreshToken})
	requireCode(t, err, goerror.CodeUnauthorized)

	_, err = f.uc.Refresh(ctx, RefreshInput{})
	requireCode(t, err, goerror.CodeInvalidInput)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, 1, "ada@example.com", "Secret123!")
	other := f.user(t, 2, "bob@example.com", "Secret123!")

	login, err := f.uc.Login(ctx, LoginInput{Email: u.Email, Password: "Secret123!"})
	require.NoError(t, err)

	err = f.uc.Logout(authCtx(other), LogoutInput{RefreshToken: login.RefreshToken})
	requireCode(t, err, goerror.CodeUnauthorized)

	require.NoError(t, f.uc.Logout(authCtx(u), LogoutInput{RefreshToken: login.RefreshToken}))

	err = f.uc.Logout(authCtx(u), LogoutInput{RefreshToken: login.RefreshToken})
	e := requireCode(t, err, goerror.CodeUnauthorized)
	assert.Equal(t, "Invalid or expired token", e.Msg())

	_, err = f.uc.Refresh(ctx, RefreshInput{RefreshToken: login.RefreshToken})
	requireCode(t, err, goerror.CodeUnauthorized)

	err = f.uc.Logout(ctx, LogoutInput{RefreshToken: login.RefreshToken})
	requireCode(t, err, goerror.CodeUnauthorized)
}

func TestProfile(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, 1, "ada@example.com", "Secret123!")

	got, err := f.uc.Profile(authCtx(u))
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, "Ada", got.FirstName)

	_, err = f.uc.Profile(context.Background())
	requireCode(t, err, goerror.CodeUnauthorized)
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user, settings and staff role", func(t *testing.T) {
		f := newFixture(t)

		u, err := f.uc.CreateUser(ctx, CreateUserInput{
			Username: "ada",
			Email:    " Ada@Example.com ",
			Password: "Secret123!",
			IsStaff:  true,
		})

		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", u.Email)
		assert.True(t, f.bcrypt.Verify(u.Password, "Secret123!"))
		assert.Equal(t, "en", f.db.settings[u.ID].Language)
		assert.Equal(t, "UTC", f.db.settings[u.ID].Timezone)
		assert.Equal(t, [][]any{{"1001", RoleAdmin}}, f.roles.grouped)
	})

	t.Run("duplicate is a conflict", func(t *testing.T) {
		f := newFixture(t)
		f.user(t, 1, "ada@example.com", "Secret123!")

		_, err := f.uc.CreateUser(ctx, CreateUserInput{Username: "other", Email: "ada@example.com", Password: "Secret123!"})

		requireCode(t, err, goerror.CodeConflict)
		assert.Empty(t, f.roles.grouped)
	})

	t.Run("invalid input", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.uc.CreateUser(ctx, CreateUserInput{Username: "a", Email: "nope", Password: "short"})

		requireCode(t, err, goerror.CodeInvalidInput)
		assert.Empty(t, f.db.users)
	})
}
