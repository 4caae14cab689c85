package usecase

import (
	"context"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/gootp/internal/identity/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/clock"
	"github.com/shandysiswandi/gootp/internal/pkg/config"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
	"github.com/shandysiswandi/gootp/internal/pkg/hash"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/shandysiswandi/gootp/internal/pkg/jwt"
	"github.com/shandysiswandi/gootp/internal/pkg/mfa"
	"github.com/shandysiswandi/gootp/internal/pkg/otp"
	"github.com/shandysiswandi/gootp/internal/pkg/uid"
	"github.com/shandysiswandi/gootp/internal/pkg/validator"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// fakeDB keeps rows in memory and mirrors the SQL semantics the usecases
// depend on: one unused code per key, CAS consumption and row locking.
type fakeDB struct {
	mu        sync.Mutex
	users     map[int64]*entity.User
	settings  map[int64]entity.UserSettings
	otps      []entity.OtpCode
	twoFactor map[int64]*entity.TwoFactorSecret
	tokens    map[string]*entity.RefreshToken

	issueConflicts int
	tfConflicts    int
	err            error
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users:     map[int64]*entity.User{},
		settings:  map[int64]entity.UserSettings{},
		twoFactor: map[int64]*entity.TwoFactorSecret{},
		tokens:    map[string]*entity.RefreshToken{},
	}
}

func (f *fakeDB) addUser(u entity.User) *entity.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = &u
	return &u
}

func (f *fakeDB) GetUserByEmail(_ context.Context, email string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, goerror.ErrNotFound
}

func (f *fakeDB) GetUserByID(_ context.Context, id int64) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeDB) CreateUser(_ context.Context, u entity.User, st entity.UserSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cur := range f.users {
		if cur.Username == u.Username || strings.EqualFold(cur.Email, u.Email) {
			return goerror.ErrConflict
		}
	}
	f.users[u.ID] = &u
	f.settings[u.ID] = st
	return nil
}

func (f *fakeDB) IssueOTP(_ context.Context, code entity.OtpCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.issueConflicts > 0 {
		f.issueConflicts--
		return goerror.ErrConflict
	}
	for i := range f.otps {
		if f.otps[i].UserID == code.UserID && f.otps[i].Type == code.Type {
			f.otps[i].IsUsed = true
		}
	}
	f.otps = append(f.otps, code)
	return nil
}

func (f *fakeDB) GetLatestOTP(_ context.Context, userID int64, typ entity.VerificationType) (*entity.OtpCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *entity.OtpCode
	for i := range f.otps {
		c := f.otps[i]
		if c.UserID != userID || c.Type != typ {
			continue
		}
		if best == nil || (best.IsUsed && !c.IsUsed) || (best.IsUsed == c.IsUsed && !c.CreatedAt.Before(best.CreatedAt)) {
			best = &c
		}
	}
	if best == nil {
		return nil, goerror.ErrNotFound
	}
	return best, nil
}

func (f *fakeDB) ConsumeOTP(_ context.Context, id, userID int64, verifyEmail bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.otps {
		if f.otps[i].ID != id {
			continue
		}
		if f.otps[i].IsUsed {
			return false, nil
		}
		f.otps[i].IsUsed = true
		if verifyEmail {
			f.users[userID].IsEmailVerified = true
		}
		return true, nil
	}
	return false, nil
}

func (f *fakeDB) unusedOTPs(userID int64, typ entity.VerificationType) []entity.OtpCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.OtpCode
	for _, c := range f.otps {
		if c.UserID == userID && c.Type == typ && !c.IsUsed {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeDB) GetTwoFactorSecret(_ context.Context, userID int64) (*entity.TwoFactorSecret, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.twoFactor[userID]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	cp := *rec
	cp.SecretKey = slices.Clone(rec.SecretKey)
	return &cp, nil
}

func (f *fakeDB) MutateTwoFactorSecret(_ context.Context, userID int64, fn func(*entity.TwoFactorSecret) (*entity.TwoFactorSecret, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var cur *entity.TwoFactorSecret
	if rec, ok := f.twoFactor[userID]; ok {
		cp := *rec
		cp.SecretKey = slices.Clone(rec.SecretKey)
		cur = &cp
	}

	next, err := fn(cur)
	if err != nil || next == nil {
		return err
	}
	if cur == nil && f.tfConflicts > 0 {
		f.tfConflicts--
		return goerror.ErrConflict
	}
	f.twoFactor[userID] = next
	return nil
}

func (f *fakeDB) CreateRefreshToken(_ context.Context, t entity.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[t.TokenHash] = &t
	return nil
}

func (f *fakeDB) GetRefreshToken(_ context.Context, tokenHash string) (*entity.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[tokenHash]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeDB) RotateRefreshToken(_ context.Context, oldID int64, next entity.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.ID == oldID && t.RevokedAt == nil {
			at := next.CreatedAt
			t.RevokedAt = &at
			f.tokens[next.TokenHash] = &next
			return nil
		}
	}
	return goerror.ErrNotFound
}

func (f *fakeDB) RevokeRefreshToken(_ context.Context, userID int64, tokenHash string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[tokenHash]
	if !ok || t.UserID != userID || !t.Usable(at) {
		return false, nil
	}
	t.RevokedAt = &at
	return true, nil
}

type fakeMessaging struct {
	mu     sync.Mutex
	events []OTPIssuedEvent
	err    error
}

func (f *fakeMessaging) PublishOTPIssued(_ context.Context, msg OTPIssuedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, msg)
	return nil
}

type fakeLimiter struct {
	wait time.Duration
	err  error
}

func (f *fakeLimiter) AllowIssue(context.Context, int64, entity.VerificationType, OTPRateLimit) (time.Duration, error) {
	return f.wait, f.err
}

type fakeRoles struct {
	grouped [][]any
}

func (f *fakeRoles) AddGroupingPolicy(params ...any) (bool, error) {
	f.grouped = append(f.grouped, params)
	return true, nil
}

type seqID struct {
	mu sync.Mutex
	n  int64
}

func (s *seqID) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return 1000 + s.n
}

type fixedCoder struct {
	codes []string
}

func (f *fixedCoder) Code() (string, error) {
	if len(f.codes) == 0 {
		return "123456", nil
	}
	c := f.codes[0]
	f.codes = f.codes[1:]
	return c, nil
}

// fakeConfig answers the keys read by the usecases. Other methods panic.
type fakeConfig struct {
	config.Config
	values map[string]any
}

func (c fakeConfig) GetInt(key string) int {
	v, _ := c.values[key].(int)
	return v
}

func (c fakeConfig) GetString(key string) string {
	v, _ := c.values[key].(string)
	return v
}

func (c fakeConfig) GetSecond(key string) time.Duration {
	return time.Duration(c.GetInt(key)) * time.Second
}

func (c fakeConfig) GetDay(key string) time.Duration {
	return time.Duration(c.GetInt(key)) * 24 * time.Hour
}

type fixture struct {
	uc        *Usecase
	db        *fakeDB
	mq        *fakeMessaging
	limiter   *fakeLimiter
	roles     *fakeRoles
	clock     *clock.Fixed
	totp      *otp.TOTP
	coder     *fixedCoder
	bcrypt    *hash.Bcrypt
	encryptor *mfa.AESGCM
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	totp, err := otp.NewTOTP(otp.Config{Issuer: "gootp"})
	require.NoError(t, err)

	clk := clock.NewFixed(testNow)

	signer, err := jwt.NewHS512(jwt.Config{
		Secret: []byte("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"),
		Issuer: "gootp",
		TTL:    15 * time.Minute,
		Clock:  clk,
		UUID:   uid.NewUUID(),
	})
	require.NoError(t, err)

	f := &fixture{
		db:        newFakeDB(),
		mq:        &fakeMessaging{},
		limiter:   &fakeLimiter{},
		roles:     &fakeRoles{},
		clock:     clk,
		totp:      totp,
		coder:     &fixedCoder{},
		bcrypt:    hash.NewBcrypt(bcrypt.MinCost, "pepper"),
		encryptor: mfa.NewAESGCM(mfa.StaticKeyProvider{KeyBytes: []byte("0123456789abcdef0123456789abcdef")}),
	}

	f.uc = New(Dependency{
		RepoDB:        f.db,
		RepoMessaging: f.mq,
		RepoLimiter:   f.limiter,
		Validator:     v,
		Config: fakeConfig{values: map[string]any{
			"modules.identity.otp.expiration_minutes": 10,
			"modules.identity.refresh_token_ttl_days": 7,
			"app.env":                                 "production",
		}},
		HMAC:         hash.NewHMACSHA256("refresh-secret"),
		Bcrypt:       f.bcrypt,
		MFAEncryptor: f.encryptor,
		UID:          &seqID{},
		EventID:      uid.NewULID(),
		Totp:         totp,
		Coder:        f.coder,
		Clock:        clk,
		JWT:          signer,
		Instrument:   instrument.NewNoop(),
		Roles:        f.roles,
	})

	return f
}

// user stores a user with the given plaintext password.
func (f *fixture) user(t *testing.T, id int64, email, password string) *entity.User {
	t.Helper()

	hashed, err := f.bcrypt.Hash(password)
	require.NoError(t, err)

	return f.db.addUser(entity.User{
		ID:        id,
		Username:  "user" + email[:1],
		Email:     email,
		Password:  string(hashed),
		FirstName: "Ada",
		LastName:  "Lovelace",
		CreatedAt: testNow,
		UpdatedAt: testNow,
	})
}

func authCtx(u *entity.User) context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{UserID: u.ID, UserEmail: u.Email})
}

func requireCode(t *testing.T, err error, code goerror.Code) *goerror.Error {
	t.Helper()

	e, ok := goerror.As(err)
	require.True(t, ok, "expected *goerror.Error, got %v", err)
	require.Equal(t, code, e.Code())
	return e
}
