package usecase

import (
	"context"
	"log/slog"
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
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

// OTPIssuedEvent is handed to the broker after an OTP is committed.
type OTPIssuedEvent struct {
	ID                string
	UserID            int64
	Email             string
	Name              string
	Code              string
	Type              entity.VerificationType
	ExpirationMinutes int
}

// OTPRateLimit bounds how often codes are issued per user and type.
type OTPRateLimit struct {
	Cooldown time.Duration
	Max      int
	Window   time.Duration
}

type repoMessaging interface {
	PublishOTPIssued(ctx context.Context, msg OTPIssuedEvent) error
}

type repoLimiter interface {
	AllowIssue(ctx context.Context, userID int64, typ entity.VerificationType, p OTPRateLimit) (time.Duration, error)
}

type repoDB interface {
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	GetUserByID(ctx context.Context, id int64) (*entity.User, error)
	CreateUser(ctx context.Context, u entity.User, st entity.UserSettings) error

	IssueOTP(ctx context.Context, code entity.OtpCode) error
	GetLatestOTP(ctx context.Context, userID int64, typ entity.VerificationType) (*entity.OtpCode, error)
	ConsumeOTP(ctx context.Context, id, userID int64, verifyEmail bool) (bool, error)

	GetTwoFactorSecret(ctx context.Context, userID int64) (*entity.TwoFactorSecret, error)
	MutateTwoFactorSecret(ctx context.Context, userID int64, fn func(*entity.TwoFactorSecret) (*entity.TwoFactorSecret, error)) error

	CreateRefreshToken(ctx context.Context, t entity.RefreshToken) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*entity.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID int64, next entity.RefreshToken) error
	RevokeRefreshToken(ctx context.Context, userID int64, tokenHash string, at time.Time) (bool, error)
}

// roleAssigner is the part of the casbin enforcer used to group staff users.
type roleAssigner interface {
	AddGroupingPolicy(params ...any) (bool, error)
}

type Usecase struct {
	repoDB        repoDB
	repoMessaging repoMessaging
	repoLimiter   repoLimiter
	validator     validator.Validator
	cfg           config.Config
	hmac          hash.Hash
	bcrypt        hash.Hash
	mfaEncryptor  mfa.Encryptor
	uid           uid.NumberID
	eventID       uid.StringID
	totp          otp.OTP
	coder         otp.Coder
	clock         clock.Clocker
	jwt           jwt.JWT
	ins           instrument.Instrumentation
	roles         roleAssigner

	otpIssued   metric.Int64Counter
	otpVerified metric.Int64Counter
}

type Dependency struct {
	RepoDB        repoDB
	RepoMessaging repoMessaging
	RepoLimiter   repoLimiter
	Validator     validator.Validator
	Config        config.Config
	HMAC          hash.Hash
	Bcrypt        hash.Hash
	MFAEncryptor  mfa.Encryptor
	UID           uid.NumberID
	EventID       uid.StringID
	Totp          otp.OTP
	Coder         otp.Coder
	Clock         clock.Clocker
	JWT           jwt.JWT
	Instrument    instrument.Instrumentation
	Roles         roleAssigner
}

func New(dep Dependency) *Usecase {
	meter := dep.Instrument.Meter("identity.usecase")

	issued, err := meter.Int64Counter("identity_otp_issued_total", metric.WithDescription("OTP codes issued"))
	if err != nil {
		slog.Error("failed to create otp issued counter", "error", err)
		issued = metricnoop.Int64Counter{}
	}
	verified, err := meter.Int64Counter("identity_otp_verified_total", metric.WithDescription("OTP verification attempts by status"))
	if err != nil {
		slog.Error("failed to create otp verified counter", "error", err)
		verified = metricnoop.Int64Counter{}
	}

	return &Usecase{
		repoDB:        dep.RepoDB,
		repoMessaging: dep.RepoMessaging,
		repoLimiter:   dep.RepoLimiter,
		validator:     dep.Validator,
		cfg:           dep.Config,
		hmac:          dep.HMAC,
		bcrypt:        dep.Bcrypt,
		mfaEncryptor:  dep.MFAEncryptor,
		uid:           dep.UID,
		eventID:       dep.EventID,
		totp:          dep.Totp,
		coder:         dep.Coder,
		clock:         dep.Clock,
		jwt:           dep.JWT,
		ins:           dep.Instrument,
		roles:         dep.Roles,
		otpIssued:     issued,
		otpVerified:   verified,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("identity.usecase").Start(ctx, name)
}

func (s *Usecase) authenticated(ctx context.Context) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}
	return clm, nil
}

const defaultOTPExpirationMinutes = 10

// otpTTL is read per call so a config reload applies to the next issue.
func (s *Usecase) otpTTL() time.Duration {
	minutes := s.cfg.GetInt("modules.identity.otp.expiration_minutes")
	if minutes <= 0 {
		minutes = defaultOTPExpirationMinutes
	}
	return time.Duration(minutes) * time.Minute
}

func (s *Usecase) otpRateLimit() OTPRateLimit {
	return OTPRateLimit{
		Cooldown: s.cfg.GetSecond("modules.identity.otp.cooldown_seconds"),
		Max:      s.cfg.GetInt("modules.identity.otp.max_per_window"),
		Window:   s.cfg.GetSecond("modules.identity.otp.window_seconds"),
	}
}
