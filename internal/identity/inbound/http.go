package inbound

import (
	"context"
	"net/http"

	"github.com/shandysiswandi/gootp/internal/identity/entity"
	"github.com/shandysiswandi/gootp/internal/identity/usecase"
	"github.com/shandysiswandi/gootp/internal/pkg/router"
)

type uc interface {
	IssueOTP(ctx context.Context, in usecase.IssueOTPInput) (*usecase.IssueOTPOutput, error)
	VerifyOTP(ctx context.Context, in usecase.VerifyOTPInput) (*usecase.VerifyOTPOutput, error)

	EnrollTwoFactor(ctx context.Context) (*usecase.EnrollTwoFactorOutput, error)
	TwoFactorProvisioningURI(ctx context.Context) (string, error)
	TwoFactorQRCode(ctx context.Context) (*usecase.TwoFactorQRCodeOutput, error)
	UserTwoFactorQRCode(ctx context.Context, userID int64) (*usecase.TwoFactorQRCodeOutput, error)
	VerifyTwoFactorCode(ctx context.Context, in usecase.VerifyTwoFactorCodeInput) (bool, error)
	ResetTwoFactorSecret(ctx context.Context) (bool, error)
	ActivateTwoFactor(ctx context.Context) error
	DeactivateTwoFactor(ctx context.Context) error

	Login(ctx context.Context, in usecase.LoginInput) (*usecase.TokenOutput, error)
	Refresh(ctx context.Context, in usecase.RefreshInput) (*usecase.TokenOutput, error)
	Logout(ctx context.Context, in usecase.LogoutInput) error
	Profile(ctx context.Context) (*entity.User, error)
	CreateUser(ctx context.Context, in usecase.CreateUserInput) (*entity.User, error)
}

// PublicEndpoints are served without a bearer token.
var PublicEndpoints = router.Endpoints{
	http.MethodPost: {
		"/api/v1/identity/login",
		"/api/v1/identity/refresh",
		"/api/v1/identity/otp/send",
		"/api/v1/identity/otp/verify",
	},
}

type HTTPConfig struct {
	Enforcer router.Enforcer
	// Throttle guards the unauthenticated credential and OTP routes.
	Throttle router.RateLimit
}

func RegisterHTTPEndpoint(r *router.Router, uc uc, cfg HTTPConfig) {
	end := &HTTPEndpoint{uc: uc}
	throttle := router.RateLimitByIP(cfg.Throttle)

	// Authentication
	r.POST("/api/v1/identity/login", end.Login, throttle)
	r.POST("/api/v1/identity/refresh", end.Refresh)
	r.POST("/api/v1/identity/logout", end.Logout)
	r.GET("/api/v1/identity/my-profile", end.Profile)

	// One-time codes
	r.POST("/api/v1/identity/otp/send", end.SendOTP, throttle)
	r.POST("/api/v1/identity/otp/verify", end.VerifyOTP, throttle)

	// Two-factor (TOTP)
	r.POST("/api/v1/identity/2fa/enroll", end.EnrollTwoFactor)
	r.POST("/api/v1/identity/2fa/verify", end.VerifyTwoFactor)
	r.POST("/api/v1/identity/2fa/reset", end.ResetTwoFactor)
	r.POST("/api/v1/identity/2fa/activate", end.ActivateTwoFactor)
	r.POST("/api/v1/identity/2fa/deactivate", end.DeactivateTwoFactor)
	r.GET("/api/v1/identity/2fa/provisioning-uri", end.TwoFactorProvisioningURI)
	r.GET("/api/v1/identity/2fa/qr-code", end.TwoFactorQRCode)

	// Administration
	r.POST("/api/v1/identity/users", end.CreateUser, router.Authorize(cfg.Enforcer, "identity.users", "create"))
	r.GET("/api/v1/identity/users/:id/2fa/qr-code", end.UserTwoFactorQRCode, router.Authorize(cfg.Enforcer, "identity.2fa", "read"))
}
