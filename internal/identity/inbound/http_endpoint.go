package inbound

import (
	"github.com/shandysiswandi/gootp/internal/identity/entity"
	"github.com/shandysiswandi/gootp/internal/identity/usecase"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
	"github.com/shandysiswandi/gootp/internal/pkg/router"
)

// HTTPEndpoint exposes the OTP, two-factor and account handlers.
type HTTPEndpoint struct {
	uc uc
}

var verifyFailures = map[entity.VerificationStatus]string{
	entity.StatusInvalid: "invalid code",
	entity.StatusExpired: "code expired",
	entity.StatusUsed:    "code already used",
}

// SendOTP issues a one-time code and queues it for email delivery.
// @Summary Send OTP
// @Description Issues a 6 digit code for email verification or password reset. Any earlier unused code of the same type stops working.
// @Tags Identity, OTP
// @Accept json
// @Produce json
// @Param request body SendOTPRequest true "OTP request"
// @Success 200 {object} router.successResponse{data=SendOTPResponse} "Code issued"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 404 {object} router.errorResponse "User not found"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 429 {object} router.errorResponse "Too many requests"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/identity/otp/send [post]
func (h *HTTPEndpoint) SendOTP(r *router.Request) (any, error) {
	var req SendOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.IssueOTP(r.Context(), usecase.IssueOTPInput{
		Email:            req.Email,
		VerificationType: req.VerificationType,
	})
	if err != nil {
		return nil, err
	}

	return SendOTPResponse{ExpiresIn: resp.TTLSeconds}, nil
}

// VerifyOTP checks a mailed code. A code can be verified once.
// @Summary Verify OTP
// @Description Verifies a mailed code. Email verification codes also mark the address verified.
// @Tags Identity, OTP
// @Accept json
// @Produce json
// @Param request body VerifyOTPRequest true "Verification payload"
// @Success 200 {object} router.successResponse{data=VerifyOTPResponse} "Code verified"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 404 {object} router.errorResponse "User not found"
// @Failure 422 {object} router.errorResponse "invalid code, code expired or code already used"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/identity/otp/verify [post]
func (h *HTTPEndpoint) VerifyOTP(r *router.Request) (any, error) {
	var req VerifyOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.VerifyOTP(r.Context(), usecase.VerifyOTPInput{
		Email:            req.Email,
		VerificationType: req.VerificationType,
		Code:             req.Code,
	})
	if err != nil {
		return nil, err
	}

	if msg, failed := verifyFailures[resp.Status]; failed {
		return nil, goerror.NewBusiness(msg, goerror.CodeInvalidInput)
	}

	return VerifyOTPResponse{
		Email:            resp.Email,
		Code:             resp.Code,
		VerificationType: resp.VerificationType.String(),
		Status:           resp.Status.String(),
	}, nil
}

func tokenResponse(out *usecase.TokenOutput) TokenResponse {
	return TokenResponse{
		AccessToken:      out.AccessToken,
		AccessExpiresIn:  int64(out.AccessExpiresIn.Seconds()),
		RefreshToken:     out.RefreshToken,
		RefreshExpiresIn: int64(out.RefreshExpiresIn.Seconds()),
		TokenType:        "Bearer",
	}
}

// Login authenticates with email and password, plus a TOTP code when
// two-factor is active.
// @Summary Authenticate user
// @Tags Identity, Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login payload"
// @Success 200 {object} router.successResponse{data=TokenResponse} "Token pair"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Invalid credentials"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 429 {object} router.errorResponse "Too many requests"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/identity/login [post]
func (h *HTTPEndpoint) Login(r *router.Request) (any, error) {
	var req LoginRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Login(r.Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Code:     req.Code,
	})
	if err != nil {
		return nil, err
	}

	return tokenResponse(resp), nil
}

// Refresh rotates a refresh token.
// @Summary Refresh access token
// @Tags Identity, Authentication
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token payload"
// @Success 200 {object} router.successResponse{data=TokenResponse} "Token pair"
// @Failure 401 {object} router.errorResponse "Invalid or expired token"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/identity/refresh [post]
func (h *HTTPEndpoint) Refresh(r *router.Request) (any, error) {
	var req RefreshRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Refresh(r.Context(), usecase.RefreshInput{RefreshToken: req.RefreshToken})
	if err != nil {
		return nil, err
	}

	return tokenResponse(resp), nil
}

// Logout revokes a refresh token of the caller.
// @Summary Logout
// @Tags Identity, Authentication
// @Accept json
// @Security BearerAuth
// @Param request body LogoutRequest true "Refresh token to revoke"
// @Success 204 "No Content"
// @Failure 401 {object} router.errorResponse "Invalid or expired token"
// @Router /api/v1/identity/logout [post]
func (h *HTTPEndpoint) Logout(r *router.Request) (any, error) {
	var req LogoutRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.Logout(r.Context(), usecase.LogoutInput{RefreshToken: req.RefreshToken}); err != nil {
		return nil, err
	}

	return LogoutResponse{}, nil
}

// Profile returns the authenticated user.
// @Summary My profile
// @Tags Identity, Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} router.successResponse{data=ProfileResponse} "Profile"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Router /api/v1/identity/my-profile [get]
func (h *HTTPEndpoint) Profile(r *router.Request) (any, error) {
	user, err := h.uc.Profile(r.Context())
	if err != nil {
		return nil, err
	}

	return ProfileResponse{
		ID:        formatID(user.ID),
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}

// CreateUser provisions an account together with its default settings.
// @Summary Create user
// @Tags Identity, Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateUserRequest true "User payload"
// @Success 201 {object} router.successResponse{data=CreateUserResponse} "User created"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Failure 409 {object} router.errorResponse "Username or email already exists"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/identity/users [post]
func (h *HTTPEndpoint) CreateUser(r *router.Request) (any, error) {
	var req CreateUserRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	user, err := h.uc.CreateUser(r.Context(), usecase.CreateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsStaff:   req.IsStaff,
	})
	if err != nil {
		return nil, err
	}

	return CreateUserResponse{ID: formatID(user.ID), Username: user.Username, Email: user.Email}, nil
}

// EnrollTwoFactor provisions a TOTP secret on first call.
// @Summary Enroll two-factor
// @Description Idempotent. The secret and provisioning URI are only returned while two-factor is active.
// @Tags Identity, Two-Factor
// @Produce json
// @Security BearerAuth
// @Success 200 {object} router.successResponse{data=EnrollTwoFactorResponse} "Enrollment"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Router /api/v1/identity/2fa/enroll [post]
func (h *HTTPEndpoint) EnrollTwoFactor(r *router.Request) (any, error) {
	resp, err := h.uc.EnrollTwoFactor(r.Context())
	if err != nil {
		return nil, err
	}

	return EnrollTwoFactorResponse{State: resp.State.String(), Secret: resp.Secret, URI: resp.URI}, nil
}

// TwoFactorProvisioningURI returns the otpauth URI of the stored secret.
// @Summary Two-factor provisioning URI
// @Tags Identity, Two-Factor
// @Produce json
// @Security BearerAuth
// @Success 200 {object} router.successResponse{data=ProvisioningURIResponse} "URI"
// @Failure 404 {object} router.errorResponse "Two-factor authentication is not set up"
// @Router /api/v1/identity/2fa/provisioning-uri [get]
func (h *HTTPEndpoint) TwoFactorProvisioningURI(r *router.Request) (any, error) {
	uri, err := h.uc.TwoFactorProvisioningURI(r.Context())
	if err != nil {
		return nil, err
	}

	return ProvisioningURIResponse{URI: uri}, nil
}

// TwoFactorQRCode returns the secret and its QR image, both empty unless active.
// @Summary Two-factor QR code
// @Tags Identity, Two-Factor
// @Produce json
// @Security BearerAuth
// @Success 200 {object} router.successResponse{data=QRCodeResponse} "QR code"
// @Router /api/v1/identity/2fa/qr-code [get]
func (h *HTTPEndpoint) TwoFactorQRCode(r *router.Request) (any, error) {
	resp, err := h.uc.TwoFactorQRCode(r.Context())
	if err != nil {
		return nil, err
	}

	return QRCodeResponse{Secret: resp.Secret, QRCode: resp.Image}, nil
}

// UserTwoFactorQRCode is the administrative QR lookup.
// @Summary User two-factor QR code
// @Tags Identity, Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} router.successResponse{data=QRCodeResponse} "QR code"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Failure 404 {object} router.errorResponse "User not found"
// @Router /api/v1/identity/users/{id}/2fa/qr-code [get]
func (h *HTTPEndpoint) UserTwoFactorQRCode(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.UserTwoFactorQRCode(r.Context(), id)
	if err != nil {
		return nil, err
	}

	return QRCodeResponse{Secret: resp.Secret, QRCode: resp.Image}, nil
}

// VerifyTwoFactor checks an authenticator code.
// @Summary Verify two-factor code
// @Description When secret is given it is used instead of the stored one.
// @Tags Identity, Two-Factor
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body VerifyTwoFactorRequest true "Code"
// @Success 200 {object} router.successResponse{data=VerifyTwoFactorResponse} "Result"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/identity/2fa/verify [post]
func (h *HTTPEndpoint) VerifyTwoFactor(r *router.Request) (any, error) {
	var req VerifyTwoFactorRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	ok, err := h.uc.VerifyTwoFactorCode(r.Context(), usecase.VerifyTwoFactorCodeInput{Code: req.Code, Secret: req.Secret})
	if err != nil {
		return nil, err
	}

	return VerifyTwoFactorResponse{Valid: ok}, nil
}

// ResetTwoFactor rotates an active secret.
// @Summary Reset two-factor secret
// @Tags Identity, Two-Factor
// @Produce json
// @Security BearerAuth
// @Success 200 {object} router.successResponse{data=ResetTwoFactorResponse} "Result"
// @Router /api/v1/identity/2fa/reset [post]
func (h *HTTPEndpoint) ResetTwoFactor(r *router.Request) (any, error) {
	reset, err := h.uc.ResetTwoFactorSecret(r.Context())
	if err != nil {
		return nil, err
	}

	return ResetTwoFactorResponse{Reset: reset}, nil
}

// ActivateTwoFactor re-enables two-factor under a new secret.
// @Summary Activate two-factor
// @Tags Identity, Two-Factor
// @Produce json
// @Security BearerAuth
// @Success 200 {object} router.successResponse "Activated"
// @Failure 404 {object} router.errorResponse "Two-factor authentication is not set up"
// @Router /api/v1/identity/2fa/activate [post]
func (h *HTTPEndpoint) ActivateTwoFactor(r *router.Request) (any, error) {
	if err := h.uc.ActivateTwoFactor(r.Context()); err != nil {
		return nil, err
	}

	return TwoFactorStatusResponse{msg: "Two-factor authentication activated"}, nil
}

// DeactivateTwoFactor disables two-factor and keeps the secret.
// @Summary Deactivate two-factor
// @Tags Identity, Two-Factor
// @Produce json
// @Security BearerAuth
// @Success 200 {object} router.successResponse "Deactivated"
// @Failure 404 {object} router.errorResponse "Two-factor authentication is not set up"
// @Router /api/v1/identity/2fa/deactivate [post]
func (h *HTTPEndpoint) DeactivateTwoFactor(r *router.Request) (any, error) {
	if err := h.uc.DeactivateTwoFactor(r.Context()); err != nil {
		return nil, err
	}

	return TwoFactorStatusResponse{msg: "Two-factor authentication deactivated"}, nil
}
