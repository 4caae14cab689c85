package inbound

import (
	"net/http"
	"strconv"
)

type SendOTPRequest struct {
	Email            string `json:"email"`
	VerificationType string `json:"verification_type"`
}

type SendOTPResponse struct {
	ExpiresIn int64 `json:"expires_in"`
}

func (SendOTPResponse) Message() string { return "OTP sent successfully" }

type VerifyOTPRequest struct {
	Email            string `json:"email"`
	Code             string `json:"code"`
	VerificationType string `json:"verification_type"`
}

type VerifyOTPResponse struct {
	Email            string `json:"email"`
	Code             string `json:"code"`
	VerificationType string `json:"verification_type"`
	Status           string `json:"status"`
}

func (VerifyOTPResponse) Message() string { return "OTP verified successfully" }

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code,omitempty"`
}

type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	AccessExpiresIn  int64  `json:"access_expires_in"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	TokenType        string `json:"token_type"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutResponse struct{}

func (LogoutResponse) StatusCode() int { return http.StatusNoContent }

type ProfileResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type CreateUserRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsStaff   bool   `json:"is_staff"`
}

type CreateUserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (CreateUserResponse) StatusCode() int { return http.StatusCreated }
func (CreateUserResponse) Message() string { return "User created successfully" }

type EnrollTwoFactorResponse struct {
	State  string `json:"state"`
	Secret string `json:"secret,omitempty"`
	URI    string `json:"provisioning_uri,omitempty"`
}

type ProvisioningURIResponse struct {
	URI string `json:"provisioning_uri"`
}

type QRCodeResponse struct {
	Secret string `json:"secret"`
	// QRCode is a base64 encoded JPEG.
	QRCode string `json:"qr_code"`
}

type VerifyTwoFactorRequest struct {
	Code   string `json:"code"`
	Secret string `json:"secret,omitempty"`
}

type VerifyTwoFactorResponse struct {
	Valid bool `json:"valid"`
}

type ResetTwoFactorResponse struct {
	Reset bool `json:"reset"`
}

type TwoFactorStatusResponse struct {
	msg string
}

func (r TwoFactorStatusResponse) Message() string { return r.msg }

func formatID(id int64) string { return strconv.FormatInt(id, 10) }
