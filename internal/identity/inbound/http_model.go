package inbound

import (
	"net/http"
	"time"

	"github.com/shandysiswandi/portalauth/internal/identity/entity"
)

// withCookies lets a response carry Set-Cookie headers without putting
// them in the JSON body.
type withCookies struct {
	cookies []*http.Cookie
}

func (w withCookies) Cookies() []*http.Cookie { return w.cookies }

type SignupRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type SignupResponse struct{}

func (SignupResponse) Message() string { return "OTP sent to your email" }

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type VerifyOTPResponse struct{}

func (VerifyOTPResponse) Message() string { return "OTP verified, please login and set your password" }

type SetPasswordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SessionResponse struct {
	withCookies
	message          string
	status           int
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

func (r SessionResponse) Message() string { return r.message }

func (r SessionResponse) StatusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	OTP      string `json:"otp"`
	TOTP     string `json:"totp"`
}

type LoginNextActionResponse struct {
	Action entity.LoginAction `json:"action"`
}

func (r LoginNextActionResponse) Message() string {
	if r.Action == entity.LoginActionSetPassword {
		return "OTP verified. Please set your password."
	}
	return "User exists. Please login with password, OTP or authenticator."
}

type RequestLoginOTPRequest struct {
	Email string `json:"email"`
}

type RequestLoginOTPResponse struct{}

func (RequestLoginOTPResponse) Message() string { return "Login OTP sent to your email" }

type PasswordResetRequest struct {
	Email    string `json:"email"`
	OTP      string `json:"otp"`
	Password string `json:"password"`
}

type PasswordResetResponse struct {
	message string
}

func (r PasswordResetResponse) Message() string { return r.message }

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutResponse struct {
	withCookies
}

func (LogoutResponse) Message() string { return "Logout successful" }

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RegisterTOTPResponse struct {
	QRCodeURL       string `json:"qr_code_url"`
	ProvisioningURI string `json:"provisioning_uri"`
}

func (RegisterTOTPResponse) Message() string { return "Authenticator registration initiated" }

type VerifyTOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ProfileResponse struct {
	ID          int64      `json:"id,string"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	TOTPEnabled bool       `json:"totp_enabled"`
	LastLoginAt *time.Time `json:"last_login_at"`
	DateJoined  time.Time  `json:"date_joined"`
}

type DeleteUserResponse struct{}

func (DeleteUserResponse) Message() string { return "User deleted successfully" }
