package inbound

import (
	"net/http"

	"github.com/shandysiswandi/portalauth/internal/identity/entity"
	"github.com/shandysiswandi/portalauth/internal/identity/usecase"
	"github.com/shandysiswandi/portalauth/internal/pkg/router"
)

// HTTPEndpoint exposes the registration, login and session workflows.
type HTTPEndpoint struct {
	uc      uc
	cookies cookieJar
}

func clientInfo(r *router.Request) usecase.ClientInfo {
	return usecase.ClientInfo{IP: r.ClientIP(), Device: r.UserAgent()}
}

func (h *HTTPEndpoint) sessionResponse(s *usecase.Session, msg string, status int) SessionResponse {
	return SessionResponse{
		withCookies:      withCookies{cookies: h.cookies.session(s)},
		message:          msg,
		status:           status,
		AccessExpiresAt:  s.AccessExpiresAt,
		RefreshExpiresAt: s.RefreshExpiresAt,
	}
}

// Signup starts a registration and mails a verification code.
// @Summary Sign up
// @Tags Identity, Registration
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Signup payload"
// @Success 200 {object} router.successResponse "OTP sent"
// @Failure 409 {object} router.errorResponse "Already registered"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 429 {object} router.errorResponse "Resend cooldown"
// @Router /api/v1/identity/signup [post]
func (h *HTTPEndpoint) Signup(r *router.Request) (any, error) {
	var req SignupRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.Signup(r.Context(), usecase.SignupInput{
		Email: req.Email,
		Name:  req.Name,
	}); err != nil {
		return nil, err
	}

	return SignupResponse{}, nil
}

// VerifyOTP confirms the signup code.
// @Summary Verify signup OTP
// @Tags Identity, Registration
// @Accept json
// @Produce json
// @Param request body VerifyOTPRequest true "Verification payload"
// @Success 200 {object} router.successResponse "OTP verified"
// @Failure 404 {object} router.errorResponse "No pending registration"
// @Failure 422 {object} router.errorResponse "Invalid or expired OTP"
// @Router /api/v1/identity/otp/verify [post]
func (h *HTTPEndpoint) VerifyOTP(r *router.Request) (any, error) {
	var req VerifyOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.VerifyOTP(r.Context(), usecase.VerifyOTPInput{
		Email: req.Email,
		OTP:   req.OTP,
	}); err != nil {
		return nil, err
	}

	return VerifyOTPResponse{}, nil
}

// SetPassword creates the account of a verified registration and signs it in.
// @Summary Set password
// @Tags Identity, Registration
// @Accept json
// @Produce json
// @Param request body SetPasswordRequest true "Password payload"
// @Success 201 {object} router.successResponse{data=SessionResponse} "Account created"
// @Failure 409 {object} router.errorResponse "Already registered"
// @Failure 422 {object} router.errorResponse "OTP not verified"
// @Router /api/v1/identity/password/set [post]
func (h *HTTPEndpoint) SetPassword(r *router.Request) (any, error) {
	var req SetPasswordRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	sess, err := h.uc.SetPassword(r.Context(), usecase.SetPasswordInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	return h.sessionResponse(sess, "User created successfully", http.StatusCreated), nil
}

// Login authenticates with exactly one of password, otp or totp. With only
// an email it reports the next step instead.
// @Summary Login
// @Tags Identity, Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login payload"
// @Success 200 {object} router.successResponse{data=SessionResponse} "Login result"
// @Failure 403 {object} router.errorResponse "Inactive account"
// @Failure 404 {object} router.errorResponse "Unknown email"
// @Failure 422 {object} router.errorResponse "Invalid credential"
// @Router /api/v1/identity/login [post]
func (h *HTTPEndpoint) Login(r *router.Request) (any, error) {
	var req LoginRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	out, err := h.uc.Login(r.Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		OTP:      req.OTP,
		TOTP:     req.TOTP,
		Client:   clientInfo(r),
	})
	if err != nil {
		return nil, err
	}

	if out.Session == nil {
		return LoginNextActionResponse{Action: out.Action}, nil
	}

	msg := "Login successful"
	switch out.Method {
	case entity.LoginMethodOTP:
		msg = "Login successful via OTP"
	case entity.LoginMethodTOTP:
		msg = "Login successful via authenticator"
	}

	return h.sessionResponse(out.Session, msg, http.StatusOK), nil
}

// RequestLoginOTP mails a login code.
// @Summary Request login OTP
// @Tags Identity, Authentication
// @Accept json
// @Produce json
// @Param request body RequestLoginOTPRequest true "Email payload"
// @Success 200 {object} router.successResponse "OTP sent"
// @Failure 404 {object} router.errorResponse "Unknown email"
// @Router /api/v1/identity/login/otp [post]
func (h *HTTPEndpoint) RequestLoginOTP(r *router.Request) (any, error) {
	var req RequestLoginOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.RequestLoginOTP(r.Context(), usecase.RequestLoginOTPInput{Email: req.Email}); err != nil {
		return nil, err
	}

	return RequestLoginOTPResponse{}, nil
}

// PasswordReset runs one step of the reset flow depending on which fields
// are present.
// @Summary Reset password
// @Tags Identity, Password
// @Accept json
// @Produce json
// @Param request body PasswordResetRequest true "Reset payload"
// @Success 200 {object} router.successResponse "Step completed"
// @Failure 404 {object} router.errorResponse "Unknown email"
// @Failure 422 {object} router.errorResponse "Invalid or expired OTP"
// @Router /api/v1/identity/password/reset [post]
func (h *HTTPEndpoint) PasswordReset(r *router.Request) (any, error) {
	var req PasswordResetRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	step, err := h.uc.PasswordReset(r.Context(), usecase.PasswordResetInput{
		Email:    req.Email,
		OTP:      req.OTP,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	switch step {
	case usecase.PasswordResetOTPSent:
		return PasswordResetResponse{message: "Password reset OTP sent to your email"}, nil
	case usecase.PasswordResetOTPVerified:
		return PasswordResetResponse{message: "OTP verified. You can now reset your password."}, nil
	default:
		return PasswordResetResponse{message: "Password reset successful."}, nil
	}
}

// Logout revokes the refresh token when possible and always clears the
// session cookies.
// @Summary Logout
// @Tags Identity, Session
// @Produce json
// @Success 200 {object} router.successResponse "Logged out"
// @Router /api/v1/identity/logout [post]
func (h *HTTPEndpoint) Logout(r *router.Request) (any, error) {
	var req LogoutRequest
	_ = r.DecodeBody(&req)

	token := r.GetCookie(router.CookieRefreshToken)
	if token == "" {
		token = req.RefreshToken
	}

	h.uc.Logout(r.Context(), usecase.LogoutInput{RefreshToken: token})

	return LogoutResponse{withCookies: withCookies{cookies: h.cookies.cleared()}}, nil
}

// RefreshToken rotates the refresh cookie and issues a new access token.
// @Summary Refresh session
// @Tags Identity, Session
// @Produce json
// @Success 200 {object} router.successResponse{data=SessionResponse} "Rotated"
// @Failure 401 {object} router.errorResponse "Invalid or expired token"
// @Failure 403 {object} router.errorResponse "Token reuse detected"
// @Router /api/v1/identity/token/refresh [post]
func (h *HTTPEndpoint) RefreshToken(r *router.Request) (any, error) {
	var req RefreshTokenRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	token := r.GetCookie(router.CookieRefreshToken)
	if token == "" {
		token = req.RefreshToken
	}

	sess, err := h.uc.RefreshToken(r.Context(), usecase.RefreshTokenInput{RefreshToken: token})
	if err != nil {
		return nil, err
	}

	return h.sessionResponse(sess, "Token refreshed", http.StatusOK), nil
}

// RegisterTOTP enrolls an authenticator for the caller.
// @Summary Register authenticator
// @Tags Identity, TOTP
// @Produce json
// @Security BearerAuth
// @Success 200 {object} router.successResponse{data=RegisterTOTPResponse} "QR code"
// @Failure 401 {object} router.errorResponse "Unauthenticated"
// @Router /api/v1/identity/totp/register [post]
func (h *HTTPEndpoint) RegisterTOTP(r *router.Request) (any, error) {
	out, err := h.uc.RegisterTOTP(r.Context())
	if err != nil {
		return nil, err
	}

	return RegisterTOTPResponse{
		QRCodeURL:       out.QRCodeURL,
		ProvisioningURI: out.ProvisioningURI,
	}, nil
}

// VerifyTOTP logs in with an authenticator code.
// @Summary Verify authenticator code
// @Tags Identity, TOTP
// @Accept json
// @Produce json
// @Param request body VerifyTOTPRequest true "Code payload"
// @Success 200 {object} router.successResponse{data=SessionResponse} "Login result"
// @Failure 422 {object} router.errorResponse "Invalid code or not enrolled"
// @Router /api/v1/identity/totp/verify [post]
func (h *HTTPEndpoint) VerifyTOTP(r *router.Request) (any, error) {
	var req VerifyTOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	sess, err := h.uc.VerifyTOTP(r.Context(), usecase.VerifyTOTPInput{
		Email:  req.Email,
		Code:   req.Code,
		Client: clientInfo(r),
	})
	if err != nil {
		return nil, err
	}

	return h.sessionResponse(sess, "Login successful via authenticator", http.StatusOK), nil
}

// Profile returns the caller's account.
// @Summary Current account
// @Tags Identity, Account
// @Produce json
// @Security BearerAuth
// @Success 200 {object} router.successResponse{data=ProfileResponse} "Account"
// @Failure 401 {object} router.errorResponse "Unauthenticated"
// @Router /api/v1/identity/me [get]
func (h *HTTPEndpoint) Profile(r *router.Request) (any, error) {
	out, err := h.uc.Profile(r.Context())
	if err != nil {
		return nil, err
	}

	return ProfileResponse{
		ID:          out.ID,
		Email:       out.Email,
		Name:        out.Name,
		Role:        out.Role,
		TOTPEnabled: out.TOTPEnabled,
		LastLoginAt: out.LastLoginAt,
		DateJoined:  out.DateJoined,
	}, nil
}

// DeleteUser removes an account.
// @Summary Delete account
// @Tags Identity, Account
// @Produce json
// @Security BearerAuth
// @Param email path string true "Account email"
// @Success 200 {object} router.successResponse "Deleted"
// @Failure 403 {object} router.errorResponse "Not allowed"
// @Failure 404 {object} router.errorResponse "Unknown email"
// @Router /api/v1/identity/users/{email} [delete]
func (h *HTTPEndpoint) DeleteUser(r *router.Request) (any, error) {
	if err := h.uc.DeleteUser(r.Context(), usecase.DeleteUserInput{Email: r.GetParam("email")}); err != nil {
		return nil, err
	}

	return DeleteUserResponse{}, nil
}
