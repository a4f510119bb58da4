package inbound

import (
	"context"

	"github.com/shandysiswandi/portalauth/internal/identity/usecase"
	"github.com/shandysiswandi/portalauth/internal/pkg/clock"
	"github.com/shandysiswandi/portalauth/internal/pkg/config"
	"github.com/shandysiswandi/portalauth/internal/pkg/router"
)

type uc interface {
	Signup(ctx context.Context, in usecase.SignupInput) error
	VerifyOTP(ctx context.Context, in usecase.VerifyOTPInput) error
	SetPassword(ctx context.Context, in usecase.SetPasswordInput) (*usecase.Session, error)

	Login(ctx context.Context, in usecase.LoginInput) (*usecase.LoginOutput, error)
	RequestLoginOTP(ctx context.Context, in usecase.RequestLoginOTPInput) error
	PasswordReset(ctx context.Context, in usecase.PasswordResetInput) (usecase.PasswordResetStep, error)

	Logout(ctx context.Context, in usecase.LogoutInput)
	RefreshToken(ctx context.Context, in usecase.RefreshTokenInput) (*usecase.Session, error)

	RegisterTOTP(ctx context.Context) (*usecase.RegisterTOTPOutput, error)
	VerifyTOTP(ctx context.Context, in usecase.VerifyTOTPInput) (*usecase.Session, error)

	Profile(ctx context.Context) (*usecase.ProfileOutput, error)
	DeleteUser(ctx context.Context, in usecase.DeleteUserInput) error
}

func RegisterHTTPEndpoint(r *router.Router, uc uc, cfg config.Config, clk clock.Clocker) {
	end := &HTTPEndpoint{
		uc:      uc,
		cookies: cookieJar{secure: cfg.GetBool("modules.identity.cookie.secure"), clock: clk},
	}

	// Registration
	r.POST("/api/v1/identity/signup", end.Signup)
	r.POST("/api/v1/identity/otp/verify", end.VerifyOTP)
	r.POST("/api/v1/identity/password/set", end.SetPassword)

	// Authentication
	r.POST("/api/v1/identity/login", end.Login)
	r.POST("/api/v1/identity/login/otp", end.RequestLoginOTP)
	r.POST("/api/v1/identity/password/reset", end.PasswordReset)

	// Session
	r.POST("/api/v1/identity/logout", end.Logout)
	r.POST("/api/v1/identity/token/refresh", end.RefreshToken)

	// Authenticator (TOTP)
	r.POST("/api/v1/identity/totp/register", end.RegisterTOTP) // need authenticated
	r.POST("/api/v1/identity/totp/verify", end.VerifyTOTP)

	// Account (need authenticated)
	r.GET("/api/v1/identity/me", end.Profile)
	r.DELETE("/api/v1/identity/users/:email", end.DeleteUser) // need authorization
}
