package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shandysiswandi/portalauth/internal/identity/entity"
	"github.com/shandysiswandi/portalauth/internal/pkg/goerror"
	"github.com/shandysiswandi/portalauth/internal/pkg/mfa"
)

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"omitempty,max=72"`
	OTP      string `json:"otp" validate:"omitempty,otp"`
	TOTP     string `json:"totp" validate:"omitempty,otp"`
	Client   ClientInfo
}

// LoginOutput carries either the next action of an email-only login or
// the session of a completed login.
type LoginOutput struct {
	Action  entity.LoginAction
	Method  entity.LoginMethod
	Session *Session
}

func (s *Usecase) Login(ctx context.Context, in LoginInput) (*LoginOutput, error) {
	ctx, span := s.startSpan(ctx, "Login")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	supplied := lo.CountBy([]string{in.Password, in.OTP, in.TOTP}, func(v string) bool { return v != "" })
	if supplied > 1 {
		return nil, goerror.NewInvalidInput(nil, "credential", "Provide only one of password, otp or totp.")
	}

	email := entity.NormalizeEmail(in.Email)
	if supplied == 0 {
		return s.loginNextAction(ctx, email)
	}

	user, err := s.repoDB.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, s.userLookupError(ctx, email, err, errUserNotFound)
	}

	var method entity.LoginMethod
	switch {
	case in.Password != "":
		method = entity.LoginMethodPassword
		if !user.HasUsablePassword() || !s.password.Verify(user.PasswordHash, in.Password) {
			slog.WarnContext(ctx, "password user account not match", "email", email)
			return nil, goerror.NewBusiness("Incorrect password", goerror.CodeInvalidInput)
		}
	case in.OTP != "":
		method = entity.LoginMethodOTP
		if err := s.consumeOTP(ctx, email, in.OTP, entity.OTPPurposeLogin, false); err != nil {
			return nil, err
		}
	default:
		method = entity.LoginMethodTOTP
		if err := s.checkTOTP(ctx, user, in.TOTP); err != nil {
			return nil, err
		}
	}

	if !user.IsActive {
		slog.WarnContext(ctx, "user account is inactive", "email", email)
		return nil, errUserInactive
	}

	sess, err := s.completeLogin(ctx, *user, method, in.Client)
	if err != nil {
		return nil, err
	}

	return &LoginOutput{Method: method, Session: sess}, nil
}

// loginNextAction tells the client which step an email is at.
func (s *Usecase) loginNextAction(ctx context.Context, email string) (*LoginOutput, error) {
	_, err := s.repoDB.GetUserByEmail(ctx, email)
	if err == nil {
		return &LoginOutput{Action: entity.LoginActionCredential}, nil
	}
	if !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", email, "error", err)
		return nil, goerror.NewServer(err)
	}

	pending, err := s.repoDB.GetPendingUser(ctx, email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "login next action for unknown email", "email", email)
		return nil, errUserNotFound
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get pending user", "email", email, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !pending.OTPVerified {
		return nil, errOTPNotVerified
	}

	return &LoginOutput{Action: entity.LoginActionSetPassword}, nil
}

// checkTOTP validates code against the enrolled authenticator of user.
func (s *Usecase) checkTOTP(ctx context.Context, user *entity.User, code string) error {
	if !user.HasTOTP() {
		slog.WarnContext(ctx, "authenticator not enrolled", "email", user.Email)
		return goerror.NewBusiness("Authenticator not registered for this user", goerror.CodeInvalidInput)
	}

	secret, err := s.mfaEncryptor.Decrypt(user.TOTPSecret, mfa.Scope{UserID: user.ID, Purpose: mfa.PurposeTOTPSecret})
	if err != nil {
		slog.ErrorContext(ctx, "failed to decrypt totp secret", "email", user.Email, "error", err)
		return goerror.NewServer(err)
	}

	if !s.totp.Validate(code, string(secret), s.clock.Now()) {
		slog.WarnContext(ctx, "invalid authenticator code", "email", user.Email)
		return goerror.NewBusiness("Invalid authenticator code", goerror.CodeInvalidInput)
	}

	return nil
}
