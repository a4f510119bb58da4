package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/portalauth/internal/identity/entity"
	"github.com/shandysiswandi/portalauth/internal/pkg/goerror"
	"github.com/shandysiswandi/portalauth/internal/pkg/otp"
)

func resendKey(email string, purpose entity.OTPPurpose) string {
	return "otp:" + purpose.String() + ":" + email
}

// withResendCooldown runs issue unless a code for (purpose, email) went out
// inside the resend window. A failed issue gives the window back.
func (s *Usecase) withResendCooldown(ctx context.Context, email string, purpose entity.OTPPurpose, issue func() error) error {
	window := s.cfg.GetSecond("modules.identity.otp.resend_cooldown_seconds")
	if window <= 0 || s.cooldown == nil {
		return issue()
	}

	key := resendKey(email, purpose)
	allowed, err := s.cooldown.Allow(ctx, key, window)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check otp resend cooldown", "email", email, "purpose", purpose, "error", err)
		return goerror.NewServer(err)
	}
	if !allowed {
		slog.WarnContext(ctx, "otp requested during cooldown", "email", email, "purpose", purpose)
		return goerror.NewBusiness("Please wait before requesting another OTP", goerror.CodeTooManyRequest)
	}

	if err := issue(); err != nil {
		if rerr := s.cooldown.Release(ctx, key); rerr != nil {
			slog.WarnContext(ctx, "failed to release otp resend cooldown", "email", email, "purpose", purpose, "error", rerr)
		}
		return err
	}

	return nil
}

// issueOTP replaces any unused code of purpose for email with a fresh one
// and hands the plaintext to the broker. Publishing failures are logged only.
func (s *Usecase) issueOTP(ctx context.Context, email, name string, purpose entity.OTPPurpose) error {
	ctx, span := s.startSpan(ctx, "issueOTP")
	defer span.End()

	code, err := otp.NewCode()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate otp code", "error", err)
		return goerror.NewServer(err)
	}

	codeHash, err := s.hmac.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp code", "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoDB.ReplaceOTP(ctx, entity.OTP{
		ID:        s.uid.Generate(),
		Email:     email,
		CodeHash:  string(codeHash),
		Purpose:   purpose,
		CreatedAt: s.clock.Now(),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo replace otp", "email", email, "purpose", purpose, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoMessaging.PublishOTPIssued(ctx, OTPIssuedEvent{
		Email:      email,
		Name:       name,
		Code:       code,
		Purpose:    purpose,
		TTLMinutes: int(s.otpTTL().Minutes()),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish otp issued", "email", email, "purpose", purpose, "error", err)
	}

	slog.InfoContext(ctx, "otp issued", "email", email, "purpose", purpose)
	return nil
}

// consumeOTP validates code for email and purpose and marks it used.
func (s *Usecase) consumeOTP(ctx context.Context, email, code string, purpose entity.OTPPurpose, verifyPending bool) error {
	ctx, span := s.startSpan(ctx, "consumeOTP")
	defer span.End()

	codeHash, err := s.hmac.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp code", "error", err)
		return goerror.NewServer(err)
	}

	now := s.clock.Now()
	err = s.repoDB.ConsumeOTP(ctx, entity.ConsumeOTP{
		Email:         email,
		CodeHash:      string(codeHash),
		Purpose:       purpose,
		NotBefore:     now.Add(-s.otpTTL()),
		Now:           now,
		VerifyPending: verifyPending,
	})

	return s.otpError(ctx, email, purpose, err)
}

func (s *Usecase) otpError(ctx context.Context, email string, purpose entity.OTPPurpose, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, goerror.ErrNotFound):
		slog.WarnContext(ctx, "invalid otp attempt", "email", email, "purpose", purpose)
		return goerror.NewBusiness("Invalid OTP", goerror.CodeInvalidInput)
	case errors.Is(err, entity.ErrOTPExpired):
		slog.WarnContext(ctx, "otp expired", "email", email, "purpose", purpose)
		if purpose == entity.OTPPurposeSignup {
			return goerror.NewBusiness("OTP expired. Please click Resend OTP.", goerror.CodeInvalidInput)
		}
		return goerror.NewBusiness("OTP expired. Please request a new OTP.", goerror.CodeInvalidInput)
	default:
		slog.ErrorContext(ctx, "failed to repo consume otp", "email", email, "purpose", purpose, "error", err)
		return goerror.NewServer(err)
	}
}
