package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/portalauth/internal/pkg/goerror"
	"github.com/shandysiswandi/portalauth/internal/pkg/mfa"
)

type RegisterTOTPOutput struct {
	QRCodeURL       string
	ProvisioningURI string
}

// RegisterTOTP enrolls a new authenticator secret for the caller, replacing
// any previous one.
func (s *Usecase) RegisterTOTP(ctx context.Context) (*RegisterTOTPOutput, error) {
	ctx, span := s.startSpan(ctx, "RegisterTOTP")
	defer span.End()

	user, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	secret, uri, err := s.totp.Generate(user.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate totp secret", "email", user.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	sealed, err := s.mfaEncryptor.Encrypt([]byte(secret), mfa.Scope{UserID: user.ID, Purpose: mfa.PurposeTOTPSecret})
	if err != nil {
		slog.ErrorContext(ctx, "failed to encrypt totp secret", "email", user.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.repoDB.SetUserTOTP(ctx, user.ID, sealed, s.clock.Now()); err != nil {
		slog.ErrorContext(ctx, "failed to repo set user totp", "email", user.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	qr, err := s.totp.QRCode(uri)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render totp qr code", "email", user.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "authenticator registered", "email", user.Email)
	return &RegisterTOTPOutput{QRCodeURL: qr, ProvisioningURI: uri}, nil
}
