package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/portalauth/internal/identity/entity"
	"github.com/shandysiswandi/portalauth/internal/pkg/goerror"
)

// Session is a freshly minted token pair.
type Session struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// ClientInfo identifies the caller of an authentication request.
type ClientInfo struct {
	IP     string
	Device string
}

// mintSession signs an access token and prepares the refresh session row
// for user. The caller persists the row.
func (s *Usecase) mintSession(ctx context.Context, user entity.User) (*Session, *entity.RefreshToken, error) {
	now := s.clock.Now()

	access, err := s.jwt.Generate(user.Email, user.Role())
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate access jwt token", "email", user.Email, "error", err)
		return nil, nil, goerror.NewServer(err)
	}

	refresh := s.token.Generate()
	refreshHash, err := s.hmac.Hash(refresh)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash refresh token", "email", user.Email, "error", err)
		return nil, nil, goerror.NewServer(err)
	}

	row := &entity.RefreshToken{
		ID:        s.uid.Generate(),
		UserID:    user.ID,
		TokenHash: string(refreshHash),
		ExpiresAt: now.Add(s.refreshTokenTTL()),
		CreatedAt: now,
	}

	return &Session{
		AccessToken:      access,
		AccessExpiresAt:  now.Add(s.jwt.TTL()),
		RefreshToken:     refresh,
		RefreshExpiresAt: row.ExpiresAt,
	}, row, nil
}

// completeLogin records the login, announces it and opens a session. It is
// the shared success path of every login method.
func (s *Usecase) completeLogin(ctx context.Context, user entity.User, method entity.LoginMethod, client ClientInfo) (*Session, error) {
	ctx, span := s.startSpan(ctx, "completeLogin")
	defer span.End()

	now := s.clock.Now()
	if err := s.repoDB.RecordLogin(ctx, entity.LoginRecord{
		UserID: user.ID,
		At:     now,
		IP:     client.IP,
		Device: client.Device,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo record login", "email", user.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	sess, row, err := s.mintSession(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.repoDB.CreateRefreshToken(ctx, *row); err != nil {
		slog.ErrorContext(ctx, "failed to repo create refresh token", "email", user.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.repoMessaging.PublishUserLoggedIn(ctx, UserLoggedInEvent{
		UserID: user.ID,
		Email:  user.Email,
		Method: method,
		IP:     client.IP,
		Device: client.Device,
		At:     now,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish user logged in", "email", user.Email, "error", err)
	}

	slog.InfoContext(ctx, "user logged in", "email", user.Email, "method", method)
	return sess, nil
}
