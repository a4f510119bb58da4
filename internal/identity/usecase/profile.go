package usecase

import (
	"context"
	"time"
)

type ProfileOutput struct {
	ID          int64
	Email       string
	Name        string
	Role        string
	TOTPEnabled bool
	LastLoginAt *time.Time
	DateJoined  time.Time
}

func (s *Usecase) Profile(ctx context.Context) (*ProfileOutput, error) {
	ctx, span := s.startSpan(ctx, "Profile")
	defer span.End()

	user, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	return &ProfileOutput{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Role:        user.Role(),
		TOTPEnabled: user.HasTOTP(),
		LastLoginAt: user.LastLoginAt,
		DateJoined:  user.DateJoined,
	}, nil
}
