package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/portalauth/internal/notification/entity"
	"github.com/shandysiswandi/portalauth/internal/pkg/clock"
	"github.com/shandysiswandi/portalauth/internal/pkg/config"
	"github.com/shandysiswandi/portalauth/internal/pkg/instrument"
	"github.com/shandysiswandi/portalauth/internal/pkg/mail"
	"github.com/shandysiswandi/portalauth/internal/pkg/uid"
	"github.com/shandysiswandi/portalauth/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	created   []entity.DeliveryLog
	updated   []entity.UpdateDeliveryLog
	createErr error
}

func (f *fakeDB) CreateDeliveryLog(_ context.Context, in entity.DeliveryLog) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, in)
	return nil
}

func (f *fakeDB) UpdateDeliveryLog(_ context.Context, in entity.UpdateDeliveryLog) error {
	f.updated = append(f.updated, in)
	return nil
}

type fakeMail struct {
	sent     []mail.Message
	attempts int
	err      error
}

func (f *fakeMail) Send(_ context.Context, msg mail.Message) (int, error) {
	f.sent = append(f.sent, msg)
	if f.attempts == 0 {
		f.attempts = 1
	}
	return f.attempts, f.err
}

func newTestUsecase(t *testing.T) (*Usecase, *fakeDB, *fakeMail) {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte("modules:\n  notification:\n    mail:\n      company_name: Narayana Group\n"))
	require.NoError(t, err)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	sf, err := uid.NewSnowflake(1)
	require.NoError(t, err)

	db, ml := &fakeDB{}, &fakeMail{}
	return NewNotification(Dependency{
		RepoDB:     db,
		RepoMail:   ml,
		Config:     cfg,
		UID:        sf,
		Clock:      clock.NewFixed(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)),
		Validator:  v,
		Instrument: instrument.NewNoop(),
	}), db, ml
}

func TestConsumeOTPIssued(t *testing.T) {
	t.Parallel()

	tests := []struct {
		purpose string
		subject string
		text    string
	}{
		{"signup", "Your OTP Code", "Your OTP code is 123456. It will expire in 5 minutes."},
		{"login", "Your Login OTP Code", "Your OTP code is 123456. It will expire in 5 minutes."},
		{"reset_password", "Your Password Reset OTP", "Your OTP for password reset is 123456. It expires in 5 minutes."},
	}

	for _, tt := range tests {
		t.Run(tt.purpose, func(t *testing.T) {
			t.Parallel()

			uc, db, ml := newTestUsecase(t)
			ctx := instrument.SetCorrelationID(context.Background(), "cid-7")

			err := uc.ConsumeOTPIssued(ctx, ConsumeOTPIssuedInput{
				Email: "asha@narayanagroup.com", Name: "Asha", Code: "123456", Purpose: tt.purpose, TTLMinutes: 5,
			})
			require.NoError(t, err)

			require.Len(t, ml.sent, 1)
			assert.Equal(t, []string{"asha@narayanagroup.com"}, ml.sent[0].To)
			assert.Equal(t, tt.subject, ml.sent[0].Subject)
			assert.Equal(t, tt.text, ml.sent[0].TextBody)
			assert.Contains(t, ml.sent[0].HTMLBody, "Hi Asha,")
			assert.Contains(t, ml.sent[0].HTMLBody, "2026 Narayana Group")

			require.Len(t, db.created, 1)
			assert.Equal(t, entity.DeliveryStatusQueued, db.created[0].Status)
			assert.Equal(t, "cid-7", db.created[0].CorrelationID)
			assert.Equal(t, entity.Purpose(tt.purpose), db.created[0].Purpose)

			require.Len(t, db.updated, 1)
			assert.Equal(t, db.created[0].ID, db.updated[0].ID)
			assert.Equal(t, entity.DeliveryStatusSent, db.updated[0].Status)
		})
	}
}

func TestConsumeOTPIssued_Failures(t *testing.T) {
	t.Parallel()

	t.Run("invalid event is dropped", func(t *testing.T) {
		t.Parallel()

		uc, db, ml := newTestUsecase(t)
		err := uc.ConsumeOTPIssued(context.Background(), ConsumeOTPIssuedInput{
			Email: "asha@narayanagroup.com", Code: "12ab", Purpose: "signup", TTLMinutes: 5,
		})
		require.NoError(t, err)
		assert.Empty(t, ml.sent)
		assert.Empty(t, db.created)
	})

	t.Run("unknown purpose is dropped", func(t *testing.T) {
		t.Parallel()

		uc, _, ml := newTestUsecase(t)
		err := uc.ConsumeOTPIssued(context.Background(), ConsumeOTPIssuedInput{
			Email: "asha@narayanagroup.com", Code: "123456", Purpose: "welcome", TTLMinutes: 5,
		})
		require.NoError(t, err)
		assert.Empty(t, ml.sent)
	})

	t.Run("delivery failure is recorded", func(t *testing.T) {
		t.Parallel()

		uc, db, ml := newTestUsecase(t)
		ml.attempts, ml.err = 4, errors.New("relay down")

		err := uc.ConsumeOTPIssued(context.Background(), ConsumeOTPIssuedInput{
			Email: "asha@narayanagroup.com", Code: "123456", Purpose: "login", TTLMinutes: 5,
		})
		require.NoError(t, err)

		require.Len(t, db.updated, 1)
		assert.Equal(t, entity.DeliveryStatusFailed, db.updated[0].Status)
		assert.Equal(t, 4, db.updated[0].Attempts)
		assert.Equal(t, "relay down", db.updated[0].Error)
	})

	t.Run("mail is sent even when the log cannot be written", func(t *testing.T) {
		t.Parallel()

		uc, db, ml := newTestUsecase(t)
		db.createErr = errors.New("db down")

		err := uc.ConsumeOTPIssued(context.Background(), ConsumeOTPIssuedInput{
			Email: "asha@narayanagroup.com", Code: "123456", Purpose: "signup", TTLMinutes: 5,
		})
		require.NoError(t, err)
		assert.Len(t, ml.sent, 1)
		assert.Empty(t, db.updated)
	})
}
