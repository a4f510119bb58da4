package identity

import (
	"context"

	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/portalauth/internal/identity/inbound"
	"github.com/shandysiswandi/portalauth/internal/identity/outbound/db"
	"github.com/shandysiswandi/portalauth/internal/identity/outbound/mq"
	"github.com/shandysiswandi/portalauth/internal/identity/usecase"
	"github.com/shandysiswandi/portalauth/internal/pkg/clock"
	"github.com/shandysiswandi/portalauth/internal/pkg/config"
	"github.com/shandysiswandi/portalauth/internal/pkg/goroutine"
	"github.com/shandysiswandi/portalauth/internal/pkg/hash"
	"github.com/shandysiswandi/portalauth/internal/pkg/idempotency"
	"github.com/shandysiswandi/portalauth/internal/pkg/instrument"
	"github.com/shandysiswandi/portalauth/internal/pkg/jwt"
	"github.com/shandysiswandi/portalauth/internal/pkg/messaging"
	"github.com/shandysiswandi/portalauth/internal/pkg/mfa"
	"github.com/shandysiswandi/portalauth/internal/pkg/otp"
	"github.com/shandysiswandi/portalauth/internal/pkg/ratelimit"
	"github.com/shandysiswandi/portalauth/internal/pkg/router"
	"github.com/shandysiswandi/portalauth/internal/pkg/uid"
	"github.com/shandysiswandi/portalauth/internal/pkg/validator"
)

type Dependency struct {
	Ctx          context.Context            `validate:"required"`
	DBConn       *pgxpool.Pool              `validate:"required"`
	Goroutine    *goroutine.Manager         `validate:"required"`
	Enforcer     *casbin.Enforcer           `validate:"required"`
	Router       *router.Router             `validate:"required"`
	Idempotency  idempotency.Idempotency    `validate:"required"`
	Cooldown     ratelimit.Cooldown         `validate:"required"`
	Messaging    messaging.Messaging        `validate:"required"`
	Config       config.Config              `validate:"required"`
	Instrument   instrument.Instrumentation `validate:"required"`
	UID          uid.NumberID               `validate:"required"`
	Token        uid.StringID               `validate:"required"`
	HMAC         hash.Hash                  `validate:"required"`
	Password     hash.Hash                  `validate:"required"`
	MFAEncryptor mfa.Encryptor              `validate:"required"`
	Clock        clock.Clocker              `validate:"required"`
	Totp         otp.OTP                    `validate:"required"`
	Validator    validator.Validator        `validate:"required"`
	JWT          jwt.JWT                    `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	dbIdentity := db.NewDB(dep.DBConn, dep.Instrument)
	repoMsg := mq.NewMessaging(dep.Messaging, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoDB:        dbIdentity,
		RepoMessaging: repoMsg,
		Idempotency:   dep.Idempotency,
		Cooldown:      dep.Cooldown,
		Validator:     dep.Validator,
		Config:        dep.Config,
		HMAC:          dep.HMAC,
		Password:      dep.Password,
		MFAEncryptor:  dep.MFAEncryptor,
		UID:           dep.UID,
		Token:         dep.Token,
		Totp:          dep.Totp,
		Clock:         dep.Clock,
		JWT:           dep.JWT,
		Instrument:    dep.Instrument,
		Enforcer:      dep.Enforcer,
	})

	if email := dep.Config.GetString("modules.identity.bootstrap_superuser.email"); email != "" {
		if err := uc.ProvisionSuperuser(dep.Ctx, usecase.ProvisionSuperuserInput{
			Email:    email,
			Name:     dep.Config.GetString("modules.identity.bootstrap_superuser.name"),
			Password: dep.Config.GetString("modules.identity.bootstrap_superuser.password"),
		}); err != nil {
			return err
		}
	}

	inbound.RegisterHTTPEndpoint(dep.Router, uc, dep.Config, dep.Clock)
	inbound.RegisterHousekeeping(dep.Ctx, dep.Goroutine, uc)

	return nil
}
