package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/portalauth/internal/identity/entity"
	"github.com/shandysiswandi/portalauth/internal/pkg/clock"
	"github.com/shandysiswandi/portalauth/internal/pkg/config"
	"github.com/shandysiswandi/portalauth/internal/pkg/goerror"
	"github.com/shandysiswandi/portalauth/internal/pkg/hash"
	"github.com/shandysiswandi/portalauth/internal/pkg/idempotency"
	"github.com/shandysiswandi/portalauth/internal/pkg/instrument"
	"github.com/shandysiswandi/portalauth/internal/pkg/jwt"
	"github.com/shandysiswandi/portalauth/internal/pkg/mfa"
	"github.com/shandysiswandi/portalauth/internal/pkg/otp"
	"github.com/shandysiswandi/portalauth/internal/pkg/ratelimit"
	"github.com/shandysiswandi/portalauth/internal/pkg/uid"
	"github.com/shandysiswandi/portalauth/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

var (
	errOTPNotVerified = goerror.NewBusiness("OTP not verified. Please sign up and complete verification process.", goerror.CodeInvalidInput)
	errUserNotFound   = goerror.NewBusiness("User not found. Please sign up.", goerror.CodeNotFound)
	errUserInactive   = goerror.NewBusiness("User account is inactive", goerror.CodeForbidden)
)

type OTPIssuedEvent struct {
	Email      string
	Name       string
	Code       string
	Purpose    entity.OTPPurpose
	TTLMinutes int
}

type UserLoggedInEvent struct {
	UserID int64
	Email  string
	Method entity.LoginMethod
	IP     string
	Device string
	At     time.Time
}

type repoMessaging interface {
	PublishOTPIssued(ctx context.Context, msg OTPIssuedEvent) error
	PublishUserLoggedIn(ctx context.Context, msg UserLoggedInEvent) error
}

type repoDB interface {
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	GetPendingUser(ctx context.Context, email string) (*entity.PendingUser, error)
	GetUserRefreshToken(ctx context.Context, tokenHash string) (*entity.UserRefreshToken, error)

	SavePendingUser(ctx context.Context, in entity.PendingUser) error
	ReplaceOTP(ctx context.Context, in entity.OTP) error
	ConsumeOTP(ctx context.Context, in entity.ConsumeOTP) error
	ResetPassword(ctx context.Context, in entity.ResetPassword) error
	CreateAccount(ctx context.Context, in entity.NewAccount) error
	CreateSuperuser(ctx context.Context, in entity.User) error
	CreateRefreshToken(ctx context.Context, in entity.RefreshToken) error
	RotateRefreshToken(ctx context.Context, in entity.RotateRefreshToken) error

	RecordLogin(ctx context.Context, in entity.LoginRecord) error
	SetUserTOTP(ctx context.Context, userID int64, secret []byte, now time.Time) error
	RevokeRefreshToken(ctx context.Context, tokenHash string, now time.Time) error
	RevokeAllRefreshTokens(ctx context.Context, userID int64, now time.Time) error

	DeleteUser(ctx context.Context, userID int64, now time.Time) error
	DeleteStaleOTPs(ctx context.Context, before time.Time) (int64, error)
	DeleteStalePendingUsers(ctx context.Context, before time.Time) (int64, error)
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

type enforcer interface {
	Enforce(rvals ...any) (bool, error)
}

type Usecase struct {
	repoDB        repoDB
	repoMessaging repoMessaging
	idemp         idempotency.Idempotency
	cooldown      ratelimit.Cooldown
	validator     validator.Validator
	cfg           config.Config
	hmac          hash.Hash
	password      hash.Hash
	mfaEncryptor  mfa.Encryptor
	uid           uid.NumberID
	token         uid.StringID
	totp          otp.OTP
	clock         clock.Clocker
	jwt           jwt.JWT
	ins           instrument.Instrumentation
	enforcer      enforcer
}

type Dependency struct {
	RepoDB        repoDB
	RepoMessaging repoMessaging
	Idempotency   idempotency.Idempotency
	Cooldown      ratelimit.Cooldown
	Validator     validator.Validator
	Config        config.Config
	HMAC          hash.Hash
	Password      hash.Hash
	MFAEncryptor  mfa.Encryptor
	UID           uid.NumberID
	Token         uid.StringID
	Totp          otp.OTP
	Clock         clock.Clocker
	JWT           jwt.JWT
	Instrument    instrument.Instrumentation
	Enforcer      enforcer
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:        dep.RepoDB,
		repoMessaging: dep.RepoMessaging,
		idemp:         dep.Idempotency,
		cooldown:      dep.Cooldown,
		validator:     dep.Validator,
		cfg:           dep.Config,
		hmac:          dep.HMAC,
		password:      dep.Password,
		mfaEncryptor:  dep.MFAEncryptor,
		uid:           dep.UID,
		token:         dep.Token,
		totp:          dep.Totp,
		clock:         dep.Clock,
		jwt:           dep.JWT,
		ins:           dep.Instrument,
		enforcer:      dep.Enforcer,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("identity.usecase").Start(ctx, name)
}

func durationOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func (s *Usecase) otpTTL() time.Duration {
	return durationOr(s.cfg.GetMinute("modules.identity.otp.ttl_minutes"), 5*time.Minute)
}

func (s *Usecase) pendingTTL() time.Duration {
	return durationOr(s.cfg.GetMinute("modules.identity.pending_ttl_minutes"), time.Hour)
}

func (s *Usecase) refreshTokenTTL() time.Duration {
	return durationOr(s.cfg.GetHour("modules.identity.refresh_token_ttl_hours"), 24*time.Hour)
}

func (s *Usecase) allowedDomain() string {
	return s.cfg.GetString("modules.identity.allowed_email_domain")
}

func (s *Usecase) authenticated(ctx context.Context) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication credentials were not provided", goerror.CodeUnauthorized)
	}
	return clm, nil
}

func (s *Usecase) authenticatedAndAuthorized(ctx context.Context, obj, act string) (*jwt.Claims, error) {
	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	ok, err := s.enforcer.Enforce(clm.Role, obj, act)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check authorization", "email", clm.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !ok {
		slog.WarnContext(ctx, "account not allowed", "email", clm.Email, "role", clm.Role, "obj", obj, "act", act)
		return nil, goerror.NewBusiness("You do not have permission to perform this action", goerror.CodeForbidden)
	}

	return clm, nil
}

// currentUser loads the account behind the access token.
func (s *Usecase) currentUser(ctx context.Context) (*entity.User, error) {
	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.repoDB.GetUserByEmail(ctx, clm.Email)
	if err != nil {
		return nil, s.userLookupError(ctx, clm.Email, err, goerror.NewBusiness("User not found", goerror.CodeUnauthorized))
	}

	if !user.IsActive {
		slog.WarnContext(ctx, "user account is inactive", "email", user.Email)
		return nil, errUserInactive
	}

	return user, nil
}

// userLookupError turns a repository lookup failure into notFound or a
// server error.
func (s *Usecase) userLookupError(ctx context.Context, email string, err, notFound error) error {
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user account not found", "email", email)
		return notFound
	}
	slog.ErrorContext(ctx, "failed to repo get user by email", "email", email, "error", err)
	return goerror.NewServer(err)
}
