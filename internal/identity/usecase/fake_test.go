package usecase

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	libotp "github.com/pquerna/otp"
	"github.com/redis/go-redis/v9"
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
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testEmail = "asha@narayanagroup.com"
	testPass  = "Secret123!"
)

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type fakeToken struct {
	entity.RefreshToken
	revokedAt  *time.Time
	replacedBy *int64
}

// fakeDB keeps identity rows in memory and mirrors the transactional
// behavior of the postgres repository.
type fakeDB struct {
	mu      sync.Mutex
	users   map[string]*entity.User
	pending map[string]*entity.PendingUser
	otps    []*entity.OTP
	tokens  map[string]*fakeToken
	logins  []entity.LoginRecord
	err     error
	// otpErr fails ReplaceOTP only.
	otpErr  error
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users:   map[string]*entity.User{},
		pending: map[string]*entity.PendingUser{},
		tokens:  map[string]*fakeToken{},
	}
}

func (f *fakeDB) userByID(id int64) *entity.User {
	for _, u := range f.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (f *fakeDB) newestOTP(email, codeHash string, purpose entity.OTPPurpose, unusedOnly bool) *entity.OTP {
	var found *entity.OTP
	for _, o := range f.otps {
		if o.Email != email || o.CodeHash != codeHash || o.Purpose != purpose || (unusedOnly && o.IsUsed) {
			continue
		}
		if found == nil || o.CreatedAt.After(found.CreatedAt) || o.CreatedAt.Equal(found.CreatedAt) {
			found = o
		}
	}
	return found
}

func (f *fakeDB) latestOTP(email string, purpose entity.OTPPurpose) *entity.OTP {
	var found *entity.OTP
	for _, o := range f.otps {
		if o.Email != email || o.Purpose != purpose {
			continue
		}
		if found == nil || !o.CreatedAt.Before(found.CreatedAt) {
			found = o
		}
	}
	return found
}

func (f *fakeDB) dropOTPs(keep func(*entity.OTP) bool) int64 {
	kept := f.otps[:0]
	var n int64
	for _, o := range f.otps {
		if keep(o) {
			kept = append(kept, o)
			continue
		}
		n++
	}
	f.otps = kept
	return n
}

func (f *fakeDB) revokeAll(userID int64, now time.Time) {
	for _, t := range f.tokens {
		if t.UserID == userID && t.revokedAt == nil {
			at := now
			t.revokedAt = &at
		}
	}
}

func (f *fakeDB) GetUserByEmail(_ context.Context, email string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[email]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeDB) GetPendingUser(_ context.Context, email string) (*entity.PendingUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.pending[email]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeDB) GetUserRefreshToken(_ context.Context, tokenHash string) (*entity.UserRefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.tokens[tokenHash]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	u := f.userByID(t.UserID)
	if u == nil {
		return nil, goerror.ErrNotFound
	}
	return &entity.UserRefreshToken{
		RefreshID:    t.ID,
		ExpiresAt:    t.ExpiresAt,
		RevokedAt:    t.revokedAt,
		ReplacedByID: t.replacedBy,
		User:         *u,
	}, nil
}

func (f *fakeDB) SavePendingUser(_ context.Context, in entity.PendingUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.pending[in.Email] = &in
	f.dropOTPs(func(o *entity.OTP) bool { return o.Email != in.Email })
	return nil
}

func (f *fakeDB) ReplaceOTP(_ context.Context, in entity.OTP) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.otpErr != nil {
		return f.otpErr
	}
	f.dropOTPs(func(o *entity.OTP) bool {
		return o.Email != in.Email || o.Purpose != in.Purpose || o.IsUsed
	})
	f.otps = append(f.otps, &in)
	return nil
}

func (f *fakeDB) expire(o *entity.OTP) {
	f.dropOTPs(func(x *entity.OTP) bool { return x != o })
	if o.Purpose == entity.OTPPurposeSignup {
		delete(f.pending, o.Email)
	}
}

func (f *fakeDB) ConsumeOTP(_ context.Context, in entity.ConsumeOTP) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	o := f.newestOTP(in.Email, in.CodeHash, in.Purpose, true)
	if o == nil {
		return goerror.ErrNotFound
	}
	if o.CreatedAt.Before(in.NotBefore) {
		f.expire(o)
		return entity.ErrOTPExpired
	}
	if in.VerifyPending {
		p, ok := f.pending[in.Email]
		if !ok {
			return goerror.ErrNotFound
		}
		p.OTPVerified = true
	}
	at := in.Now
	o.IsUsed, o.UsedAt = true, &at
	return nil
}

func (f *fakeDB) ResetPassword(_ context.Context, in entity.ResetPassword) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	o := f.latestOTP(in.Email, entity.OTPPurposeResetPassword)
	if o == nil || o.CodeHash != in.CodeHash {
		return goerror.ErrNotFound
	}
	if o.CreatedAt.Before(in.NotBefore) {
		f.expire(o)
		return entity.ErrOTPExpired
	}
	u := f.userByID(in.UserID)
	if u == nil {
		return goerror.ErrNotFound
	}
	u.PasswordHash, u.UpdatedAt = in.PasswordHash, in.Now
	f.dropOTPs(func(x *entity.OTP) bool {
		return x.Email != in.Email || x.Purpose != entity.OTPPurposeResetPassword
	})
	f.revokeAll(in.UserID, in.Now)
	return nil
}

func (f *fakeDB) CreateAccount(_ context.Context, in entity.NewAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.users[in.User.Email]; ok {
		return goerror.ErrConflict
	}
	if p, ok := f.pending[in.User.Email]; !ok || !p.OTPVerified {
		return goerror.ErrNotFound
	}
	u := in.User
	f.users[u.Email] = &u
	delete(f.pending, u.Email)
	f.dropOTPs(func(o *entity.OTP) bool { return o.Email != u.Email })
	if in.Session != nil {
		f.tokens[in.Session.TokenHash] = &fakeToken{RefreshToken: *in.Session}
	}
	return nil
}

func (f *fakeDB) CreateSuperuser(_ context.Context, in entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.users[in.Email]; ok {
		return goerror.ErrConflict
	}
	f.users[in.Email] = &in
	return nil
}

func (f *fakeDB) CreateRefreshToken(_ context.Context, in entity.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.tokens[in.TokenHash] = &fakeToken{RefreshToken: in}
	return nil
}

func (f *fakeDB) RotateRefreshToken(_ context.Context, in entity.RotateRefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, t := range f.tokens {
		if t.ID != in.OldID {
			continue
		}
		if t.revokedAt != nil {
			return goerror.ErrNotFound
		}
		at, next := in.Now, in.NewID
		t.revokedAt, t.replacedBy = &at, &next
		f.tokens[in.NewTokenHash] = &fakeToken{RefreshToken: entity.RefreshToken{
			ID:        in.NewID,
			UserID:    in.UserID,
			TokenHash: in.NewTokenHash,
			ExpiresAt: in.NewExpiresAt,
			CreatedAt: in.Now,
		}}
		return nil
	}
	return goerror.ErrNotFound
}

func (f *fakeDB) RecordLogin(_ context.Context, in entity.LoginRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	u := f.userByID(in.UserID)
	if u == nil {
		return goerror.ErrNotFound
	}
	at := in.At
	u.LastLoginAt, u.LastLoginIP, u.LastLoginDevice = &at, in.IP, in.Device
	f.logins = append(f.logins, in)
	return nil
}

func (f *fakeDB) SetUserTOTP(_ context.Context, userID int64, secret []byte, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	u := f.userByID(userID)
	if u == nil {
		return goerror.ErrNotFound
	}
	u.TOTPSecret, u.TOTPEnabled, u.UpdatedAt = bytes.Clone(secret), true, now
	return nil
}

func (f *fakeDB) RevokeRefreshToken(_ context.Context, tokenHash string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if t, ok := f.tokens[tokenHash]; ok && t.revokedAt == nil {
		at := now
		t.revokedAt = &at
	}
	return nil
}

func (f *fakeDB) RevokeAllRefreshTokens(_ context.Context, userID int64, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.revokeAll(userID, now)
	return nil
}

func (f *fakeDB) DeleteUser(_ context.Context, userID int64, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	u := f.userByID(userID)
	if u == nil {
		return goerror.ErrNotFound
	}
	f.revokeAll(userID, now)
	delete(f.users, u.Email)
	return nil
}

func (f *fakeDB) DeleteStaleOTPs(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return f.dropOTPs(func(o *entity.OTP) bool { return !o.CreatedAt.Before(before) }), nil
}

func (f *fakeDB) DeleteStalePendingUsers(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	var n int64
	for email, p := range f.pending {
		if !p.OTPVerified && p.CreatedAt.Before(before) {
			delete(f.pending, email)
			n++
		}
	}
	return n, nil
}

func (f *fakeDB) DeleteExpiredRefreshTokens(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	var n int64
	for h, t := range f.tokens {
		if !t.ExpiresAt.After(now) {
			delete(f.tokens, h)
			n++
		}
	}
	return n, nil
}

func (f *fakeDB) liveTokens(userID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tokens {
		if t.UserID == userID && t.revokedAt == nil {
			n++
		}
	}
	return n
}

type fakeMessaging struct {
	mu     sync.Mutex
	otps   []OTPIssuedEvent
	logins []UserLoggedInEvent
	err    error
}

func (f *fakeMessaging) PublishOTPIssued(_ context.Context, msg OTPIssuedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.otps = append(f.otps, msg)
	return f.err
}

func (f *fakeMessaging) PublishUserLoggedIn(_ context.Context, msg UserLoggedInEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins = append(f.logins, msg)
	return f.err
}

// lastCode returns the plaintext of the newest code mailed to email.
func (f *fakeMessaging) lastCode(t *testing.T, email string, purpose entity.OTPPurpose) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.otps) - 1; i >= 0; i-- {
		if f.otps[i].Email == email && f.otps[i].Purpose == purpose {
			return f.otps[i].Code
		}
	}
	t.Fatalf("no %s code issued for %s", purpose, email)
	return ""
}

type fakeEnforcer map[string]bool

func (f fakeEnforcer) Enforce(rvals ...any) (bool, error) {
	role, _ := rvals[0].(string)
	return f[role], nil
}

type fixture struct {
	uc    *Usecase
	db    *fakeDB
	mq    *fakeMessaging
	clock *clock.Fixed
	redis *miniredis.Miniredis
	jwt   jwt.JWT
	totp  *otp.TOTP
}

const testConfig = `
modules:
  identity:
    allowed_email_domain: narayanagroup.com
    pending_ttl_minutes: 60
    refresh_token_ttl_hours: 24
    otp:
      ttl_minutes: 5
      resend_cooldown_seconds: %d
    housekeeping:
      interval_seconds: 300
`

func newFixture(t *testing.T, cooldownSeconds int) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg, err := config.NewViperFromBytes("yaml", []byte(fmt.Sprintf(testConfig, cooldownSeconds)))
	require.NoError(t, err)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	clk := clock.NewFixed(testNow)
	j, err := jwt.NewHS512(jwt.Config{
		Secret:    bytes.Repeat([]byte("k"), 64),
		Issuer:    "portalauth",
		Audiences: []string{"portal"},
		Clock:     clk,
		UUID:      uid.NewUUID(),
	})
	require.NoError(t, err)

	sf, err := uid.NewSnowflake(1)
	require.NoError(t, err)

	totp := otp.NewTOTP("N_IIT_RAW", 30, 1, libotp.DigitsSix)
	db := newFakeDB()
	mq := &fakeMessaging{}

	uc := New(Dependency{
		RepoDB:        db,
		RepoMessaging: mq,
		Idempotency:   idempotency.New(rdb),
		Cooldown:      ratelimit.NewRedisCooldown(rdb),
		Validator:     v,
		Config:        cfg,
		HMAC:          hash.NewHMACSHA256("otp-secret"),
		Password:      hash.NewBcrypt(bcrypt.MinCost, ""),
		MFAEncryptor:  mfa.NewAESGCMEncryptor(mfa.StaticKeyProvider{KeyBytes: bytes.Repeat([]byte{7}, 32)}),
		UID:           sf,
		Token:         uid.NewToken(),
		Totp:          totp,
		Clock:         clk,
		JWT:           j,
		Instrument:    instrument.NewNoop(),
		Enforcer:      fakeEnforcer{entity.RoleStaff: true, entity.RoleSuperuser: true},
	})

	return &fixture{uc: uc, db: db, mq: mq, clock: clk, redis: mr, jwt: j, totp: totp}
}

// register runs signup, verification and set-password for email.
func (fx *fixture) register(t *testing.T, email string) *Session {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, fx.uc.Signup(ctx, SignupInput{Email: email, Name: "Asha"}))
	code := fx.mq.lastCode(t, entity.NormalizeEmail(email), entity.OTPPurposeSignup)
	require.NoError(t, fx.uc.VerifyOTP(ctx, VerifyOTPInput{Email: email, OTP: code}))
	sess, err := fx.uc.SetPassword(ctx, SetPasswordInput{Email: email, Password: testPass})
	require.NoError(t, err)
	return sess
}

// authed returns ctx carrying the claims of an access token.
func (fx *fixture) authed(t *testing.T, access string) context.Context {
	t.Helper()
	clm, err := fx.jwt.Verify(access)
	require.NoError(t, err)
	return jwt.SetAuth(context.Background(), clm)
}

func (fx *fixture) codesFor(email string) []string {
	fx.db.mu.Lock()
	defer fx.db.mu.Unlock()
	var out []string
	for _, o := range fx.db.otps {
		if o.Email == email {
			out = append(out, o.Purpose.String())
		}
	}
	sort.Strings(out)
	return out
}

func requireCode(t *testing.T, err error, code goerror.Code, msg string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, goerror.CodeOf(err), "error: %v", err)
	if msg != "" {
		require.Equal(t, msg, goerror.MsgOf(err))
	}
}
