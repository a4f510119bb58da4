package entity

import "errors"

var (
	// ErrOTPExpired is returned by the store after it removed an expired code.
	ErrOTPExpired = errors.New("identity: otp expired")
)

// OTPPurpose scopes a one-time code to one workflow.
type OTPPurpose string

const (
	OTPPurposeSignup        OTPPurpose = "signup"
	OTPPurposeLogin         OTPPurpose = "login"
	OTPPurposeResetPassword OTPPurpose = "reset_password"
)

func (p OTPPurpose) String() string { return string(p) }

// Roles carried in access tokens and used as casbin subjects.
const (
	RoleMember    = "member"
	RoleStaff     = "staff"
	RoleSuperuser = "superuser"
)

// LoginAction tells the client which step comes next after an email-only
// login.
type LoginAction string

const (
	LoginActionCredential  LoginAction = "login_password_or_otp_or_authenticator"
	LoginActionSetPassword LoginAction = "set_password"
)

// LoginMethod is the credential a login was completed with.
type LoginMethod string

const (
	LoginMethodPassword LoginMethod = "password"
	LoginMethodOTP      LoginMethod = "otp"
	LoginMethodTOTP     LoginMethod = "totp"
)

// Casbin objects and actions guarded by the identity module.
const (
	PermObjUsers  = "identity.users"
	PermActDelete = "delete"
)
