// Package otp covers both kinds of one-time passwords the portal uses:
// random numeric codes delivered by email, and TOTP codes produced by an
// authenticator app (enrollment secret, provisioning QR code, validation).
package otp
