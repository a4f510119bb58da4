// Package hash hashes and verifies secrets.
//
// Passwords go through Bcrypt or Argon2id (chosen by configuration). OTP
// codes and refresh tokens are short-lived and high-entropy respectively, so
// they are stored as keyed HMAC-SHA256 digests, which can be recomputed for
// an indexed lookup.
package hash
