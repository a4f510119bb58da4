// Package jwt issues and verifies the short-lived HS512 access tokens handed
// out with every session, and carries verified claims through a context.
package jwt
