package inbound

import (
	"net/http"
	"time"

	"github.com/shandysiswandi/portalauth/internal/identity/usecase"
	"github.com/shandysiswandi/portalauth/internal/pkg/clock"
	"github.com/shandysiswandi/portalauth/internal/pkg/router"
)

// cookieJar builds the session cookies. Both are HttpOnly and SameSite
// strict; Secure follows configuration.
type cookieJar struct {
	secure bool
	clock  clock.Clocker
}

func (j cookieJar) build(name, value string, expiresAt time.Time) *http.Cookie {
	maxAge := int(expiresAt.Sub(j.clock.Now()).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}

	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   maxAge,
		Secure:   j.secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

func (j cookieJar) session(s *usecase.Session) []*http.Cookie {
	return []*http.Cookie{
		j.build(router.CookieAccessToken, s.AccessToken, s.AccessExpiresAt),
		j.build(router.CookieRefreshToken, s.RefreshToken, s.RefreshExpiresAt),
	}
}

func (j cookieJar) cleared() []*http.Cookie {
	expired := func(name string) *http.Cookie {
		return &http.Cookie{
			Name:     name,
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			Secure:   j.secure,
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		}
	}

	return []*http.Cookie{expired(router.CookieAccessToken), expired(router.CookieRefreshToken)}
}
