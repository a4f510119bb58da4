package router

import (
	"net/http"
	"strings"

	"github.com/shandysiswandi/portalauth/internal/pkg/jwt"
)

// CookieAccessToken and CookieRefreshToken name the session cookies.
const (
	CookieAccessToken  = "access_token"
	CookieRefreshToken = "refresh_token"
)

// bearerToken reads the access token from the Authorization header and falls
// back to the access_token cookie.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		p := strings.Fields(h)
		if len(p) == 2 && strings.EqualFold(p[0], "Bearer") {
			return p[1]
		}
		return ""
	}

	if c, err := r.Cookie(CookieAccessToken); err == nil {
		return c.Value
	}
	return ""
}

func middlewareAuthentication(verifier jwt.JWT, publicEndpoints map[string]map[string]struct{}) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s, ok := publicEndpoints[r.Method]; ok {
				if _, skip := s[matchedRoutePath(r)]; skip {
					next.ServeHTTP(w, r)
					return
				}
			}

			token := bearerToken(r)
			if token == "" {
				writeJSON(w, errorResponse{Message: "Authentication credentials were not provided"}, http.StatusUnauthorized)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				writeJSON(w, errorResponse{Message: "Invalid or expired token"}, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(jwt.SetAuth(r.Context(), claims)))
		})
	}
}
