package router

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shandysiswandi/gootp/internal/pkg/jwt"
)

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func middlewareAuthentication(verifier jwt.JWT, public map[string]map[string]struct{}) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, skip := public[r.Method][matchedRoutePath(r)]; skip {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok || verifier == nil {
				writeJSON(w, errorResponse{Message: "Authentication required"}, http.StatusUnauthorized)
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

// Enforcer is satisfied by *casbin.Enforcer and *casbin.SyncedEnforcer.
type Enforcer interface {
	Enforce(rvals ...any) (bool, error)
}

// Authorize enforces obj/act for the authenticated user id. It must run after
// authentication, so it is registered per route.
func Authorize(enforcer Enforcer, obj, act string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := jwt.GetAuth(r.Context())
			if claims == nil {
				writeJSON(w, errorResponse{Message: "Authentication required"}, http.StatusUnauthorized)
				return
			}

			allowed, err := enforcer.Enforce(strconv.FormatInt(claims.UserID, 10), obj, act)
			if err != nil || !allowed {
				writeJSON(w, errorResponse{Message: "You do not have permission to perform this action"}, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
