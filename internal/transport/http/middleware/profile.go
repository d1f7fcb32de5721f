package middleware

import (
	"context"
	"log"
	"net/http"
	"sync"

	"bookpassport/internal/httputil"
	"bookpassport/internal/model"
)

// ProfileProvisioner creates the caller's profile row when it is missing.
type ProfileProvisioner interface {
	EnsureProfile(ctx context.Context, userID, email string) (*model.Profile, error)
}

// EnsureProfile provisions the authenticated user's profile before any
// handler runs, so books, exchanges and direct rooms can always reference it.
// Must run after AuthMiddleware. Users already seen by this process are not
// looked up again.
func EnsureProfile(p ProfileProvisioner) func(http.Handler) http.Handler {
	var seen sync.Map
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserIDFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			if _, done := seen.Load(userID); !done {
				if _, err := p.EnsureProfile(r.Context(), userID, GetEmailFromContext(r.Context())); err != nil {
					log.Printf("[Profile] Provisioning failed: user=%s err=%v", userID, err)
					httputil.WriteInternalError(w, "Failed to load profile")
					return
				}
				seen.Store(userID, struct{}{})
			}
			next.ServeHTTP(w, r)
		})
	}
}
