package nav

import (
	"context"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/meridian-sms/meridian-sms/internal/authz"
	"github.com/meridian-sms/meridian-sms/internal/shared"
)

type navContextKey struct{}

// FromContext returns the filtered navigation computed for this request, or
// nil for anonymous requests.
func FromContext(ctx context.Context) []Item {
	items, _ := ctx.Value(navContextKey{}).([]Item)
	return items
}

// Middleware resolves the current user's roles and attaches their filtered
// sidebar to the request context. Guard decisions and the sidebar read the
// same snapshot, so a visible link never leads to a denied page. Fetch
// failure leaves the nav empty; the guards deny separately.
func Middleware(snapshots *authz.SnapshotCache, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil || sess.User() == "" {
				next.ServeHTTP(w, r)
				return
			}
			userID, err := strconv.ParseInt(sess.User(), 10, 64)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			snap, err := snapshots.Get(r.Context(), userID)
			if err != nil {
				if logger != nil {
					logger.Warn("nav snapshot fetch", slog.Int64("user_id", userID), slog.Any("error", err))
				}
				next.ServeHTTP(w, r)
				return
			}
			items := Filter(Registry(), snap.Roles, authz.ResolvePermissions(snap.Roles))
			ctx := context.WithValue(r.Context(), navContextKey{}, items)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
