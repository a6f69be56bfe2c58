package http

import (
	"context"
	"net/http"

	"github.com/gofrs/uuid"
)

type contextKey string

const userIDKey contextKey = "user_id"

// RequireUser extracts the authenticated user identity from the X-User-ID
// header. The fronting identity layer is trusted to have verified it.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-User-ID")
		if raw == "" {
			respondWithError(w, http.StatusUnauthorized, "missing X-User-ID header")
			return
		}

		userID, err := uuid.FromString(raw)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "invalid X-User-ID header")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}
