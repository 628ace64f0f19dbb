package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gym-booking-service/internal/store"
)

// DisplayName picks the name shown for a member: the registered first and
// last name, then the identity's name, then its email, then fallback.
// Profile lookup failures fall through to the next source.
func DisplayName(ctx context.Context, profiles store.ProfileStore, id Identity, fallback string) string {
	if profiles != nil && id.UserID != "" {
		p, err := profiles.GetProfile(ctx, id.UserID)
		switch {
		case err == nil:
			full := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
			if full != "" {
				return full
			}
		case !errors.Is(err, store.ErrNotFound):
			slog.Warn("profile lookup failed", "user_id", id.UserID, "error", err)
		}
	}
	if n := strings.TrimSpace(id.Name); n != "" {
		return n
	}
	if e := strings.TrimSpace(id.Email); e != "" {
		return e
	}
	return fallback
}
