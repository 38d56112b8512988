package auth

import (
	"errors"

	"craftfolio/internal/database"
)

// ErrNotAdmin is returned by RequireAdmin for callers without the admin role.
var ErrNotAdmin = errors.New("admin role required")

// RequireAdmin is the single authorization gate for admin-scoped operations.
// Every admin handler goes through this check instead of re-reading the flag
// ad hoc.
func RequireAdmin(user *database.User) error {
	if user == nil || !user.IsAdmin || !user.IsActive {
		return ErrNotAdmin
	}
	return nil
}
