package common

import "context"

type ctxKey string

const (
	guestIDKey    ctxKey = "auth/guest-id"
	guestRolesKey ctxKey = "auth/guest-roles"
)

// WithGuestID stores the authenticated guest identifier on the context.
func WithGuestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, guestIDKey, id)
}

// GuestID extracts the authenticated guest identifier from the context.
func GuestID(ctx context.Context) (string, bool) {
	v := ctx.Value(guestIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// WithGuestRoles stores the authenticated guest's roles on the context.
func WithGuestRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, guestRolesKey, roles)
}

// HasRole reports whether the authenticated guest carries the role.
func HasRole(ctx context.Context, role string) bool {
	roles, ok := ctx.Value(guestRolesKey).([]string)
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
