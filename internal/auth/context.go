package auth

import (
	"context"

	"github.com/foodian-app/foodian/internal/model"
)

type contextKey struct{}

// AuthContext identifies the caller of an authenticated request.
// FamilyID is 0 and Role is empty until the user creates or joins a family.
type AuthContext struct {
	UserID    int64
	FamilyID  int64
	Role      model.Role
	SessionID int64
	Token     string
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func FamilyID(ctx context.Context) int64 {
	ac, _ := FromContext(ctx)
	return ac.FamilyID
}

func UserID(ctx context.Context) int64 {
	ac, _ := FromContext(ctx)
	return ac.UserID
}

func IsLeader(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	return ok && ac.FamilyID != 0 && ac.Role == model.RoleLeader
}
