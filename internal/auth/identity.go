// Package auth expone la identidad del usuario que opera, independiente del mecanismo de login.
package auth

import (
	"context"
	"strings"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStandard Role = "standard"
)

func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleStandard:
		return RoleStandard, true
	default:
		return "", false
	}
}

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Identity capacidad de identidad que consume el core
type Identity interface {
	CurrentUser() User
	HasRole(role Role) bool
}

type userIdentity struct {
	user User
}

func NewIdentity(user User) Identity {
	return userIdentity{user: user}
}

func (u userIdentity) CurrentUser() User {
	return u.user
}

func (u userIdentity) HasRole(role Role) bool {
	return u.user.Role == role
}

// Anonymous identidad sin rol
var Anonymous Identity = userIdentity{}

// HasAnyRole true si who tiene alguno de los roles
func HasAnyRole(who Identity, roles ...Role) bool {
	if who == nil {
		return false
	}
	for _, r := range roles {
		if who.HasRole(r) {
			return true
		}
	}
	return false
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, who Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, who)
}

// FromContext retorna Anonymous si no hay identidad en el contexto
func FromContext(ctx context.Context) Identity {
	if who, ok := ctx.Value(ctxKey{}).(Identity); ok && who != nil {
		return who
	}
	return Anonymous
}
