package server

import (
	"context"

	"github.com/folderguard/folderguard/pkg/rbac"
)

// RoleService is the store surface the HTTP handlers depend on. *rbac.Store
// satisfies it directly; RedisRoleCache wraps another RoleService with a
// read-through cache.
type RoleService interface {
	CreateRole(ctx context.Context, role *rbac.Role) error
	GetRole(ctx context.Context, roleType rbac.RoleType, name string) (*rbac.Role, error)
	ListRoles(ctx context.Context, roleType rbac.RoleType) ([]rbac.Role, error)
	AllRoles(ctx context.Context) (map[rbac.RoleType][]rbac.Role, error)
	DeleteRole(ctx context.Context, roleType rbac.RoleType, name string) error
	BindSid(ctx context.Context, roleType rbac.RoleType, name, sid string) error
	UnbindSid(ctx context.Context, roleType rbac.RoleType, name, sid string) error
}

var _ RoleService = (*rbac.Store)(nil)
