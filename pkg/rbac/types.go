package rbac

import (
	"strings"
	"time"
)

// RoleType determines which permission namespace a role draws from, whether
// the role requires resource bindings, and which endpoints address it.
type RoleType string

const (
	RoleTypeGlobal RoleType = "global"
	RoleTypeFolder RoleType = "folder"
	RoleTypeAgent  RoleType = "agent"
)

// Valid reports whether t is one of the three supported role types.
func (t RoleType) Valid() bool {
	switch t {
	case RoleTypeGlobal, RoleTypeFolder, RoleTypeAgent:
		return true
	}
	return false
}

// EndpointSegment returns the path segment used when constructing endpoint
// names such as "assignSidToGlobalRole": the role type identifier with its
// first letter capitalized.
func (t RoleType) EndpointSegment() string {
	s := string(t)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// RequiresResources reports whether roles of this type must be bound to at
// least one named resource (folder path or agent name).
func (t RoleType) RequiresResources() bool {
	return t == RoleTypeFolder || t == RoleTypeAgent
}

func (t RoleType) String() string {
	return string(t)
}

// ParseRoleType converts a wire identifier into a RoleType.
func ParseRoleType(s string) (RoleType, error) {
	t := RoleType(s)
	if !t.Valid() {
		return "", &UnknownRoleTypeError{Value: s}
	}
	return t, nil
}

// RoleTypes returns the supported role types in display order.
func RoleTypes() []RoleType {
	return []RoleType{RoleTypeGlobal, RoleTypeFolder, RoleTypeAgent}
}

// Role is a named bundle of permissions scoped to the global, folder, or
// agent context, bound to zero or more security identities (sids) and, for
// folder and agent roles, to the named resources it governs.
//
// Invariants held by the store:
//   - (Type, Name) is unique.
//   - Permissions is non-empty once created.
//   - ResourceNames is non-empty once created for folder and agent roles.
//   - Sids has set semantics; binding an already-bound sid is a no-op.
//
// Permissions and ResourceNames are immutable after creation; only sid
// bindings change over a role's lifetime.
type Role struct {
	ID            int64    `json:"id"`
	Type          RoleType `json:"type"`
	Name          string   `json:"name"`
	Permissions   []string `json:"permissions"`
	ResourceNames []string `json:"resourceNames,omitempty"`
	Sids          []string `json:"sids"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasSid reports whether sid is currently bound to the role.
func (r *Role) HasSid(sid string) bool {
	for _, s := range r.Sids {
		if s == sid {
			return true
		}
	}
	return false
}

// AdminRoleName is the built-in global role seeded at startup. It carries
// every global permission and can never be deleted.
const AdminRoleName = "admin"

// AdminRole returns the built-in administrator role definition.
func AdminRole() Role {
	return Role{
		Type:        RoleTypeGlobal,
		Name:        AdminRoleName,
		Permissions: PermissionCatalog(RoleTypeGlobal),
	}
}
