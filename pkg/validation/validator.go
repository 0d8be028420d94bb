// Package validation enforces the create-role submission rules before any
// request leaves the process. It performs no network I/O; a submission that
// passes here is ready for the sync client as-is.
package validation

import (
	"fmt"

	"github.com/folderguard/folderguard/pkg/rbac"
)

// MinNameLength is the shortest role name a submission may carry.
const MinNameLength = 3

// Rule identifies which guard a submission failed.
type Rule string

const (
	RuleInvalidName           Rule = "invalid_name"
	RuleNoPermissionsSelected Rule = "no_permissions_selected"
	RuleNoResourcesSelected   Rule = "no_resources_selected"
)

// Error reports a failed submission guard. Message is the user-facing text
// shown inline; the request is never sent.
type Error struct {
	Rule    Rule
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// RoleSubmission is a normalized create-role payload. Permission and resource
// lists are deduplicated with first-occurrence order preserved.
type RoleSubmission struct {
	Type          rbac.RoleType
	Name          string
	Permissions   []string
	ResourceNames []string
}

// ValidateRoleSubmission checks a raw create-role form in fixed order: name,
// then permissions, then resources. The first failing rule is returned and
// later rules are not evaluated. resourceNames is only consulted for role
// types that bind to resources.
func ValidateRoleSubmission(roleType rbac.RoleType, name string, permissions, resourceNames []string) (*RoleSubmission, error) {
	if !roleType.Valid() {
		return nil, &rbac.UnknownRoleTypeError{Value: string(roleType)}
	}

	if len(name) < MinNameLength {
		return nil, &Error{
			Rule:    RuleInvalidName,
			Message: "Please enter a valid name for the role to be added.",
		}
	}

	permissions = dedupe(permissions)
	if len(permissions) == 0 {
		return nil, &Error{
			Rule:    RuleNoPermissionsSelected,
			Message: "Please select at least one permission",
		}
	}

	submission := &RoleSubmission{
		Type:        roleType,
		Name:        name,
		Permissions: permissions,
	}

	if roleType.RequiresResources() {
		resourceNames = dedupe(resourceNames)
		if len(resourceNames) == 0 {
			return nil, &Error{
				Rule:    RuleNoResourcesSelected,
				Message: noResourcesMessage(roleType),
			}
		}
		submission.ResourceNames = resourceNames
	}

	return submission, nil
}

func noResourcesMessage(roleType rbac.RoleType) string {
	noun := "folder"
	if roleType == rbac.RoleTypeAgent {
		noun = "agent"
	}
	return fmt.Sprintf("Please select at least one %s on which this role will be applicable", noun)
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
