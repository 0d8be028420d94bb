package rbac

import (
	"errors"
	"fmt"
)

// ErrBlankSid is returned when a bind request carries an empty or
// whitespace-only sid. This is a server-side contract; clients do not
// pre-validate sids.
var ErrBlankSid = errors.New("sid should not be blank")

// ErrProtectedRole is returned when deleting a role that may not be removed,
// such as the built-in admin role.
var ErrProtectedRole = errors.New("cannot delete the admin role")

// UnknownRoleTypeError reports a role-type identifier outside
// {global, folder, agent}. It indicates a programming or configuration error;
// the UI never produces one.
type UnknownRoleTypeError struct {
	Value string
}

func (e *UnknownRoleTypeError) Error() string {
	return fmt.Sprintf("unknown role type: %q", e.Value)
}

// DuplicateRoleError reports an attempt to create a role whose (type, name)
// key already exists.
type DuplicateRoleError struct {
	Type RoleType
	Name string
}

func (e *DuplicateRoleError) Error() string {
	return fmt.Sprintf("a %s role with the name %q already exists", e.Type, e.Name)
}

// RoleNotFoundError reports an operation addressed to a role that does not
// exist.
type RoleNotFoundError struct {
	Type RoleType
	Name string
}

func (e *RoleNotFoundError) Error() string {
	return fmt.Sprintf("no %s role with name %q exists", e.Type, e.Name)
}

// InvalidPermissionError reports a submitted permission the type-scoped
// catalog does not contain.
type InvalidPermissionError struct {
	Type       RoleType
	Permission string
}

func (e *InvalidPermissionError) Error() string {
	return fmt.Sprintf("permission %q is not valid for %s roles", e.Permission, e.Type)
}

// InvalidResourceError reports a submitted resource name the resource catalog
// does not contain.
type InvalidResourceError struct {
	Type     RoleType
	Resource string
}

func (e *InvalidResourceError) Error() string {
	return fmt.Sprintf("%s role resource %q does not exist", e.Type, e.Resource)
}

// IsNotFound reports whether err is a RoleNotFoundError.
func IsNotFound(err error) bool {
	var nf *RoleNotFoundError
	return errors.As(err, &nf)
}

// IsDuplicate reports whether err is a DuplicateRoleError.
func IsDuplicate(err error) bool {
	var dup *DuplicateRoleError
	return errors.As(err, &dup)
}
