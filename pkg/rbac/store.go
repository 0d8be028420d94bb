package rbac

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Store is the authoritative collection of roles, keyed by (role type, role
// name). It owns permission sets, sid bindings, and resource bindings, and
// enforces every invariant the data model promises.
type Store struct {
	db *sql.DB
}

// NewStore creates a role store on top of db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateRole persists a new role. It fails with DuplicateRoleError when the
// (type, name) key is taken, InvalidPermissionError when a permission is not
// in the type's catalog, and plain errors for empty permission or resource
// sets; those should have been caught by client-side validation but the store
// is the final authority.
func (s *Store) CreateRole(ctx context.Context, role *Role) error {
	if !role.Type.Valid() {
		return &UnknownRoleTypeError{Value: string(role.Type)}
	}
	if len(role.Permissions) == 0 {
		return fmt.Errorf("role %q must carry at least one permission", role.Name)
	}
	if role.Type.RequiresResources() && len(role.ResourceNames) == 0 {
		return fmt.Errorf("%s role %q must be bound to at least one resource", role.Type, role.Name)
	}
	for _, p := range role.Permissions {
		if !PermissionInCatalog(role.Type, p) {
			return &InvalidPermissionError{Type: role.Type, Permission: p}
		}
	}

	permissionsJSON, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM roles WHERE role_type = $1 AND name = $2`,
		string(role.Type), role.Name,
	).Scan(&existing)
	if err == nil {
		return &DuplicateRoleError{Type: role.Type, Name: role.Name}
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check for existing role: %w", err)
	}

	now := time.Now().UTC()
	err = tx.QueryRowContext(ctx, `
		INSERT INTO roles (role_type, name, permissions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, string(role.Type), role.Name, string(permissionsJSON), now, now).Scan(&role.ID)
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}

	for _, resource := range role.ResourceNames {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO role_resources (role_id, resource_name)
			VALUES ($1, $2)
			ON CONFLICT (role_id, resource_name) DO NOTHING
		`, role.ID, resource); err != nil {
			return fmt.Errorf("failed to bind resource %q: %w", resource, err)
		}
	}

	for _, sid := range role.Sids {
		if strings.TrimSpace(sid) == "" {
			return ErrBlankSid
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO role_sids (role_id, sid, bound_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (role_id, sid) DO NOTHING
		`, role.ID, sid, now); err != nil {
			return fmt.Errorf("failed to bind sid %q: %w", sid, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit role creation: %w", err)
	}

	role.CreatedAt = now
	role.UpdatedAt = now
	return nil
}

// GetRole retrieves a single role with its resource and sid bindings. It
// fails with RoleNotFoundError when no role matches.
func (s *Store) GetRole(ctx context.Context, roleType RoleType, name string) (*Role, error) {
	if !roleType.Valid() {
		return nil, &UnknownRoleTypeError{Value: string(roleType)}
	}

	var role Role
	var permissionsJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, role_type, name, permissions, created_at, updated_at
		FROM roles
		WHERE role_type = $1 AND name = $2
	`, string(roleType), name).Scan(
		&role.ID,
		&role.Type,
		&role.Name,
		&permissionsJSON,
		&role.CreatedAt,
		&role.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &RoleNotFoundError{Type: roleType, Name: name}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	if err := json.Unmarshal([]byte(permissionsJSON), &role.Permissions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal permissions: %w", err)
	}

	if err := s.loadBindings(ctx, &role); err != nil {
		return nil, err
	}
	return &role, nil
}

// ListRoles lists all roles of a single type ordered by name.
func (s *Store) ListRoles(ctx context.Context, roleType RoleType) ([]Role, error) {
	if !roleType.Valid() {
		return nil, &UnknownRoleTypeError{Value: string(roleType)}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role_type, name, permissions, created_at, updated_at
		FROM roles
		WHERE role_type = $1
		ORDER BY name ASC
	`, string(roleType))
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		var permissionsJSON string
		if err := rows.Scan(
			&role.ID,
			&role.Type,
			&role.Name,
			&permissionsJSON,
			&role.CreatedAt,
			&role.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		if err := json.Unmarshal([]byte(permissionsJSON), &role.Permissions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal permissions: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range roles {
		if err := s.loadBindings(ctx, &roles[i]); err != nil {
			return nil, err
		}
	}
	return roles, nil
}

// AllRoles returns every role grouped by type. This feeds the client's full
// reload after a confirmed mutation.
func (s *Store) AllRoles(ctx context.Context) (map[RoleType][]Role, error) {
	out := make(map[RoleType][]Role, 3)
	for _, t := range RoleTypes() {
		roles, err := s.ListRoles(ctx, t)
		if err != nil {
			return nil, err
		}
		out[t] = roles
	}
	return out, nil
}

// DeleteRole removes a role and its bindings. The built-in admin role is
// protected; deleting a missing role fails with RoleNotFoundError.
func (s *Store) DeleteRole(ctx context.Context, roleType RoleType, name string) error {
	if !roleType.Valid() {
		return &UnknownRoleTypeError{Value: string(roleType)}
	}
	if roleType == RoleTypeGlobal && name == AdminRoleName {
		return ErrProtectedRole
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	roleID, err := roleIDForUpdate(ctx, tx, roleType, name)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM role_sids WHERE role_id = $1`, roleID); err != nil {
		return fmt.Errorf("failed to delete sid bindings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM role_resources WHERE role_id = $1`, roleID); err != nil {
		return fmt.Errorf("failed to delete resource bindings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, roleID); err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit role deletion: %w", err)
	}
	return nil
}

// BindSid attaches sid to the named role. Binding an already-bound sid is a
// no-op. A blank sid fails with ErrBlankSid.
func (s *Store) BindSid(ctx context.Context, roleType RoleType, name, sid string) error {
	if !roleType.Valid() {
		return &UnknownRoleTypeError{Value: string(roleType)}
	}
	if strings.TrimSpace(sid) == "" {
		return ErrBlankSid
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	roleID, err := roleIDForUpdate(ctx, tx, roleType, name)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO role_sids (role_id, sid, bound_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (role_id, sid) DO NOTHING
	`, roleID, sid, now); err != nil {
		return fmt.Errorf("failed to bind sid: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE roles SET updated_at = $1 WHERE id = $2`, now, roleID); err != nil {
		return fmt.Errorf("failed to touch role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sid binding: %w", err)
	}
	return nil
}

// UnbindSid detaches sid from the named role. Removing a sid that is not
// bound is a no-op as long as the role exists.
func (s *Store) UnbindSid(ctx context.Context, roleType RoleType, name, sid string) error {
	if !roleType.Valid() {
		return &UnknownRoleTypeError{Value: string(roleType)}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	roleID, err := roleIDForUpdate(ctx, tx, roleType, name)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM role_sids WHERE role_id = $1 AND sid = $2`, roleID, sid); err != nil {
		return fmt.Errorf("failed to unbind sid: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE roles SET updated_at = $1 WHERE id = $2`, time.Now().UTC(), roleID); err != nil {
		return fmt.Errorf("failed to touch role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sid removal: %w", err)
	}
	return nil
}

// loadBindings populates a role's ResourceNames and Sids from the binding
// tables, each ordered for stable output.
func (s *Store) loadBindings(ctx context.Context, role *Role) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT resource_name FROM role_resources WHERE role_id = $1 ORDER BY resource_name ASC
	`, role.ID)
	if err != nil {
		return fmt.Errorf("failed to load resource bindings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("failed to scan resource binding: %w", err)
		}
		role.ResourceNames = append(role.ResourceNames, name)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	sidRows, err := s.db.QueryContext(ctx, `
		SELECT sid FROM role_sids WHERE role_id = $1 ORDER BY sid ASC
	`, role.ID)
	if err != nil {
		return fmt.Errorf("failed to load sid bindings: %w", err)
	}
	defer sidRows.Close()
	for sidRows.Next() {
		var sid string
		if err := sidRows.Scan(&sid); err != nil {
			return fmt.Errorf("failed to scan sid binding: %w", err)
		}
		role.Sids = append(role.Sids, sid)
	}
	return sidRows.Err()
}

// roleIDForUpdate resolves a (type, name) key inside a transaction.
func roleIDForUpdate(ctx context.Context, tx *sql.Tx, roleType RoleType, name string) (int64, error) {
	var roleID int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM roles WHERE role_type = $1 AND name = $2`,
		string(roleType), name,
	).Scan(&roleID)
	if err == sql.ErrNoRows {
		return 0, &RoleNotFoundError{Type: roleType, Name: name}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up role: %w", err)
	}
	return roleID, nil
}
