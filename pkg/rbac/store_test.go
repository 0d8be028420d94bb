package rbac

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if _, err := db.Exec(SQLiteSchema); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	return db
}

func TestStore_CreateAndGetRole(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewStore(db)

	role := &Role{
		Type:          RoleTypeFolder,
		Name:          "team-alpha",
		Permissions:   []string{"Job.Build", "Job.Read"},
		ResourceNames: []string{"projects/alpha", "projects/shared"},
	}

	if err := store.CreateRole(ctx, role); err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}

	if role.ID == 0 {
		t.Error("Expected role ID to be set after creation")
	}

	retrieved, err := store.GetRole(ctx, RoleTypeFolder, "team-alpha")
	if err != nil {
		t.Fatalf("GetRole failed: %v", err)
	}

	if retrieved.Name != role.Name {
		t.Errorf("Expected name %s, got %s", role.Name, retrieved.Name)
	}
	if len(retrieved.Permissions) != 2 {
		t.Errorf("Expected 2 permissions, got %d", len(retrieved.Permissions))
	}
	if len(retrieved.ResourceNames) != 2 {
		t.Errorf("Expected 2 resource bindings, got %d", len(retrieved.ResourceNames))
	}
	if len(retrieved.Sids) != 0 {
		t.Errorf("Expected no sids on a fresh role, got %d", len(retrieved.Sids))
	}
}

func TestStore_CreateRoleRejectsDuplicates(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewStore(db)

	role := &Role{
		Type:        RoleTypeGlobal,
		Name:        "release-managers",
		Permissions: []string{"Job.Build"},
	}
	if err := store.CreateRole(ctx, role); err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}

	dup := &Role{
		Type:        RoleTypeGlobal,
		Name:        "release-managers",
		Permissions: []string{"Job.Read"},
	}
	err := store.CreateRole(ctx, dup)
	if !IsDuplicate(err) {
		t.Fatalf("Expected DuplicateRoleError, got %v", err)
	}

	// Same name under a different type is a different key.
	other := &Role{
		Type:          RoleTypeFolder,
		Name:          "release-managers",
		Permissions:   []string{"Job.Read"},
		ResourceNames: []string{"projects/alpha"},
	}
	if err := store.CreateRole(ctx, other); err != nil {
		t.Fatalf("CreateRole with same name under folder type failed: %v", err)
	}
}

func TestStore_CreateRoleValidation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewStore(db)

	tests := []struct {
		name string
		role *Role
	}{
		{
			name: "empty permissions",
			role: &Role{Type: RoleTypeGlobal, Name: "no-perms"},
		},
		{
			name: "folder role without resources",
			role: &Role{Type: RoleTypeFolder, Name: "no-folders", Permissions: []string{"Job.Read"}},
		},
		{
			name: "agent role without resources",
			role: &Role{Type: RoleTypeAgent, Name: "no-agents", Permissions: []string{"Agent.Build"}},
		},
		{
			name: "unknown role type",
			role: &Role{Type: RoleType("project"), Name: "bogus", Permissions: []string{"Job.Read"}},
		},
		{
			name: "permission outside type catalog",
			role: &Role{
				Type:          RoleTypeAgent,
				Name:          "bad-perm",
				Permissions:   []string{"Overall.Administer"},
				ResourceNames: []string{"agent-1"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.CreateRole(ctx, tt.role); err == nil {
				t.Error("Expected CreateRole to fail")
			}
		})
	}
}

func TestStore_DeleteRole(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewStore(db)

	role := &Role{
		Type:        RoleTypeGlobal,
		Name:        "temporary",
		Permissions: []string{"Job.Read"},
		Sids:        []string{"alice"},
	}
	if err := store.CreateRole(ctx, role); err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}

	if err := store.DeleteRole(ctx, RoleTypeGlobal, "temporary"); err != nil {
		t.Fatalf("DeleteRole failed: %v", err)
	}

	_, err := store.GetRole(ctx, RoleTypeGlobal, "temporary")
	if !IsNotFound(err) {
		t.Fatalf("Expected RoleNotFoundError after deletion, got %v", err)
	}

	// Deleting again reports the absence.
	err = store.DeleteRole(ctx, RoleTypeGlobal, "temporary")
	if !IsNotFound(err) {
		t.Fatalf("Expected RoleNotFoundError on second delete, got %v", err)
	}
}

func TestStore_DeleteRoleProtectsAdmin(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewStore(db)

	if err := InitializeBuiltInRoles(ctx, store); err != nil {
		t.Fatalf("InitializeBuiltInRoles failed: %v", err)
	}

	err := store.DeleteRole(ctx, RoleTypeGlobal, AdminRoleName)
	if !errors.Is(err, ErrProtectedRole) {
		t.Fatalf("Expected ErrProtectedRole, got %v", err)
	}

	if _, err := store.GetRole(ctx, RoleTypeGlobal, AdminRoleName); err != nil {
		t.Fatalf("Admin role should survive the delete attempt: %v", err)
	}
}

func TestStore_SidBindingSetSemantics(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewStore(db)

	role := &Role{
		Type:          RoleTypeAgent,
		Name:          "agent-operators",
		Permissions:   []string{"Agent.Connect", "Agent.Disconnect"},
		ResourceNames: []string{"agent-1"},
	}
	if err := store.CreateRole(ctx, role); err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}

	// Bind twice, expect a single binding.
	if err := store.BindSid(ctx, RoleTypeAgent, "agent-operators", "bob"); err != nil {
		t.Fatalf("BindSid failed: %v", err)
	}
	if err := store.BindSid(ctx, RoleTypeAgent, "agent-operators", "bob"); err != nil {
		t.Fatalf("Second BindSid failed: %v", err)
	}

	retrieved, err := store.GetRole(ctx, RoleTypeAgent, "agent-operators")
	if err != nil {
		t.Fatalf("GetRole failed: %v", err)
	}
	if len(retrieved.Sids) != 1 {
		t.Fatalf("Expected 1 sid binding after double bind, got %d", len(retrieved.Sids))
	}

	// A single unbind removes the sid entirely.
	if err := store.UnbindSid(ctx, RoleTypeAgent, "agent-operators", "bob"); err != nil {
		t.Fatalf("UnbindSid failed: %v", err)
	}

	retrieved, err = store.GetRole(ctx, RoleTypeAgent, "agent-operators")
	if err != nil {
		t.Fatalf("GetRole failed: %v", err)
	}
	if retrieved.HasSid("bob") {
		t.Error("Expected bob to be unbound after a single unbind")
	}
}

func TestStore_BindSidErrors(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewStore(db)

	role := &Role{
		Type:        RoleTypeGlobal,
		Name:        "readers",
		Permissions: []string{"Overall.Read"},
	}
	if err := store.CreateRole(ctx, role); err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}

	if err := store.BindSid(ctx, RoleTypeGlobal, "readers", "   "); !errors.Is(err, ErrBlankSid) {
		t.Errorf("Expected ErrBlankSid for a whitespace sid, got %v", err)
	}

	if err := store.BindSid(ctx, RoleTypeGlobal, "missing", "alice"); !IsNotFound(err) {
		t.Errorf("Expected RoleNotFoundError, got %v", err)
	}

	var unknown *UnknownRoleTypeError
	if err := store.BindSid(ctx, RoleType("group"), "readers", "alice"); !errors.As(err, &unknown) {
		t.Errorf("Expected UnknownRoleTypeError, got %v", err)
	}
}

func TestStore_UnbindSidMissingRole(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewStore(db)

	if err := store.UnbindSid(ctx, RoleTypeFolder, "ghost", "alice"); !IsNotFound(err) {
		t.Errorf("Expected RoleNotFoundError, got %v", err)
	}
}

func TestStore_ListAndAllRoles(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewStore(db)

	roles := []*Role{
		{Type: RoleTypeGlobal, Name: "zeta", Permissions: []string{"Job.Read"}},
		{Type: RoleTypeGlobal, Name: "alpha", Permissions: []string{"Job.Build"}},
		{Type: RoleTypeFolder, Name: "mid", Permissions: []string{"Job.Read"}, ResourceNames: []string{"projects/x"}},
	}
	for _, r := range roles {
		if err := store.CreateRole(ctx, r); err != nil {
			t.Fatalf("CreateRole(%s) failed: %v", r.Name, err)
		}
	}

	globals, err := store.ListRoles(ctx, RoleTypeGlobal)
	if err != nil {
		t.Fatalf("ListRoles failed: %v", err)
	}
	if len(globals) != 2 {
		t.Fatalf("Expected 2 global roles, got %d", len(globals))
	}
	if globals[0].Name != "alpha" || globals[1].Name != "zeta" {
		t.Errorf("Expected roles ordered by name, got %s, %s", globals[0].Name, globals[1].Name)
	}

	all, err := store.AllRoles(ctx)
	if err != nil {
		t.Fatalf("AllRoles failed: %v", err)
	}
	if len(all[RoleTypeGlobal]) != 2 || len(all[RoleTypeFolder]) != 1 || len(all[RoleTypeAgent]) != 0 {
		t.Errorf("Unexpected grouped role counts: %d/%d/%d",
			len(all[RoleTypeGlobal]), len(all[RoleTypeFolder]), len(all[RoleTypeAgent]))
	}
}

func TestInitializeBuiltInRolesIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewStore(db)

	if err := InitializeBuiltInRoles(ctx, store); err != nil {
		t.Fatalf("First InitializeBuiltInRoles failed: %v", err)
	}
	if err := InitializeBuiltInRoles(ctx, store); err != nil {
		t.Fatalf("Second InitializeBuiltInRoles failed: %v", err)
	}

	admin, err := store.GetRole(ctx, RoleTypeGlobal, AdminRoleName)
	if err != nil {
		t.Fatalf("GetRole(admin) failed: %v", err)
	}
	if len(admin.Permissions) != len(PermissionCatalog(RoleTypeGlobal)) {
		t.Errorf("Expected admin to hold every global permission")
	}
}

func TestStore_PostgresRoundTrip(t *testing.T) {
	db := RequireDatabase(t)
	defer db.Close()

	ctx := context.Background()
	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}
	store := NewStore(db)

	name := "pg-round-trip"
	store.DeleteRole(ctx, RoleTypeFolder, name)

	role := &Role{
		Type:          RoleTypeFolder,
		Name:          name,
		Permissions:   []string{"Job.Build"},
		ResourceNames: []string{"projects/alpha"},
	}
	if err := store.CreateRole(ctx, role); err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}
	defer store.DeleteRole(ctx, RoleTypeFolder, name)

	if err := store.BindSid(ctx, RoleTypeFolder, name, "alice"); err != nil {
		t.Fatalf("BindSid failed: %v", err)
	}

	retrieved, err := store.GetRole(ctx, RoleTypeFolder, name)
	if err != nil {
		t.Fatalf("GetRole failed: %v", err)
	}
	if !retrieved.HasSid("alice") {
		t.Error("Expected alice to be bound")
	}
}
