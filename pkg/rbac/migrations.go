package rbac

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all role store migrations (PostgreSQL dialect).
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create roles table",
			SQL: `
				CREATE TABLE IF NOT EXISTS roles (
					id BIGSERIAL PRIMARY KEY,
					role_type VARCHAR(16) NOT NULL,
					name VARCHAR(255) NOT NULL,
					permissions JSONB NOT NULL DEFAULT '[]',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(role_type, name)
				);

				CREATE INDEX idx_roles_role_type ON roles(role_type);
				CREATE INDEX idx_roles_name ON roles(name);
			`,
		},
		{
			Version:     2,
			Description: "Create role_resources table",
			SQL: `
				CREATE TABLE IF NOT EXISTS role_resources (
					id BIGSERIAL PRIMARY KEY,
					role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
					resource_name VARCHAR(255) NOT NULL,
					UNIQUE(role_id, resource_name)
				);

				CREATE INDEX idx_role_resources_role_id ON role_resources(role_id);
				CREATE INDEX idx_role_resources_resource_name ON role_resources(resource_name);
			`,
		},
		{
			Version:     3,
			Description: "Create role_sids table",
			SQL: `
				CREATE TABLE IF NOT EXISTS role_sids (
					id BIGSERIAL PRIMARY KEY,
					role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
					sid VARCHAR(255) NOT NULL,
					bound_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(role_id, sid)
				);

				CREATE INDEX idx_role_sids_role_id ON role_sids(role_id);
				CREATE INDEX idx_role_sids_sid ON role_sids(sid);
			`,
		},
	}
}

// SQLiteSchema is the equivalent schema for SQLite deployments and tests.
const SQLiteSchema = `
	CREATE TABLE IF NOT EXISTS roles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		role_type TEXT NOT NULL,
		name TEXT NOT NULL,
		permissions TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE(role_type, name)
	);

	CREATE TABLE IF NOT EXISTS role_resources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		role_id INTEGER NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
		resource_name TEXT NOT NULL,
		UNIQUE(role_id, resource_name)
	);

	CREATE TABLE IF NOT EXISTS role_sids (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		role_id INTEGER NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
		sid TEXT NOT NULL,
		bound_at TIMESTAMP NOT NULL,
		UNIQUE(role_id, sid)
	);
`

// InitSQLiteSchema creates the role store tables on a SQLite database.
func InitSQLiteSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, SQLiteSchema); err != nil {
		return fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}
	return nil
}

// RunMigrations executes all pending migrations against a PostgreSQL
// database, recording applied versions in role_store_migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS role_store_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM role_store_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO role_store_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// InitializeBuiltInRoles seeds the built-in admin role when it is absent.
func InitializeBuiltInRoles(ctx context.Context, store *Store) error {
	admin := AdminRole()
	if _, err := store.GetRole(ctx, admin.Type, admin.Name); err == nil {
		return nil
	} else if !IsNotFound(err) {
		return err
	}

	if err := store.CreateRole(ctx, &admin); err != nil {
		return fmt.Errorf("failed to create built-in role %s: %w", admin.Name, err)
	}
	return nil
}
