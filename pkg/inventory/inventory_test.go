package inventory

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/folderguard/folderguard/pkg/rbac"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write inventory file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeRegistry(t, `
folders:
  - team-b
  - team-a
  - team-a
agents:
  - linux-01
`)
	reg, err := Load(path, quietLogger())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	folders, err := reg.Resources(rbac.RoleTypeFolder)
	if err != nil {
		t.Fatalf("Resources failed: %v", err)
	}
	if want := []string{"team-a", "team-b"}; !reflect.DeepEqual(folders, want) {
		t.Errorf("folders = %v, want %v", folders, want)
	}

	agents, err := reg.Resources(rbac.RoleTypeAgent)
	if err != nil {
		t.Fatalf("Resources failed: %v", err)
	}
	if want := []string{"linux-01"}; !reflect.DeepEqual(agents, want) {
		t.Errorf("agents = %v, want %v", agents, want)
	}

	global, err := reg.Resources(rbac.RoleTypeGlobal)
	if err != nil {
		t.Fatalf("Resources failed: %v", err)
	}
	if len(global) != 0 {
		t.Errorf("global resources = %v, want empty", global)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), quietLogger()); err == nil {
		t.Fatal("expected a missing file to fail Load")
	}
}

func TestReloadKeepsPreviousInventoryOnFailure(t *testing.T) {
	path := writeRegistry(t, "folders: [team-a]\n")
	reg, err := Load(path, quietLogger())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("folders: [team-a\n"), 0o644); err != nil {
		t.Fatalf("failed to corrupt inventory file: %v", err)
	}
	if err := reg.Reload(); err == nil {
		t.Fatal("expected malformed YAML to fail Reload")
	}

	if !reg.Has(rbac.RoleTypeFolder, "team-a") {
		t.Error("previous inventory must keep serving after a failed reload")
	}
}

func TestReloadPicksUpChanges(t *testing.T) {
	path := writeRegistry(t, "folders: [team-a]\n")
	reg, err := Load(path, quietLogger())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("folders: [team-a, team-b]\nagents: [linux-01]\n"), 0o644); err != nil {
		t.Fatalf("failed to rewrite inventory file: %v", err)
	}
	if err := reg.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if !reg.Has(rbac.RoleTypeFolder, "team-b") {
		t.Error("reload should pick up the new folder")
	}
	if !reg.Has(rbac.RoleTypeAgent, "linux-01") {
		t.Error("reload should pick up the new agent")
	}
	if reg.Has(rbac.RoleTypeAgent, "windows-01") {
		t.Error("unknown agent must not be reported as present")
	}
}

func TestResourcesUnknownType(t *testing.T) {
	path := writeRegistry(t, "folders: [team-a]\n")
	reg, err := Load(path, quietLogger())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	_, err = reg.Resources(rbac.RoleType("node"))
	var unknown *rbac.UnknownRoleTypeError
	if !errors.As(err, &unknown) {
		t.Errorf("expected UnknownRoleTypeError, got %v", err)
	}
}
