// Package inventory tracks the folders and agents known to the host. The
// registry is loaded from a YAML file and can follow edits to that file, so
// role creation only ever offers resources that actually exist.
package inventory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/folderguard/folderguard/pkg/rbac"
)

type registryFile struct {
	Folders []string `yaml:"folders"`
	Agents  []string `yaml:"agents"`
}

// Registry is the in-memory resource inventory. All reads are served from
// memory; Reload and the file watcher swap the contents atomically.
type Registry struct {
	path   string
	logger *logrus.Logger

	// OnReload, when set, observes the outcome of every reload triggered by
	// the file watcher.
	OnReload func(err error)

	mu      sync.RWMutex
	folders []string
	agents  []string
}

// Load reads the registry file at path and returns a Registry serving it.
func Load(path string, logger *logrus.Logger) (*Registry, error) {
	if logger == nil {
		logger = logrus.New()
	}
	r := &Registry{path: path, logger: logger}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the registry file and replaces the in-memory inventory.
// On failure the previous inventory stays in place.
func (r *Registry) Reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("failed to read inventory file: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse inventory file: %w", err)
	}

	folders := dedupeSorted(file.Folders)
	agents := dedupeSorted(file.Agents)

	r.mu.Lock()
	r.folders = folders
	r.agents = agents
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{
		"folders": len(folders),
		"agents":  len(agents),
		"path":    r.path,
	}).Info("Inventory loaded")
	return nil
}

// Resources returns the ordered resource names for roleType. Global roles
// bind to no resources, so the global list is always empty.
func (r *Registry) Resources(roleType rbac.RoleType) ([]string, error) {
	if !roleType.Valid() {
		return nil, &rbac.UnknownRoleTypeError{Value: string(roleType)}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var src []string
	switch roleType {
	case rbac.RoleTypeFolder:
		src = r.folders
	case rbac.RoleTypeAgent:
		src = r.agents
	case rbac.RoleTypeGlobal:
		return []string{}, nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out, nil
}

// Has reports whether name is a known resource for roleType.
func (r *Registry) Has(roleType rbac.RoleType, name string) bool {
	resources, err := r.Resources(roleType)
	if err != nil {
		return false
	}
	for _, existing := range resources {
		if existing == name {
			return true
		}
	}
	return false
}

// Watch follows writes to the registry file until stop is closed, reloading
// the inventory on each change. Reload failures are logged and the previous
// inventory keeps serving.
func (r *Registry) Watch(stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// Watch the directory, not the file: editors replace files on save and
	// the inode-level watch would be lost.
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch inventory directory: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if filepath.Clean(event.Name) != filepath.Clean(r.path) {
					continue
				}
				err := r.Reload()
				if r.OnReload != nil {
					r.OnReload(err)
				}
				if err != nil {
					r.logger.WithError(err).Warn("Failed to reload inventory")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.WithError(err).Warn("Inventory watcher error")
			case <-stop:
				return
			}
		}
	}()
	return nil
}

func dedupeSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
