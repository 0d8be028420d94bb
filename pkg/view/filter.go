// Package view models the rendered role lists and the substring filter that
// runs over them on every keystroke. Entries are hidden rather than removed
// so their state survives repeated filter passes.
package view

import (
	"strings"
	"sync"

	"github.com/folderguard/folderguard/pkg/rbac"
)

// NoMatchingRolesNotice is the text of the notice shown when a filter pass
// hides every entry of a role type.
const NoMatchingRolesNotice = "No matching roles found."

// Entry is one rendered role row. Hidden entries stay in the list.
type Entry struct {
	Name    string
	Visible bool
}

// Board holds the rendered role lists for all role types plus the
// per-type "no matching roles" notice state.
type Board struct {
	mu      sync.Mutex
	entries map[rbac.RoleType][]Entry
	notices map[rbac.RoleType]bool
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{
		entries: make(map[rbac.RoleType][]Entry, 3),
		notices: make(map[rbac.RoleType]bool, 3),
	}
}

// SetRoles replaces the rendered list for roleType. Every entry starts
// visible and any stale notice is cleared; this is the reload path after a
// confirmed mutation.
func (b *Board) SetRoles(roleType rbac.RoleType, names []string) error {
	if !roleType.Valid() {
		return &rbac.UnknownRoleTypeError{Value: string(roleType)}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	entries := make([]Entry, len(names))
	for i, name := range names {
		entries[i] = Entry{Name: name, Visible: true}
	}
	b.entries[roleType] = entries
	b.notices[roleType] = false
	return nil
}

// Filter recomputes visibility for roleType: an entry is visible iff its
// name contains substring literally, case-sensitive. The empty substring
// shows everything. The notice for roleType exists exactly when no entry is
// visible; repeated calls with the same substring never stack notices.
func (b *Board) Filter(roleType rbac.RoleType, substring string) error {
	if !roleType.Valid() {
		return &rbac.UnknownRoleTypeError{Value: string(roleType)}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	matching := 0
	entries := b.entries[roleType]
	for i := range entries {
		if strings.Contains(entries[i].Name, substring) {
			entries[i].Visible = true
			matching++
		} else {
			entries[i].Visible = false
		}
	}

	b.notices[roleType] = matching == 0
	return nil
}

// VisibleRoles lists the names currently visible for roleType in render
// order.
func (b *Board) VisibleRoles(roleType rbac.RoleType) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var visible []string
	for _, e := range b.entries[roleType] {
		if e.Visible {
			visible = append(visible, e.Name)
		}
	}
	return visible
}

// Entries returns a copy of the full rendered list for roleType, hidden
// entries included.
func (b *Board) Entries(roleType rbac.RoleType) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.entries[roleType]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// NoticeShown reports whether the "no matching roles" notice is up for
// roleType.
func (b *Board) NoticeShown(roleType rbac.RoleType) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.notices[roleType]
}
