package rbac

// Permission identifiers are opaque strings drawn from a fixed, type-scoped
// catalog. The catalog is the final word on what may appear in a role's
// permission set; submissions referencing anything else are rejected with
// InvalidPermissionError.

// Global permissions cover administration of the host itself plus everything
// the folder namespace offers.
var globalPermissions = []string{
	"Overall.Administer",
	"Overall.Read",
	"Job.Build",
	"Job.Cancel",
	"Job.Configure",
	"Job.Create",
	"Job.Delete",
	"Job.Discover",
	"Job.Move",
	"Job.Read",
	"Job.Workspace",
	"Run.Delete",
	"Run.Replay",
	"Run.Update",
	"View.Configure",
	"View.Create",
	"View.Delete",
	"View.Read",
	"SCM.Tag",
	"Agent.Build",
	"Agent.Configure",
	"Agent.Connect",
	"Agent.Create",
	"Agent.Delete",
	"Agent.Disconnect",
}

// Folder permissions exclude host-wide administration and agent control.
var folderPermissions = []string{
	"Job.Build",
	"Job.Cancel",
	"Job.Configure",
	"Job.Create",
	"Job.Delete",
	"Job.Discover",
	"Job.Move",
	"Job.Read",
	"Job.Workspace",
	"Run.Delete",
	"Run.Replay",
	"Run.Update",
	"View.Configure",
	"View.Create",
	"View.Delete",
	"View.Read",
	"SCM.Tag",
}

// Agent permissions cover only agent lifecycle control.
var agentPermissions = []string{
	"Agent.Build",
	"Agent.Configure",
	"Agent.Connect",
	"Agent.Create",
	"Agent.Delete",
	"Agent.Disconnect",
}

// PermissionCatalog returns the permissions available to roles of the given
// type. The returned slice is a copy; callers may mutate it freely.
func PermissionCatalog(t RoleType) []string {
	var src []string
	switch t {
	case RoleTypeGlobal:
		src = globalPermissions
	case RoleTypeFolder:
		src = folderPermissions
	case RoleTypeAgent:
		src = agentPermissions
	default:
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// PermissionInCatalog reports whether p is a valid permission for role type t.
func PermissionInCatalog(t RoleType, p string) bool {
	for _, known := range PermissionCatalog(t) {
		if known == p {
			return true
		}
	}
	return false
}
