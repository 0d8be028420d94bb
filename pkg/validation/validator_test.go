package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folderguard/folderguard/pkg/rbac"
)

func TestValidateRoleSubmission(t *testing.T) {
	sub, err := ValidateRoleSubmission(rbac.RoleTypeFolder, "release-managers",
		[]string{"Job.Build", "Job.Read"},
		[]string{"team-a", "team-b"},
	)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleTypeFolder, sub.Type)
	assert.Equal(t, "release-managers", sub.Name)
	assert.Equal(t, []string{"Job.Build", "Job.Read"}, sub.Permissions)
	assert.Equal(t, []string{"team-a", "team-b"}, sub.ResourceNames)
}

func TestValidateRoleSubmissionGlobalIgnoresResources(t *testing.T) {
	sub, err := ValidateRoleSubmission(rbac.RoleTypeGlobal, "auditors",
		[]string{"Overall.Read"}, nil)
	require.NoError(t, err)
	assert.Empty(t, sub.ResourceNames)
}

func TestValidateRoleSubmissionFailFast(t *testing.T) {
	tests := []struct {
		name          string
		roleType      rbac.RoleType
		roleName      string
		permissions   []string
		resourceNames []string
		wantRule      Rule
		wantMessage   string
	}{
		{
			name:        "empty name",
			roleType:    rbac.RoleTypeGlobal,
			roleName:    "",
			permissions: []string{"Overall.Read"},
			wantRule:    RuleInvalidName,
			wantMessage: "Please enter a valid name for the role to be added.",
		},
		{
			name:        "short name",
			roleType:    rbac.RoleTypeGlobal,
			roleName:    "qa",
			permissions: []string{"Overall.Read"},
			wantRule:    RuleInvalidName,
		},
		{
			name:        "name checked before permissions",
			roleType:    rbac.RoleTypeFolder,
			roleName:    "x",
			permissions: nil,
			wantRule:    RuleInvalidName,
		},
		{
			name:        "no permissions",
			roleType:    rbac.RoleTypeGlobal,
			roleName:    "auditors",
			permissions: nil,
			wantRule:    RuleNoPermissionsSelected,
			wantMessage: "Please select at least one permission",
		},
		{
			name:          "permissions checked before resources",
			roleType:      rbac.RoleTypeFolder,
			roleName:      "deployers",
			permissions:   nil,
			resourceNames: nil,
			wantRule:      RuleNoPermissionsSelected,
		},
		{
			name:        "folder role without resources",
			roleType:    rbac.RoleTypeFolder,
			roleName:    "deployers",
			permissions: []string{"Job.Build"},
			wantRule:    RuleNoResourcesSelected,
			wantMessage: "Please select at least one folder on which this role will be applicable",
		},
		{
			name:        "agent role without resources",
			roleType:    rbac.RoleTypeAgent,
			roleName:    "operators",
			permissions: []string{"Agent.Connect"},
			wantRule:    RuleNoResourcesSelected,
			wantMessage: "Please select at least one agent on which this role will be applicable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := ValidateRoleSubmission(tt.roleType, tt.roleName, tt.permissions, tt.resourceNames)
			require.Error(t, err)
			assert.Nil(t, sub)

			var verr *Error
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantRule, verr.Rule)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, verr.Message)
			}
		})
	}
}

func TestValidateRoleSubmissionUnknownType(t *testing.T) {
	_, err := ValidateRoleSubmission(rbac.RoleType("project"), "deployers",
		[]string{"Job.Build"}, []string{"team-a"})
	var unknown *rbac.UnknownRoleTypeError
	require.True(t, errors.As(err, &unknown))
}

func TestValidateRoleSubmissionDeduplicates(t *testing.T) {
	sub, err := ValidateRoleSubmission(rbac.RoleTypeFolder, "deployers",
		[]string{"Job.Build", "Job.Build", "Job.Read"},
		[]string{"team-a", "team-a"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"Job.Build", "Job.Read"}, sub.Permissions)
	assert.Equal(t, []string{"team-a"}, sub.ResourceNames)
}
