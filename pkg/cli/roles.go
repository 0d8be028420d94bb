package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/folderguard/folderguard/pkg/client"
	"github.com/folderguard/folderguard/pkg/rbac"
	"github.com/folderguard/folderguard/pkg/validation"
)

func newListRolesCommand() *Command {
	cmd := &Command{
		Name:        "list-roles",
		Description: "List roles registered on the server",
		Flags:       flag.NewFlagSet("list-roles", flag.ExitOnError),
		Run:         runListRoles,
	}

	cmd.Flags.String("server", "http://localhost:8080", "Server URL")
	cmd.Flags.String("type", "", "Role type (global, folder or agent); all types when empty")

	return cmd
}

func runListRoles(args []string) error {
	cmd := newListRolesCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	server := cmd.Flags.Lookup("server").Value.String()
	typeName := cmd.Flags.Lookup("type").Value.String()

	var all map[rbac.RoleType][]rbac.Role
	if err := fetchJSON(server, "/folder-auth/getAllRoles", &all); err != nil {
		return err
	}

	types := rbac.RoleTypes()
	if typeName != "" {
		roleType, err := rbac.ParseRoleType(typeName)
		if err != nil {
			return err
		}
		types = []rbac.RoleType{roleType}
	}

	for _, roleType := range types {
		fmt.Printf("%s roles:\n", roleType)
		roles := all[roleType]
		sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
		if len(roles) == 0 {
			fmt.Printf("  (none)\n")
			continue
		}
		for _, role := range roles {
			fmt.Printf("  %s\n", role.Name)
			fmt.Printf("    permissions: %s\n", strings.Join(role.Permissions, ", "))
			if len(role.ResourceNames) > 0 {
				fmt.Printf("    resources:   %s\n", strings.Join(role.ResourceNames, ", "))
			}
			if len(role.Sids) > 0 {
				fmt.Printf("    sids:        %s\n", strings.Join(role.Sids, ", "))
			}
		}
	}

	return nil
}

func newAddRoleCommand() *Command {
	cmd := &Command{
		Name:        "add-role",
		Description: "Add a role",
		Flags:       flag.NewFlagSet("add-role", flag.ExitOnError),
		Run:         runAddRole,
	}

	cmd.Flags.String("server", "http://localhost:8080", "Server URL")
	cmd.Flags.String("type", "", "Role type (global, folder or agent)")
	cmd.Flags.String("name", "", "Role name")
	cmd.Flags.String("permissions", "", "Comma-separated permission IDs")
	cmd.Flags.String("resources", "", "Comma-separated folder or agent names")

	return cmd
}

func runAddRole(args []string) error {
	cmd := newAddRoleCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	server := cmd.Flags.Lookup("server").Value.String()
	typeName := cmd.Flags.Lookup("type").Value.String()
	name := cmd.Flags.Lookup("name").Value.String()
	permissions := splitList(cmd.Flags.Lookup("permissions").Value.String())
	resources := splitList(cmd.Flags.Lookup("resources").Value.String())

	roleType, err := rbac.ParseRoleType(typeName)
	if err != nil {
		return err
	}

	sub, err := validation.ValidateRoleSubmission(roleType, name, permissions, resources)
	if err != nil {
		return err
	}

	c := client.New(server, nil, nil, nil)
	ctx := context.Background()
	if err := c.FetchCrumb(ctx); err != nil {
		return err
	}
	if err := c.AddRole(ctx, sub); err != nil {
		return err
	}

	fmt.Printf("Successfully added %s role %s\n", roleType, name)
	return nil
}

func newDeleteRoleCommand() *Command {
	cmd := &Command{
		Name:        "delete-role",
		Description: "Delete a role",
		Flags:       flag.NewFlagSet("delete-role", flag.ExitOnError),
		Run:         runDeleteRole,
	}

	cmd.Flags.String("server", "http://localhost:8080", "Server URL")
	cmd.Flags.String("type", "", "Role type (global, folder or agent)")
	cmd.Flags.String("name", "", "Role name")
	cmd.Flags.Bool("yes", false, "Skip the confirmation prompt")

	return cmd
}

func runDeleteRole(args []string) error {
	cmd := newDeleteRoleCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	server := cmd.Flags.Lookup("server").Value.String()
	typeName := cmd.Flags.Lookup("type").Value.String()
	name := cmd.Flags.Lookup("name").Value.String()
	yes := cmd.Flags.Lookup("yes").Value.String() == "true"

	roleType, err := rbac.ParseRoleType(typeName)
	if err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("name is required")
	}

	confirmer := client.ConfirmerFunc(func(prompt string) bool {
		if yes {
			return true
		}
		fmt.Printf("%s [y/N]: ", prompt)
		reader := bufio.NewReader(os.Stdin)
		line, _ := reader.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	})

	c := client.New(server, nil, nil, nil)
	ctx := context.Background()
	if err := c.FetchCrumb(ctx); err != nil {
		return err
	}
	err = c.DeleteRole(ctx, roleType, name, confirmer)
	if errors.Is(err, client.ErrDeleteCancelled) {
		fmt.Printf("Cancelled; %s role %s was not deleted\n", roleType, name)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Deleted %s role %s\n", roleType, name)
	return nil
}

// fetchJSON gets a JSON document from the server
func fetchJSON(server, path string, dest interface{}) error {
	resp, err := http.Get(strings.TrimSuffix(server, "/") + path)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return json.NewDecoder(resp.Body).Decode(dest)
}

// splitList parses a comma-separated flag value
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
