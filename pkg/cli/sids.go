package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/folderguard/folderguard/pkg/client"
	"github.com/folderguard/folderguard/pkg/rbac"
)

func newAssignSidCommand() *Command {
	cmd := &Command{
		Name:        "assign-sid",
		Description: "Assign a user or group to a role",
		Flags:       flag.NewFlagSet("assign-sid", flag.ExitOnError),
		Run:         runAssignSid,
	}

	cmd.Flags.String("server", "http://localhost:8080", "Server URL")
	cmd.Flags.String("type", "", "Role type (global, folder or agent)")
	cmd.Flags.String("role", "", "Role name")
	cmd.Flags.String("sid", "", "User or group ID")

	return cmd
}

func runAssignSid(args []string) error {
	cmd := newAssignSidCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	return sidMutation(cmd, "assign")
}

func newRemoveSidCommand() *Command {
	cmd := &Command{
		Name:        "remove-sid",
		Description: "Remove a user or group from a role",
		Flags:       flag.NewFlagSet("remove-sid", flag.ExitOnError),
		Run:         runRemoveSid,
	}

	cmd.Flags.String("server", "http://localhost:8080", "Server URL")
	cmd.Flags.String("type", "", "Role type (global, folder or agent)")
	cmd.Flags.String("role", "", "Role name")
	cmd.Flags.String("sid", "", "User or group ID")

	return cmd
}

func runRemoveSid(args []string) error {
	cmd := newRemoveSidCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	return sidMutation(cmd, "remove")
}

func sidMutation(cmd *Command, action string) error {
	server := cmd.Flags.Lookup("server").Value.String()
	typeName := cmd.Flags.Lookup("type").Value.String()
	role := cmd.Flags.Lookup("role").Value.String()
	sid := cmd.Flags.Lookup("sid").Value.String()

	roleType, err := rbac.ParseRoleType(typeName)
	if err != nil {
		return err
	}
	if role == "" || sid == "" {
		return fmt.Errorf("role and sid are required")
	}

	c := client.New(server, nil, nil, nil)
	ctx := context.Background()
	if err := c.FetchCrumb(ctx); err != nil {
		return err
	}

	switch action {
	case "assign":
		if err := c.AssignSid(ctx, roleType, role, sid); err != nil {
			return err
		}
		fmt.Printf("Assigned %s to %s role %s\n", sid, roleType, role)
	case "remove":
		if err := c.RemoveSid(ctx, roleType, role, sid); err != nil {
			return err
		}
		fmt.Printf("Removed %s from %s role %s\n", sid, roleType, role)
	}

	return nil
}
