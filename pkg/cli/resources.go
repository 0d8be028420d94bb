package cli

import (
	"flag"
	"fmt"
)

func newFoldersCommand() *Command {
	cmd := &Command{
		Name:        "folders",
		Description: "List folders known to the server",
		Flags:       flag.NewFlagSet("folders", flag.ExitOnError),
		Run:         runFolders,
	}

	cmd.Flags.String("server", "http://localhost:8080", "Server URL")

	return cmd
}

func runFolders(args []string) error {
	cmd := newFoldersCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	return printResources(cmd.Flags.Lookup("server").Value.String(), "/folder-auth/getAllFolders")
}

func newAgentsCommand() *Command {
	cmd := &Command{
		Name:        "agents",
		Description: "List agents known to the server",
		Flags:       flag.NewFlagSet("agents", flag.ExitOnError),
		Run:         runAgents,
	}

	cmd.Flags.String("server", "http://localhost:8080", "Server URL")

	return cmd
}

func runAgents(args []string) error {
	cmd := newAgentsCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	return printResources(cmd.Flags.Lookup("server").Value.String(), "/folder-auth/getAllAgents")
}

func printResources(server, path string) error {
	var names []string
	if err := fetchJSON(server, path, &names); err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("(none)")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
