package cli

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand()

	assert.Equal(t, "folderguard", root.Name)
	assert.Equal(t, "FolderGuard - folder-scoped role administration CLI", root.Description)
	assert.NotNil(t, root.Subcommands)
	assert.NotNil(t, root.Flags)

	expectedCommands := []string{
		"list-roles",
		"add-role",
		"delete-role",
		"assign-sid",
		"remove-sid",
		"folders",
		"agents",
	}

	for _, cmdName := range expectedCommands {
		assert.Contains(t, root.Subcommands, cmdName, "Expected subcommand %s to be registered", cmdName)
		assert.NotNil(t, root.Subcommands[cmdName], "Expected subcommand %s to be non-nil", cmdName)
	}

	assert.Equal(t, len(expectedCommands), len(root.Subcommands))
}

func TestCommandUsage(t *testing.T) {
	root := NewRootCommand()

	output := captureStdout(t, func() {
		err := root.usage()
		assert.NoError(t, err)
	})

	assert.Contains(t, output, "Usage: folderguard <command> [args]")
	assert.Contains(t, output, "Commands:")
	assert.Contains(t, output, "list-roles")
	assert.Contains(t, output, "add-role")
	assert.Contains(t, output, "delete-role")
	assert.Contains(t, output, "assign-sid")
	assert.Contains(t, output, "remove-sid")
	assert.Contains(t, output, "folders")
	assert.Contains(t, output, "agents")
}

func TestCommandExecute_NoArgs(t *testing.T) {
	root := NewRootCommand()

	oldArgs := os.Args
	os.Args = []string{"folderguard"}
	defer func() { os.Args = oldArgs }()

	output := captureStdout(t, func() {
		err := root.Execute()
		assert.NoError(t, err)
	})

	assert.Contains(t, output, "Usage: folderguard <command> [args]")
}

func TestCommandExecute_UnknownCommand(t *testing.T) {
	root := NewRootCommand()

	oldArgs := os.Args
	os.Args = []string{"folderguard", "nonexistent"}
	defer func() { os.Args = oldArgs }()

	err := root.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command: nonexistent")
}

func TestCommandExecute_SubcommandWithArgs(t *testing.T) {
	root := NewRootCommand()

	var receivedArgs []string
	root.Subcommands["test"] = &Command{
		Name:        "test",
		Description: "Test command",
		Run: func(args []string) error {
			receivedArgs = args
			return nil
		},
	}

	oldArgs := os.Args
	os.Args = []string{"folderguard", "test", "arg1", "-flag"}
	defer func() { os.Args = oldArgs }()

	err := root.Execute()

	assert.NoError(t, err)
	require.Equal(t, []string{"arg1", "-flag"}, receivedArgs)
}

// captureStdout runs fn and returns everything it wrote to stdout.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}
