package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "karma", cmd.Use)
	assert.Contains(t, cmd.Long, "audit chain")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"register"},
		{"act"},
		{"status"},
		{"users"},
		{"debt", "create"},
		{"debt", "repay"},
		{"debt", "transfer"},
		{"debt", "summary"},
		{"debt", "list"},
		{"debt", "communities"},
		{"debt", "cycles"},
		{"lifecycle", "prarabdha"},
		{"lifecycle", "check"},
		{"lifecycle", "death"},
		{"lifecycle", "rebirth"},
		{"audit", "verify"},
		{"audit", "log"},
		{"audit", "snapshot"},
		{"bridge", "health"},
		{"config", "show"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)

	require.NotNil(t, cmd.PersistentFlags().Lookup("db"))
}

func TestActCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	actCmd, _, err := cmd.Find([]string{"act"})
	require.NoError(t, err)

	intensity := actCmd.Flags().Lookup("intensity")
	require.NotNil(t, intensity)
	assert.Equal(t, "1", intensity.DefValue)

	require.NotNil(t, actCmd.Flags().Lookup("affected"))

	description := actCmd.Flags().Lookup("description")
	require.NotNil(t, description)
	assert.Equal(t, "d", description.Shorthand)
}

func TestDebtCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	createCmd, _, err := cmd.Find([]string{"debt", "create"})
	require.NoError(t, err)
	severity := createCmd.Flags().Lookup("severity")
	require.NotNil(t, severity)
	assert.Equal(t, "minor", severity.DefValue)
	require.NotNil(t, createCmd.Flags().Lookup("amount"))

	repayCmd, _, err := cmd.Find([]string{"debt", "repay"})
	require.NoError(t, err)
	method := repayCmd.Flags().Lookup("method")
	require.NotNil(t, method)
	assert.Equal(t, "seva", method.DefValue)

	cyclesCmd, _, err := cmd.Find([]string{"debt", "cycles"})
	require.NoError(t, err)
	depth := cyclesCmd.Flags().Lookup("max-depth")
	require.NotNil(t, depth)
	assert.Equal(t, "6", depth.DefValue)
}

func TestAuditCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	snapCmd, _, err := cmd.Find([]string{"audit", "snapshot"})
	require.NoError(t, err)

	from := snapCmd.Flags().Lookup("from")
	require.NotNil(t, from)
	assert.Equal(t, "0", from.DefValue)

	to := snapCmd.Flags().Lookup("to")
	require.NotNil(t, to)
	assert.Equal(t, "-1", to.DefValue)
}

func TestFormatValidation(t *testing.T) {
	// Test valid formats
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	// Test invalid formats
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "users"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
