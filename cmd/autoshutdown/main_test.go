package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/autoshutdown/internal/journal"
	"github.com/yairfalse/autoshutdown/internal/shutdown"
)

func TestRootCommand_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"run", "list", "history", "serve"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestFormatTags(t *testing.T) {
	tags := map[string]string{"Environment": "Dev", "AutoShutdown": "True", "Name": "web"}

	assert.Equal(t, "AutoShutdown=True,Environment=Dev,Name=web", formatTags(tags))
	assert.Equal(t, "", formatTags(map[string]string{}))
}

func TestWriteInstances(t *testing.T) {
	k, v := "Environment", "Dev"
	var buf bytes.Buffer

	require.NoError(t, writeInstances(&buf, []shutdown.Instance{
		{ID: "i-1234", State: shutdown.StateRunning, Tags: []shutdown.Tag{{Key: &k, Value: &v}}},
	}))

	assert.Contains(t, buf.String(), "INSTANCE")
	assert.Contains(t, buf.String(), "i-1234")
	assert.Contains(t, buf.String(), "Environment=Dev")

	buf.Reset()
	require.NoError(t, writeInstances(&buf, nil))
	assert.Equal(t, "No matching running instances.\n", buf.String())
}

func TestHistory_FromJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := journal.Open(path)
	require.NoError(t, err)
	require.NoError(t, j.BatchPut(context.Background(), []shutdown.LogEntry{
		{ExecutionID: "exec-77", InstanceID: "i-1234", ShutdownTimestamp: 1700000000, Tags: map[string]string{"Environment": "Dev"}},
		{ExecutionID: "exec-78", InstanceID: "i-5678", ShutdownTimestamp: 1700000100, Tags: map[string]string{}},
	}))
	require.NoError(t, j.Close())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"history", "--journal", path, "--execution", "exec-77"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		historyExecution = ""
		historyJournal = ""
	})

	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "i-1234")
	assert.Contains(t, out.String(), "2023-11-14T22:13:20Z")
	assert.NotContains(t, out.String(), "i-5678")
}

func TestWriteEntries_Empty(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, writeEntries(&buf, nil))
	assert.Equal(t, "No shutdowns recorded.\n", buf.String())
}
