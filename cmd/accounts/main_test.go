package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	err := run(context.Background(), args, bytes.NewBufferString(stdin), stdout, stderr)
	return stdout.String(), err
}

func TestAddAndDelete(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "accounts.db")

	out, err := runCmd(t, "", "add", "-name", "Alice", "-email", "Alice@X.com", "-password", "secret1", "-db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "User alice@x.com created successfully")

	_, err = runCmd(t, "", "add", "-name", "Alice", "-email", "alice@x.com", "-password", "secret1", "-db", dbPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	out, err = runCmd(t, "", "delete", "-email", "alice@x.com", "-db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")

	_, err = runCmd(t, "", "delete", "-email", "alice@x.com", "-db", dbPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestAddReadsPasswordFromStdin(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "accounts.db")

	out, err := runCmd(t, "piped-secret\n", "add", "-name", "Bob", "-email", "bob@x.com", "-db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Password: ")
	assert.Contains(t, out, "created successfully")
}

func TestAddRejectsShortPassword(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "accounts.db")

	_, err := runCmd(t, "", "add", "-name", "Bob", "-email", "bob@x.com", "-password", "123", "-db", dbPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password must be at least 6 characters")
}

func TestUsageErrors(t *testing.T) {
	_, err := runCmd(t, "")
	assert.EqualError(t, err, "missing command")

	_, err = runCmd(t, "", "rename")
	assert.Contains(t, err.Error(), "unknown command")

	_, err = runCmd(t, "", "add", "-name", "Bob")
	assert.Contains(t, err.Error(), "missing required flags")
}
