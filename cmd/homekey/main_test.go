package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homekey/stage-tracker/internal/store/storetest"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "seed", "dashboard"}, names)
}

func TestLoadEnv(t *testing.T) {
	assert.NoError(t, loadEnv(filepath.Join(t.TempDir(), "missing.env")))
	assert.NoError(t, loadEnv(""))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HOMEKEY_TEST_VALUE=from-dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("HOMEKEY_TEST_VALUE") })

	require.NoError(t, loadEnv(path))
	assert.Equal(t, "from-dotenv", os.Getenv("HOMEKEY_TEST_VALUE"))
}

func TestDashboardCmd_InvalidType(t *testing.T) {
	t.Setenv("HOMEKEY_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"dashboard", "--type", "agent", "--env-file", ""})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be buyer or seller")
}

func TestSeedCmd(t *testing.T) {
	srv := storetest.NewServer(t)
	srv.RequireAuth("admin@example.com", "secret")
	srv.Seed("stages", map[string]interface{}{"type": "buyer", "title": "Appraisal"})

	checklist := filepath.Join(t.TempDir(), "tasks.yaml")
	require.NoError(t, os.WriteFile(checklist, []byte("stages:\n  Appraisal:\n    - Order appraisal\n    - Review report\n"), 0o600))

	t.Setenv("HOMEKEY_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("HOMEKEY_STORE_URL", srv.URL)
	t.Setenv("HOMEKEY_STORE_IDENTITY", "admin@example.com")
	t.Setenv("HOMEKEY_STORE_PASSWORD", "secret")
	t.Setenv("HOMEKEY_OBSERVABILITY_LOGGING_LEVEL", "error")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"seed", "--file", checklist, "--env-file", ""})

	require.NoError(t, root.Execute())
	assert.Equal(t, "created 2 tasks, 0 failed, 0 stages without checklist\n", out.String())
	assert.Equal(t, 2, srv.Count("tasks"))
	assert.Equal(t, 1, srv.Requests("POST auth"))
}
