package e2e_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	tp := newTestProject(t)
	out := tp.runExpectSuccess("version")
	assert.Contains(t, out, "actionsim")
}

func TestVersionCommandJSON(t *testing.T) {
	t.Parallel()

	tp := newTestProject(t)
	out := tp.runExpectSuccess("version", "--json")
	assert.Contains(t, out, `"version"`)
}

func TestInitCommand(t *testing.T) {
	t.Parallel()

	tp := newTestProject(t)
	out := tp.runExpectSuccess("init", "go", "--name", "myproject")
	assert.Contains(t, out, "Next steps:")

	_, err := os.Stat(filepath.Join(tp.Dir, "actionsim.toml"))
	require.NoError(t, err, "actionsim.toml should be created by init")
	_, err = os.Stat(filepath.Join(tp.Dir, ".github", "workflows", "ci.yml"))
	require.NoError(t, err, "starter workflow should be created by init")

	// The starter project must simulate cleanly as generated.
	sim := tp.runStdout("simulate", ".github/workflows/ci.yml")
	assert.Contains(t, sim, "Simulation: push")
	assert.Contains(t, sim, "will run")
}

func TestInitCommandRefusesOverwrite(t *testing.T) {
	t.Parallel()

	tp := newTestProject(t)
	tp.writeConfig(minimalConfig("main"))

	out, code := tp.runExpectFailure("init")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "--force")
}

func TestConfigShowCommand(t *testing.T) {
	t.Parallel()

	tp := newTestProject(t)
	tp.writeConfig(minimalConfig("release"))

	out := tp.runExpectSuccess("config", "show")
	assert.Contains(t, out, "Resolved Configuration")
	assert.Contains(t, out, "release")
	assert.Contains(t, out, ".github/workflows/ci.yml")
}

func TestConfigDebugAlias(t *testing.T) {
	t.Parallel()

	tp := newTestProject(t)
	tp.writeConfig(minimalConfig("main"))

	out := tp.runExpectSuccess("config", "debug")
	assert.Contains(t, out, "Resolved Configuration")
}

func TestConfigValidateCommand(t *testing.T) {
	t.Parallel()

	tp := newTestProject(t)
	tp.writeConfig(minimalConfig("main"))

	out := tp.runExpectSuccess("config", "validate")
	assert.Contains(t, out, "Configuration Validation")
	assert.Contains(t, out, "No issues found.")
}

func TestConfigFlagPointsElsewhere(t *testing.T) {
	t.Parallel()

	tp := newTestProject(t)
	path := tp.writeFile("conf/alt.toml", minimalConfig("alt-branch"))

	out := tp.runExpectSuccess("config", "show", "--config", path)
	assert.Contains(t, out, "alt-branch")
}

func TestEnvOverridesConfigFile(t *testing.T) {
	t.Parallel()

	tp := newTestProject(t)
	tp.writeConfig(minimalConfig("main"))
	tp.writeFile("wf.yml", ciWorkflow)

	cmd := tp.run("simulate", "wf.yml")
	cmd.Env = append(cmd.Env, "ACTIONSIM_FORMAT=json")
	out, err := cmd.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), `{"build":`)
}
