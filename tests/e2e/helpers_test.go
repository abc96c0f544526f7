package e2e_test

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// binDir holds the actionsim binary shared by every test in the package.
var binDir string

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "actionsim-e2e-")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	binDir = dir
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

// buildBinary compiles cmd/actionsim once per test binary.
var buildBinary = sync.OnceValues(func() (string, error) {
	name := "actionsim"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	binary := filepath.Join(binDir, name)
	build := exec.Command("go", "build", "-o", binary, "./cmd/actionsim")
	build.Dir = projectRoot()
	build.Env = append(os.Environ(), "CGO_ENABLED=0")
	if out, err := build.CombinedOutput(); err != nil {
		return "", fmt.Errorf("building actionsim: %w\n%s", err, out)
	}
	return binary, nil
})

// testProject is an isolated working directory for one test.
type testProject struct {
	Dir        string
	BinaryPath string
	t          *testing.T
}

// newTestProject returns a fresh project directory using the shared
// binary.
func newTestProject(t *testing.T) *testProject {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping E2E test in short mode")
	}
	binary, err := buildBinary()
	require.NoError(t, err)
	return &testProject{Dir: t.TempDir(), BinaryPath: binary, t: t}
}

// projectRoot returns the repository root, two directories above this file.
func projectRoot() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "..", "..")
}

// writeFile writes content to rel inside the project, creating parents.
func (tp *testProject) writeFile(rel, content string) string {
	tp.t.Helper()
	path := filepath.Join(tp.Dir, filepath.FromSlash(rel))
	require.NoError(tp.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(tp.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// writeConfig writes content to actionsim.toml in tp.Dir.
func (tp *testProject) writeConfig(content string) {
	tp.t.Helper()
	tp.writeFile("actionsim.toml", content)
}

// run creates an exec.Cmd for actionsim inside the project directory.
func (tp *testProject) run(args ...string) *exec.Cmd {
	cmd := exec.Command(tp.BinaryPath, args...)
	cmd.Dir = tp.Dir
	cmd.Env = append(os.Environ(),
		"NO_COLOR=1",
		"ACTIONSIM_LOG_FORMAT=json",
	)
	return cmd
}

// runStdout runs actionsim, asserts exit code 0 and returns stdout only.
func (tp *testProject) runStdout(args ...string) string {
	tp.t.Helper()
	cmd := tp.run(args...)
	var stderr []byte
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr = exitErr.Stderr
	}
	require.NoError(tp.t, err, "actionsim %v failed:\n%s", args, string(stderr))
	return string(out)
}

// runExpectSuccess runs actionsim and asserts exit code 0.
// Returns combined stdout+stderr output.
func (tp *testProject) runExpectSuccess(args ...string) string {
	tp.t.Helper()
	out, err := tp.run(args...).CombinedOutput()
	require.NoError(tp.t, err, "actionsim %v failed:\n%s", args, string(out))
	return string(out)
}

// runExpectFailure runs actionsim and asserts a non-zero exit code.
// Returns combined output and the exit code.
func (tp *testProject) runExpectFailure(args ...string) (string, int) {
	tp.t.Helper()
	out, err := tp.run(args...).CombinedOutput()
	require.Error(tp.t, err, "actionsim %v expected to fail but succeeded:\n%s", args, string(out))
	var exitErr *exec.ExitError
	require.True(tp.t, errors.As(err, &exitErr), "expected *exec.ExitError, got %T: %v", err, err)
	return string(out), exitErr.ExitCode()
}

// ciWorkflow is a two-job workflow where deploy only runs for pushes.
const ciWorkflow = `name: CI
on:
  push:
    branches: [main]
    paths: ['src/**']
  pull_request:
jobs:
  build:
    runs-on: ubuntu-latest
    outputs:
      artifact: ${{ steps.pack.outputs.name }}
    steps:
      - uses: actions/checkout@v4
      - id: pack
        run: echo "name=app-${{ github.sha }}" >> "$GITHUB_OUTPUT"
  deploy:
    needs: build
    if: github.event_name == 'push'
    runs-on: ubuntu-latest
    steps:
      - run: ./deploy.sh
`

// minimalConfig returns an actionsim.toml whose push event targets branch.
func minimalConfig(branch string) string {
	return fmt.Sprintf(`[simulation]
source_path = ".github/workflows/ci.yml"

[output]
format = "text"

[events.push]
branch = %q
files = ["src/main.go"]
`, branch)
}
