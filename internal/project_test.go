package internal_test

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// internalPackages lists every package under internal/.
var internalPackages = []string{
	"buildinfo", "cli", "config", "event", "expr", "git",
	"logging", "render", "simulate", "trigger", "workflow",
}

// projectRoot returns the absolute path to the project root directory.
// It walks up from the working directory until it finds go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err, "failed to get working directory")

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (no go.mod found in any parent directory)")
		}
		dir = parent
	}
}

// readFileContent reads a file and returns its content as a string.
func readFileContent(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read file: %s", path)
	return string(data)
}

// sourceFiles returns the non-test Go files of an internal package.
func sourceFiles(t *testing.T, pkg string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(projectRoot(t), "internal", pkg, "*.go"))
	require.NoError(t, err)
	var files []string
	for _, m := range matches {
		if !strings.HasSuffix(m, "_test.go") {
			files = append(files, m)
		}
	}
	return files
}

func TestInternalSubpackages_Exist(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)
	for _, pkg := range internalPackages {
		t.Run(pkg, func(t *testing.T) {
			t.Parallel()

			info, err := os.Stat(filepath.Join(root, "internal", pkg))
			require.NoError(t, err, "internal/%s directory does not exist", pkg)
			assert.True(t, info.IsDir(), "internal/%s is not a directory", pkg)

			files := sourceFiles(t, pkg)
			require.NotEmpty(t, files, "internal/%s has no source files", pkg)
			for _, f := range files {
				assert.Contains(t, readFileContent(t, f), "package "+pkg+"\n",
					"%s must declare package %s", f, pkg)
			}
		})
	}
}

func TestInternalSubpackages_Count(t *testing.T) {
	t.Parallel()

	entries, err := os.ReadDir(filepath.Join(projectRoot(t), "internal"))
	require.NoError(t, err, "failed to read internal/ directory")

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	assert.ElementsMatch(t, internalPackages, dirs)
}

func TestInternalSubpackages_HavePackageComment(t *testing.T) {
	t.Parallel()

	for _, pkg := range internalPackages {
		t.Run(pkg, func(t *testing.T) {
			t.Parallel()

			want := "// Package " + pkg + " "
			count := 0
			for _, f := range sourceFiles(t, pkg) {
				if strings.Contains(readFileContent(t, f), want) {
					count++
				}
			}
			assert.Equal(t, 1, count,
				"internal/%s should carry exactly one doc comment starting with %q", pkg, want)
		})
	}
}

func TestGoMod_ModulePath(t *testing.T) {
	t.Parallel()

	content := readFileContent(t, filepath.Join(projectRoot(t), "go.mod"))
	assert.Contains(t, content, "module github.com/AbdelazizMoustafa10m/actionsim\n")
}

func TestGoMod_GoDirective(t *testing.T) {
	t.Parallel()

	content := readFileContent(t, filepath.Join(projectRoot(t), "go.mod"))
	assert.Contains(t, content, "go 1.24", "go.mod must have a Go 1.24+ directive")
}

func TestGoMod_DirectDependencies(t *testing.T) {
	t.Parallel()

	content := readFileContent(t, filepath.Join(projectRoot(t), "go.mod"))

	expectedDeps := []struct {
		name       string
		modulePath string
		minVersion string
	}{
		{name: "cobra", modulePath: "github.com/spf13/cobra", minVersion: "v1.10"},
		{name: "pflag", modulePath: "github.com/spf13/pflag"},
		{name: "lipgloss", modulePath: "github.com/charmbracelet/lipgloss"},
		{name: "log", modulePath: "github.com/charmbracelet/log"},
		{name: "termenv", modulePath: "github.com/muesli/termenv"},
		{name: "toml", modulePath: "github.com/BurntSushi/toml", minVersion: "v1.5.0"},
		{name: "yaml", modulePath: "gopkg.in/yaml.v3"},
		{name: "sync", modulePath: "golang.org/x/sync", minVersion: "v0.19"},
		{name: "doublestar", modulePath: "github.com/bmatcuk/doublestar/v4", minVersion: "v4.10"},
		{name: "xxhash", modulePath: "github.com/cespare/xxhash/v2"},
		{name: "validator", modulePath: "github.com/go-playground/validator/v10"},
		{name: "gojsonschema", modulePath: "github.com/xeipuuv/gojsonschema"},
		{name: "testify", modulePath: "github.com/stretchr/testify"},
		{name: "rapid", modulePath: "pgregory.net/rapid"},
		{name: "gopter", modulePath: "github.com/leanovate/gopter"},
	}

	for _, dep := range expectedDeps {
		t.Run(dep.name, func(t *testing.T) {
			t.Parallel()

			var line string
			scanner := bufio.NewScanner(strings.NewReader(content))
			for scanner.Scan() {
				l := strings.TrimSpace(scanner.Text())
				if strings.HasPrefix(l, dep.modulePath+" ") {
					line = l
					break
				}
			}
			require.NotEmpty(t, line, "go.mod must require %s", dep.modulePath)
			assert.NotContains(t, line, "// indirect", "%s must be a direct dependency", dep.modulePath)
			if dep.minVersion != "" {
				assert.Contains(t, line, dep.minVersion,
					"dependency %s must be at least version %s", dep.modulePath, dep.minVersion)
			}
		})
	}
}

func TestGoMod_NoRetiredDependencies(t *testing.T) {
	t.Parallel()

	content := readFileContent(t, filepath.Join(projectRoot(t), "go.mod"))
	for _, dep := range []string{
		"github.com/charmbracelet/bubbletea",
		"github.com/charmbracelet/bubbles",
		"github.com/charmbracelet/huh",
	} {
		assert.NotContains(t, content, dep)
	}
}

func TestGoMod_NoReplaceDirectives(t *testing.T) {
	t.Parallel()

	content := readFileContent(t, filepath.Join(projectRoot(t), "go.mod"))
	assert.NotContains(t, content, "replace ", "go.mod must not contain replace directives")
}

func TestMainGo(t *testing.T) {
	t.Parallel()

	content := readFileContent(t, filepath.Join(projectRoot(t), "cmd", "actionsim", "main.go"))
	assert.Contains(t, content, "package main")
	assert.Contains(t, content, "func main()")
	assert.Contains(t, content, "cli.Execute()")
	assert.NotContains(t, content, "func init()")
}

func TestPublicPackage_Exists(t *testing.T) {
	t.Parallel()

	content := readFileContent(t, filepath.Join(projectRoot(t), "pkg", "actionsim", "actionsim.go"))
	assert.Contains(t, content, "// Package actionsim ")
}
