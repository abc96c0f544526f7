package config

import (
	"os"
	"path/filepath"
	"testing"
)

const benchTOML = `
[simulation]
source_path = ".github/workflows/ci.yml"
max_matrix_combinations = 128

[output]
format = "json"
digest = true

[events.push]
branch = "main"
files = ["go.mod", "cmd/main.go", "internal/simulate/engine.go"]

[events.pull_request]
branch = "main"
action = "synchronize"
`

func writeBenchConfig(b *testing.B) string {
	b.Helper()
	path := filepath.Join(b.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte(benchTOML), 0o644); err != nil {
		b.Fatalf("writing bench config: %v", err)
	}
	return path
}

func BenchmarkLoadFromFile(b *testing.B) {
	path := writeBenchConfig(b)
	for b.Loop() {
		if _, _, err := LoadFromFile(path); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkResolveAndValidate(b *testing.B) {
	cfg, md, err := LoadFromFile(writeBenchConfig(b))
	if err != nil {
		b.Fatal(err)
	}
	env := func(key string) (string, bool) {
		if key == EnvFormat {
			return "text", true
		}
		return "", false
	}
	for b.Loop() {
		rc := Resolve(NewDefaults(), cfg, env, nil)
		if vr := Validate(rc.Config, &md); vr.HasErrors() {
			b.Fatal(vr.Err())
		}
	}
}
