// Command gen-completions writes the actionsim shell completion scripts into
// a directory for release archives.
//
//	go run ./scripts/gen-completions [output-dir]   (default "completions")
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/cli"
)

func main() {
	outDir := "completions"
	if len(os.Args) > 1 {
		outDir = os.Args[1]
	}
	if err := run(outDir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir %q: %w", outDir, err)
	}
	for _, script := range cli.CompletionScripts(cli.NewRootCmd()) {
		path := filepath.Join(outDir, script.File)
		if err := writeScript(path, script); err != nil {
			return err
		}
		fmt.Printf("%-10s %s\n", script.Shell, path)
	}
	return nil
}

func writeScript(path string, script cli.CompletionScript) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %q: %w", path, err)
	}
	if err := script.Generate(f); err != nil {
		f.Close()
		return fmt.Errorf("generating %s completion: %w", script.Shell, err)
	}
	return f.Close()
}
