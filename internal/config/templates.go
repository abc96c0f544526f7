package config

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/charmbracelet/log"
)

//go:embed all:templates
var templateFS embed.FS

const templatesRoot = "templates"

// Template delimiters. Workflow files are full of ${{ }} so the default
// braces cannot be used.
const (
	leftDelim  = "<<"
	rightDelim = ">>"
)

// TemplateVars holds the values substituted into .tmpl starter files.
type TemplateVars struct {
	// Name is the workflow display name, e.g. "CI".
	Name string
	// DefaultBranch is the branch pushes are filtered on.
	DefaultBranch string
	// SourcePath is the workflow's path inside the repository.
	SourcePath string
}

// ListTemplates returns the names of the embedded starter templates.
func ListTemplates() ([]string, error) {
	entries, err := templateFS.ReadDir(templatesRoot)
	if err != nil {
		return nil, fmt.Errorf("reading templates directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// TemplateExists reports whether a starter template with the given name exists.
func TemplateExists(name string) bool {
	if name == "" || strings.ContainsAny(name, `/\`) || name == ".." {
		return false
	}
	info, err := fs.Stat(templateFS, path.Join(templatesRoot, name))
	return err == nil && info.IsDir()
}

// RenderTemplate writes the named starter (a workflow and an
// actionsim.toml) into destDir. Files ending in ".tmpl" are executed with
// vars and written without the extension; others are copied as-is.
// Existing files are skipped unless force is set.
//
// It returns the paths written.
func RenderTemplate(name string, destDir string, vars TemplateVars, force bool) ([]string, error) {
	if !TemplateExists(name) {
		return nil, fmt.Errorf("template %q not found", name)
	}

	root := path.Join(templatesRoot, name)
	var created []string

	walkErr := fs.WalkDir(templateFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking template %s: %w", p, err)
		}
		if d.IsDir() {
			return nil
		}

		rel := strings.TrimPrefix(p, root+"/")
		isTmpl := strings.HasSuffix(rel, ".tmpl")
		rel = strings.TrimSuffix(rel, ".tmpl")
		dest := filepath.Join(destDir, filepath.FromSlash(rel))

		if _, statErr := os.Stat(dest); statErr == nil {
			if !force {
				log.Debug("skipping existing file", "path", dest)
				return nil
			}
			log.Debug("overwriting existing file", "path", dest)
		}
		if mkdirErr := os.MkdirAll(filepath.Dir(dest), 0o755); mkdirErr != nil {
			return fmt.Errorf("creating directory for %s: %w", dest, mkdirErr)
		}

		content, readErr := templateFS.ReadFile(p)
		if readErr != nil {
			return fmt.Errorf("reading embedded file %s: %w", p, readErr)
		}
		if isTmpl {
			tmpl, parseErr := template.New(d.Name()).Delims(leftDelim, rightDelim).Option("missingkey=error").Parse(string(content))
			if parseErr != nil {
				return fmt.Errorf("parsing template %s: %w", p, parseErr)
			}
			var buf bytes.Buffer
			if execErr := tmpl.Execute(&buf, vars); execErr != nil {
				return fmt.Errorf("executing template %s: %w", p, execErr)
			}
			content = buf.Bytes()
		}

		if writeErr := os.WriteFile(dest, content, 0o644); writeErr != nil {
			return fmt.Errorf("writing file %s: %w", dest, writeErr)
		}
		log.Debug("created file", "path", dest)
		created = append(created, dest)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return created, nil
}
