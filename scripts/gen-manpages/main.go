// Command gen-manpages writes section 1 man pages for actionsim and its
// subcommands.
//
//	go run ./scripts/gen-manpages [output-dir]   (default "man/man1")
//
// The page date comes from SOURCE_DATE_EPOCH when set, so release builds
// produce identical pages.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/buildinfo"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/cli"
)

func main() {
	outDir := "man/man1"
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
	date, err := pageDate(os.Getenv("SOURCE_DATE_EPOCH"))
	if err != nil {
		return err
	}

	root := cli.NewRootCmd()
	disableAutoGenTag(root)
	header := &doc.GenManHeader{
		Title:   "ACTIONSIM",
		Section: "1",
		Date:    &date,
		Source:  "actionsim " + buildinfo.GetInfo().Version,
		Manual:  "actionsim Manual",
	}
	if err := doc.GenManTree(root, header, outDir); err != nil {
		return fmt.Errorf("generating man pages: %w", err)
	}
	fmt.Printf("Man pages generated in %s/\n", outDir)
	return nil
}

// pageDate parses a SOURCE_DATE_EPOCH value; empty means now.
func pageDate(epoch string) (time.Time, error) {
	if epoch == "" {
		return time.Now().UTC(), nil
	}
	secs, err := strconv.ParseInt(epoch, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid SOURCE_DATE_EPOCH %q: %w", epoch, err)
	}
	return time.Unix(secs, 0).UTC(), nil
}

func disableAutoGenTag(cmd *cobra.Command) {
	cmd.DisableAutoGenTag = true
	for _, c := range cmd.Commands() {
		disableAutoGenTag(c)
	}
}
