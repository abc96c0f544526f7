package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Info holds structured build information suitable for JSON output.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"goVersion"`
}

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// GetInfo returns the current build information. A binary installed with
// `go install module@version` carries no ldflags; its module version is
// used instead of "dev".
func GetInfo() Info {
	info := Info{Version: Version, Commit: Commit, Date: Date, GoVersion: runtime.Version()}
	if info.Version != "dev" {
		return info
	}
	if bi, ok := readBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = strings.TrimPrefix(bi.Main.Version, "v")
	}
	return info
}

// String returns a human-readable version line, e.g.
// "actionsim v1.2.0 (commit: a1b2c3d, built: 2026-02-17T10:00:00Z, go1.24.2)".
func (i Info) String() string {
	return fmt.Sprintf("actionsim v%s (commit: %s, built: %s, %s)", i.Version, i.Commit, i.Date, i.GoVersion)
}
