// Command actionsim simulates GitHub Actions workflows against synthetic
// events.
package main

import (
	"os"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
