// Command transform-rules is the CLI entry point: it builds an
// app.AppRunner and exits with the code the subcommand produced.
package main

import (
	"os"

	"github.com/vinhphatfsg/transform-rules/internal/app"
)

func main() {
	runner := app.NewAppRunner()
	os.Exit(runner.Run(os.Args[1:]))
}
