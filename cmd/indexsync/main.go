// Package main is the entry point for the indexsync CLI.
package main

import (
	"fmt"
	"os"

	"github.com/kailas-cloud/indexsync/cmd/indexsync/app"
)

func main() {
	cmd := app.NewRootCmd()
	err := cmd.Execute()
	if err != nil && !app.IsReported(err) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
	}
	os.Exit(app.ExitCode(err))
}
