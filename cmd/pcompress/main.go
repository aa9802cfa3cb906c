package main

import (
	"os"

	"github.com/yndnr/pcompress-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		command.PrintError(app.ErrWriter, err)
		os.Exit(command.ExitCode(err))
	}
}
