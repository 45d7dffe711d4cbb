// Command bracketsim builds and plays album brackets against a local SQLite
// database, without the HTTP server.
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "bracketsim",
		Usage: "build and play album brackets offline",
		Commands: []*cli.Command{
			newSimulateCommand(),
			newShowCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
