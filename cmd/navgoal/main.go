// Package main is the navgoal command.
package main

import (
	"log"
	"os"

	"go.viam.com/navgoal/cli"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
