package main

import (
	"log"
	"os"

	"github.com/mitchellh/cli"
)

const version = "0.1.0"

func main() {
	os.Exit(realMain())
}

func realMain() int {
	ui := &cli.BasicUi{
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
		Reader:      os.Stdin,
	}

	c := cli.NewCLI("counter-rand", version)
	c.Args = os.Args[1:]
	c.Commands = map[string]cli.CommandFactory{
		"generate": func() (cli.Command, error) {
			return newGenerateCommand(ui), nil
		},
	}

	exitStatus, err := c.Run()
	if err != nil {
		log.Println(err)
	}

	return exitStatus
}
