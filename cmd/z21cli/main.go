package main

import (
	"os"

	"github.com/keskad/z21/pkgs/app"
	"github.com/keskad/z21/pkgs/cli"
	"github.com/keskad/z21/pkgs/output"
)

func main() {
	a := app.App{P: output.ConsolePrinter{}}
	cmd := cli.NewRootCommand(&a)
	args := os.Args
	if args != nil {
		args = args[1:]
		cmd.SetArgs(args)
	}
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
