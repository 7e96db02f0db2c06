package main

import (
	"os"

	"github.com/zeu5/taxi-rl/commands"
)

func main() {
	rootCommand := commands.GetRootCommand()
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
