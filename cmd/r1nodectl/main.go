package main

import (
	"fmt"
	"os"

	"github.com/ratio1/r1nodectl/internal/cmd"
	"github.com/ratio1/r1nodectl/internal/logging"
)

var version = "dev"

func main() {
	rootCmd := cmd.NewRootCommand(version)
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
