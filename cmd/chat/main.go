package main

import (
	"os"

	"github.com/habibullah-1101/habib-portfolio/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
