package main

import (
	"os"

	"github.com/tablekit/tablekit/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
