package main

import (
	"os"

	"github.com/vhm24/taskflow/internal/interface/cli"
)

var version = "dev"

func main() {
	if err := cli.NewRoot(version).Execute(); err != nil {
		os.Exit(1)
	}
}
