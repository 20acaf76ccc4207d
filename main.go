package main

import (
	"os"

	"github/itish2003/docchat/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
