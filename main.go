package main

import (
	"os"

	"github.com/conneroisu/payara-dev/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
