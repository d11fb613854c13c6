package main

import (
	"os"

	"github.com/conneroisu/tsdev/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
