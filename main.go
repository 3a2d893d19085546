package main

import (
	"os"

	"github.com/pharmcheck/pharmcheck/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
