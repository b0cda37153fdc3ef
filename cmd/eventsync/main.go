package main

import (
	"os"
)

func main() {
	if err := newRootCommand(bootstrap).Execute(); err != nil {
		os.Exit(1)
	}
}
