package main

import (
	"fmt"
	"os"

	"page_objects/presentation/terminal"
)

func main() {
	if err := terminal.NewRootCommand(os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
