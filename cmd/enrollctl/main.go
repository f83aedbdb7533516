package main

import (
	"os"

	"github.com/dmehra2102/course-enrollment/cmd/enrollctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
