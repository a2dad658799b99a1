package main

import (
	"os"

	"github.com/krshsl/hireagent/backend/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
