package main

import (
	"os"

	"github.com/KaifAhmad1/repo-analyzer/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
