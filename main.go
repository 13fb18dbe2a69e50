package main

import (
	"os"

	"dbsite/internal/cli"
)

func main() {
	if err := cli.Execute(loadAssets); err != nil {
		os.Exit(1)
	}
}
