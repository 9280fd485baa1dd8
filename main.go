package main

import (
	"os"

	"github.com/vectrain/vectrain/cmd"
)

func main() {
	if err := cmd.RootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
