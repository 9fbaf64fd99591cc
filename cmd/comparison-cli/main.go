package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/spherical-ai/spherical/libs/comparison-engine/cmd/comparison-cli/commands"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
