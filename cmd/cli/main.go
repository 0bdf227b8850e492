package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/deepcritic/deepcritic/cmd/cli/commands"
)

func main() {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	if err := commands.RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
