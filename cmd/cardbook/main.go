// Command cardbook tracks card collections and reports set and album
// completions.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/roach88/cardbook/internal/cli"
)

func main() {
	// CARDBOOK_* settings may come from a .env next to the working directory.
	envPath := os.Getenv("CARDBOOK_DOTENV")
	if envPath == "" {
		envPath = ".env"
	}
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: loading %s: %v\n", envPath, err)
	}

	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
