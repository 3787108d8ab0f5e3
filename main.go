package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gi8lino/restgen/internal/app"
)

var (
	Version = "dev"
	Commit  = "none"
)

func main() {
	ctx := context.Background()

	if err := app.Run(ctx, Version, Commit, os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err) // nolint:errcheck
		os.Exit(1)
	}
}
