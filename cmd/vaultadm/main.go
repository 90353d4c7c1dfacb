package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/vaultkeeper/internal/admin"
	"github.com/fatih/color"
)

func main() {
	cmd := admin.NewRootCommand(admin.OpenPostgres, os.Stdin)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "✗", err)
		os.Exit(1)
	}
}
