package main

import (
	"context"
	"fmt"
	"os"

	"github.com/diaghi13/dggm-sub002/pkg/interfaces/cli/commands"
)

func main() {
	app := &commands.App{}
	if err := app.Execute(context.Background(), commands.NewRootCommand(app)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
