package main

import (
	"context"
	"github.com/denismitr/kire/internal/cli"
	"os"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
