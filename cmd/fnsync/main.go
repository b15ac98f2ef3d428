package main

import (
	"context"
	"os"

	"github.com/hnguyen160596/fnsync/pkg/cli"
)

func main() {
	os.Exit(cli.Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
