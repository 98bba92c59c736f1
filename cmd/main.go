package main

import (
	"context"
	"os"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cmd := newRootCmd()
	if err := execute(context.Background(), cmd); err != nil {
		os.Exit(handleError(cmd, err))
	}
}
