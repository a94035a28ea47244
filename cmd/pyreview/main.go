package main

import (
	"os"

	"github.com/dshills/pyreview/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
