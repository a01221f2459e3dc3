package main

import (
	"os"

	"github.com/dshills/privfilter/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
