package main

import (
	"os"

	"github.com/dshills/dealcache/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
