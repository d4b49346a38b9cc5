package main

import (
	"os"

	"github.com/dl/goread/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}
