package main

import (
	"os"

	"github.com/grokify/forwardport/cmd/forwardport/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
