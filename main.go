package main

import (
	"os"

	"github.com/meinhoongagan/carenest/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
