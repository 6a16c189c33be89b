package main

import (
	"os"

	"github.com/VCGI/VT-DataRail-Tools/cmd/datarail/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
