package main

import (
	"os"

	"github.com/techben7/traidr/cmd/traidr/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
