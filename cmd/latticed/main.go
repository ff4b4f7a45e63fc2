package main

import (
	"os"

	"github.com/rjl33/Gyroid-Lattice-Optimization/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
