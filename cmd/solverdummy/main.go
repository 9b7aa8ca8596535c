// Command solverdummy couples a dummy solver through a participant.
//
// Usage:
//
//	solverdummy precice-config.xml SolverOne
//	solverdummy precice-config.xml SolverTwo --protocol v2
//	solverdummy precice-config.xml SolverOne -i
//
// Every iteration reads the partner's data, adds one (or runs the WASM
// kernel given with --kernel) and writes the result back.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
