// BrainScan - MRS brain scan parsing and therapy group classification
package main

import (
	"fmt"
	"os"

	"github.com/ChrisMcGann/brainscan/cmd/brainscan/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
