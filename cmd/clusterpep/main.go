// clusterpep - Clustered peptide ranking and release report exporter
package main

import (
	"fmt"
	"os"

	"github.com/ChrisMcGann/clusterpep/cmd/clusterpep/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
