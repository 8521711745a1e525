// Command sed-eval scores sound event detection predictions against ground
// truth: event-based and segment-based tables, audio tagging reports and
// polyphonic sound detection scores.
package main

import (
	"log"

	"github.com/spf13/cobra"
)

var root = &cobra.Command{
	Use:   "sed-eval",
	Short: "Evaluate sound event detection predictions",
}

func main() {
	if err := root.Execute(); err != nil {
		log.Fatalf("error: %v", err)
	}
}

func chk(err error) {
	if err != nil {
		log.Fatalf("error: %v", err)
	}
}
