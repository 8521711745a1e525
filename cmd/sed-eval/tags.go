package main

import (
	"fmt"
	"os"

	"github.com/jamesainslie/go-sed/internal/eval"
	"github.com/spf13/cobra"
)

// tagsCMD defines the sed-eval tags command.
var tagsCMD = &cobra.Command{
	Use:   "tags",
	Short: "Compute an audio tagging report from weak label tables",
	Run:   tagsRun,
}

var tagsFlags = struct {
	predictions, groundTruth string
	strong                   bool
}{}

func init() {
	tagsCMD.Flags().StringVarP(&tagsFlags.predictions, "predictions", "P", "",
		"set the path to the prediction tsv file")
	tagsCMD.Flags().StringVarP(&tagsFlags.groundTruth, "groundtruth", "g", "",
		"set the path to the ground truth tsv file")
	tagsCMD.Flags().BoolVar(&tagsFlags.strong, "strong", false,
		"read strongly labeled tables instead of weak label tables")
	chk(tagsCMD.MarkFlagRequired("predictions"))
	chk(tagsCMD.MarkFlagRequired("groundtruth"))
	root.AddCommand(tagsCMD)
}

func tagsRun(_ *cobra.Command, _ []string) {
	load := eval.LoadWeak
	if tagsFlags.strong {
		load = eval.LoadEvents
	}
	predictions, err := load(tagsFlags.predictions)
	chk(err)
	groundTruth, err := load(tagsFlags.groundTruth)
	chk(err)

	report, err := eval.AudioTaggingResults(groundTruth, predictions)
	chk(err)
	fmt.Fprint(os.Stdout, report)
}
