package main

import (
	"fmt"
	"os"

	"github.com/jamesainslie/go-sed/internal/eval"
	"github.com/spf13/cobra"
)

// reportCMD defines the sed-eval report command.
var reportCMD = &cobra.Command{
	Use:   "report",
	Short: "Score a prediction table against strong ground truth",
	Run:   reportRun,
}

var reportFlags = struct {
	parameter, predictions, groundTruth string
	collar, pctLength, resolution       float64
	noSegments, noClips                 bool
}{}

func init() {
	reportCMD.Flags().StringVarP(&reportFlags.parameter, "parameter", "p", "",
		"set the path to the configuration file")
	reportCMD.Flags().StringVarP(&reportFlags.predictions, "predictions", "P", "",
		"set the path to the prediction tsv file")
	reportCMD.Flags().StringVarP(&reportFlags.groundTruth, "groundtruth", "g", "",
		"set the path to the ground truth tsv file")
	reportCMD.Flags().Float64Var(&reportFlags.collar, "collar", 0,
		"set the onset collar in seconds (overwrites the setting in the configuration file)")
	reportCMD.Flags().Float64Var(&reportFlags.pctLength, "length", 0,
		"set the offset tolerance as a fraction of event length (overwrites the setting in the configuration file)")
	reportCMD.Flags().Float64Var(&reportFlags.resolution, "resolution", 0,
		"set the segment resolution in seconds (overwrites the setting in the configuration file)")
	reportCMD.Flags().BoolVar(&reportFlags.noSegments, "no-segments", false,
		"skip segment-based metrics")
	reportCMD.Flags().BoolVar(&reportFlags.noClips, "no-clips", false,
		"skip clip-level tagging metrics")
	chk(reportCMD.MarkFlagRequired("predictions"))
	chk(reportCMD.MarkFlagRequired("groundtruth"))
	root.AddCommand(reportCMD)
}

func reportRun(_ *cobra.Command, _ []string) {
	c, err := readConfig(reportFlags.parameter)
	chk(err)
	updateInConfig(&c.Collar, reportFlags.collar)
	updateInConfig(&c.PercentageOfLength, reportFlags.pctLength)
	updateInConfig(&c.Resolution, reportFlags.resolution)

	predictions, err := eval.LoadEvents(reportFlags.predictions)
	chk(err)
	groundTruth, err := eval.LoadEvents(reportFlags.groundTruth)
	chk(err)

	if predictions.Empty() {
		fmt.Println("no predictions")
		return
	}

	eval.ComputeMetrics(os.Stdout, predictions, groundTruth,
		c.Collar, c.PercentageOfLength, c.Resolution,
		!reportFlags.noSegments, !reportFlags.noClips)
}
