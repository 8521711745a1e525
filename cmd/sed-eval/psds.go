package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jamesainslie/go-sed/internal/eval"
	"github.com/spf13/cobra"
)

// psdsCMD defines the sed-eval psds command. Each argument is a glob of
// prediction tables; every matched table becomes one operating point.
var psdsCMD = &cobra.Command{
	Use:   "psds [PREDICTIONS...]",
	Short: "Compute polyphonic sound detection scores over operating points",
	Args:  cobra.MinimumNArgs(1),
	Run:   psdsRun,
}

var psdsFlags = struct {
	parameter, groundTruth, durations, audio, roc string
	dtc, gtc, cttc                                float64
}{}

func init() {
	psdsCMD.Flags().StringVarP(&psdsFlags.parameter, "parameter", "p", "",
		"set the path to the configuration file")
	psdsCMD.Flags().StringVarP(&psdsFlags.groundTruth, "groundtruth", "g", "",
		"set the path to the ground truth tsv file")
	psdsCMD.Flags().StringVarP(&psdsFlags.durations, "durations", "d", "",
		"set the path to a duration metadata tsv file")
	psdsCMD.Flags().StringVarP(&psdsFlags.audio, "audio", "a", "",
		"set a directory of wav files to read durations from")
	psdsCMD.Flags().StringVar(&psdsFlags.roc, "roc", "",
		"write one roc plot per weighting regime under this base path")
	psdsCMD.Flags().Float64Var(&psdsFlags.dtc, "dtc", 0,
		"set the detection tolerance criterion (overwrites the setting in the configuration file)")
	psdsCMD.Flags().Float64Var(&psdsFlags.gtc, "gtc", 0,
		"set the ground truth intersection criterion (overwrites the setting in the configuration file)")
	psdsCMD.Flags().Float64Var(&psdsFlags.cttc, "cttc", 0,
		"set the cross-trigger tolerance criterion (overwrites the setting in the configuration file)")
	chk(psdsCMD.MarkFlagRequired("groundtruth"))
	root.AddCommand(psdsCMD)
}

func psdsRun(_ *cobra.Command, args []string) {
	c, err := readConfig(psdsFlags.parameter)
	chk(err)
	updateInConfig(&c.DTC, psdsFlags.dtc)
	updateInConfig(&c.GTC, psdsFlags.gtc)
	updateInConfig(&c.CTTC, psdsFlags.cttc)

	groundTruth, err := eval.LoadEvents(psdsFlags.groundTruth)
	chk(err)
	durations, err := loadDurations()
	chk(err)

	p, err := eval.NewPSDSEval(c.DTC, c.GTC, c.CTTC, groundTruth, durations)
	chk(err)
	for _, pattern := range args {
		paths, err := filepath.Glob(pattern)
		chk(err)
		if len(paths) == 0 {
			chk(fmt.Errorf("no prediction tables match %s", pattern))
		}
		for _, path := range paths {
			predictions, err := eval.LoadEvents(path)
			chk(err)
			chk(p.AddOperatingPoint(predictions))
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	eval.PSDSScore(p, psdsFlags.roc, logger)
}

// loadDurations reads clip durations from metadata or from the wav headers.
func loadDurations() (eval.DurationTable, error) {
	switch {
	case psdsFlags.durations != "":
		return eval.LoadDurationsTSV(psdsFlags.durations)
	case psdsFlags.audio != "":
		return eval.LoadDurationsWAV(psdsFlags.audio)
	default:
		return nil, fmt.Errorf("either --durations or --audio is required")
	}
}
