// Copyright 2018 Chris Pearce
// Copyright 2022 Nokia
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command armstream mines an initial training window of transactions,
// then watches the rest of the stream for concept drift, re-mining a
// fresh training window and writing a new rules cohort file every time
// drift is detected.
package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cpearce/prochange/dataset"
	"github.com/cpearce/prochange/drift"
	"github.com/cpearce/prochange/item"
	"github.com/cpearce/prochange/pipeline"
	"github.com/cpearce/prochange/volatility"
)

// Arguments holds armstream's validated command-line configuration.
type Arguments struct {
	Input                   string
	Output                  string
	DriftAlgorithm          string
	TrainingWindowSize      int
	MinSupport              float64
	MinConfidence           float64
	MinLift                 float64
	MaximalItemsets         bool
	FixedDriftConfidence    float64
	HasFixedDriftConfidence bool
	TraceMalloc             bool
	DisableSaveRules        bool
}

var (
	ErrMinSupportOutOfRange         = errors.New("min-support value is out of range [0,1.0]")
	ErrMinConfidenceOutOfRange      = errors.New("min-confidence value is out of range [0,1.0]")
	ErrMinLiftOutOfRange            = errors.New("min-lift is out of range [1.0,∞]")
	ErrInvalidDriftAlgorithm        = errors.New("drift-algorithm must be one of vrchange, prochange, seed, proseed")
	ErrFixedConfidenceOutOfRange    = errors.New("fixed-drift-confidence value is out of range [0,1.0]")
	ErrFixedConfidenceNeedsVRChange = errors.New("fixed-drift-confidence can only be used with --drift-algorithm=vrchange")
	ErrFixedConfidenceRequired      = errors.New("fixed-drift-confidence is required with --drift-algorithm=vrchange")
)

// Validate reports whether args' fields are internally consistent and in
// range.
func (args Arguments) Validate() error {
	if args.MinSupport < 0.0 || args.MinSupport > 1.0 {
		return ErrMinSupportOutOfRange
	}
	if args.MinConfidence < 0.0 || args.MinConfidence > 1.0 {
		return ErrMinConfidenceOutOfRange
	}
	if args.MinLift != 0.0 && args.MinLift < 1.0 {
		return ErrMinLiftOutOfRange
	}
	algo := drift.Algorithm(args.DriftAlgorithm)
	switch algo {
	case drift.VRChangeAlgorithm, drift.ProChangeAlgorithm, drift.SeedAlgorithm, drift.ProSeedAlgorithm:
	default:
		return ErrInvalidDriftAlgorithm
	}
	if args.HasFixedDriftConfidence {
		if args.FixedDriftConfidence < 0.0 || args.FixedDriftConfidence > 1.0 {
			return ErrFixedConfidenceOutOfRange
		}
		if algo != drift.VRChangeAlgorithm {
			return ErrFixedConfidenceNeedsVRChange
		}
	} else if algo == drift.VRChangeAlgorithm {
		return ErrFixedConfidenceRequired
	}
	return nil
}

func makeVolatilityDetector(args Arguments) pipeline.VolatilityDetector {
	switch drift.Algorithm(args.DriftAlgorithm) {
	case drift.VRChangeAlgorithm:
		return volatility.FixedConfidenceVolatilityDetector{Confidence: args.FixedDriftConfidence}
	case drift.ProChangeAlgorithm, drift.ProSeedAlgorithm:
		return volatility.NewVolatilityDetector()
	default:
		// Seed runs without a volatility model.
		return nil
	}
}

func run(args Arguments) error {
	if args.TraceMalloc {
		defer profile.Start(profile.MemProfile).Stop()
	}
	if err := args.Validate(); err != nil {
		return err
	}

	logrus.Info("Association Rule Mining - change detection")
	logrus.Infof("Drift algorithm: %s", args.DriftAlgorithm)
	logrus.Infof("Training window size: %d", args.TrainingWindowSize)

	interner := item.NewInterner()
	transactions, err := dataset.ReadTransactions(interner, args.Input)
	if err != nil {
		return err
	}

	ch := make(chan []item.Item, 1024)
	go func() {
		defer close(ch)
		for _, t := range transactions {
			ch <- t
		}
	}()

	cfg := pipeline.Config{
		TrainingWindowSize: args.TrainingWindowSize,
		MinSupport:         args.MinSupport,
		MinConfidence:      args.MinConfidence,
		MinLift:            args.MinLift,
		MaximalItemsets:    args.MaximalItemsets,
	}
	vol := makeVolatilityDetector(args)

	pipeline.Run(interner, ch, cfg, drift.Algorithm(args.DriftAlgorithm), vol, func(cohort pipeline.Cohort) {
		if !args.DisableSaveRules {
			start := time.Now()
			outputPath := fmt.Sprintf("%s.%d", args.Output, cohort.CohortNum)
			if err := dataset.WriteRules(interner, cohort.Rules, outputPath); err != nil {
				logrus.Errorf("failed writing cohort %d: %v", cohort.CohortNum, err)
				return
			}
			logrus.Infof("Wrote %d rules for cohort %d to %q in %s", len(cohort.Rules), cohort.CohortNum, outputPath, time.Since(start))
		}
		if cohort.Drift != nil {
			logrus.Infof(
				"Detected drift of type %s at transaction %d, %d after end of training window",
				cohort.Drift.Type, cohort.DriftTransaction, cohort.DriftTransaction-cohort.WindowEnd,
			)
			if cohort.Drift.Type == drift.RuleMatchVectorDrift || cohort.Drift.Type == drift.RagBagDrift {
				logrus.Infof(
					"Hellinger value: %v, confidence interval: %v ± %v ([%v,%v])",
					cohort.Drift.HellingerValue,
					cohort.Drift.Mean,
					cohort.Drift.Confidence,
					cohort.Drift.Mean-cohort.Drift.Confidence,
					cohort.Drift.Mean+cohort.Drift.Confidence,
				)
			}
		}
	})

	return nil
}

func main() {
	var args Arguments

	cmd := &cobra.Command{
		Use:   "armstream",
		Short: "Mine association rules from a transaction stream and detect concept drift",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&args.Input, "input", "", "input dataset in CSV format (required)")
	flags.StringVar(&args.Output, "output", "", "output rules file prefix; cohort N is written to <output>.N (required)")
	flags.StringVar(&args.DriftAlgorithm, "drift-algorithm", string(drift.VRChangeAlgorithm), "drift detection algorithm: vrchange, prochange, seed, or proseed")
	flags.IntVar(&args.TrainingWindowSize, "training-window-size", 0, "number of transactions in each training window (required)")
	flags.Float64Var(&args.MinSupport, "min-support", 0, "minimum itemset support threshold, in [0,1] (required)")
	flags.Float64Var(&args.MinConfidence, "min-confidence", 0, "minimum rule confidence threshold, in [0,1] (required)")
	flags.Float64Var(&args.MinLift, "min-lift", 1.0, "minimum rule lift threshold, in [1,∞)")
	flags.BoolVar(&args.MaximalItemsets, "generate-maximal-itemsets", false, "only output maximal frequent itemsets")
	flags.Float64Var(&args.FixedDriftConfidence, "fixed-drift-confidence", 0, "fixed drift confidence, in [0,1] (required with vrchange, forbidden otherwise)")
	flags.BoolVar(&args.TraceMalloc, "trace-malloc", false, "capture a memory profile of this run")
	flags.BoolVar(&args.DisableSaveRules, "disable-save-rules", false, "skip writing per-cohort rules files")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
	cmd.MarkFlagRequired("training-window-size")
	cmd.MarkFlagRequired("min-support")
	cmd.MarkFlagRequired("min-confidence")
	cmd.MarkFlagRequired("min-lift")

	cmd.PreRun = func(cmd *cobra.Command, _ []string) {
		args.HasFixedDriftConfidence = cmd.Flags().Changed("fixed-drift-confidence")
	}

	if err := cmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}
