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

// Command armbatch mines frequent itemsets and association rules from a
// single static dataset, in one pass.
package main

import (
	"errors"
	"time"

	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cpearce/prochange/dataset"
	"github.com/cpearce/prochange/fptree"
	"github.com/cpearce/prochange/item"
	"github.com/cpearce/prochange/rules"
)

// Arguments holds armbatch's validated command-line configuration.
type Arguments struct {
	Input         string
	Output        string
	MinSupport    float64
	MinConfidence float64
	MinLift       float64
	ItemsetsPath  string
	Maximal       bool
	TraceMalloc   bool
}

var (
	ErrMinSupportOutOfRange    = errors.New("min-support value is out of range [0,1.0]")
	ErrMinConfidenceOutOfRange = errors.New("min-confidence value is out of range [0,1.0]")
	ErrMinLiftOutOfRange       = errors.New("min-lift is out of range [1.0,∞]")
)

// Validate reports whether args' numeric fields fall in their required
// ranges.
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
	return nil
}

func run(args Arguments) error {
	if args.TraceMalloc {
		defer profile.Start(profile.MemProfile).Stop()
	}
	if err := args.Validate(); err != nil {
		return err
	}

	logrus.Info("Association Rule Mining in Go via FP-Growth")

	interner := item.NewInterner()

	logrus.Info("Reading dataset...")
	start := time.Now()
	transactions, err := dataset.ReadTransactions(interner, args.Input)
	if err != nil {
		return err
	}
	logrus.Infof("Read %d transactions in %s", len(transactions), time.Since(start))

	logrus.Info("Running FP-Growth...")
	start = time.Now()
	itemsets, counts, numTransactions := fptree.MineTransactions(interner, transactions, args.MinSupport, args.Maximal)
	logrus.Infof("FP-Growth mined %d itemsets in %s", len(itemsets), time.Since(start))

	if args.ItemsetsPath != "" {
		logrus.Infof("Writing itemsets to %q", args.ItemsetsPath)
		if err := dataset.WriteItemsets(interner, itemsets, counts, numTransactions, args.ItemsetsPath); err != nil {
			return err
		}
	}

	logrus.Info("Generating association rules...")
	start = time.Now()
	generated := rules.GenerateRules(interner, itemsets, counts, numTransactions, args.MinConfidence, args.MinLift)
	logrus.Infof("Generated %d rules in %s", len(generated), time.Since(start))

	logrus.Infof("Writing rules to %q", args.Output)
	if err := dataset.WriteRules(interner, generated, args.Output); err != nil {
		return err
	}

	return nil
}

func main() {
	var args Arguments

	cmd := &cobra.Command{
		Use:   "armbatch",
		Short: "Mine frequent itemsets and association rules from a transaction dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&args.Input, "input", "", "input dataset in CSV format (required)")
	flags.StringVar(&args.Output, "output", "", "output rules file path (required)")
	flags.Float64Var(&args.MinSupport, "min-support", 0, "minimum itemset support threshold, in [0,1] (required)")
	flags.Float64Var(&args.MinConfidence, "min-confidence", 0, "minimum rule confidence threshold, in [0,1] (required)")
	flags.Float64Var(&args.MinLift, "min-lift", 1.0, "minimum rule lift threshold, in [1,∞)")
	flags.StringVar(&args.ItemsetsPath, "itemsets", "", "optional path to also write the mined itemsets to")
	flags.BoolVar(&args.Maximal, "generate-maximal-itemsets", false, "only output maximal frequent itemsets")
	flags.BoolVar(&args.TraceMalloc, "trace-malloc", false, "capture a memory profile of this run")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
	cmd.MarkFlagRequired("min-support")
	cmd.MarkFlagRequired("min-confidence")

	if err := cmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}
