package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/driftlab/driftdetect"
	"github.com/driftlab/driftdetect/dataset"
	"github.com/driftlab/driftdetect/efficacy"
	"github.com/driftlab/driftdetect/train"
)

var (
	// Global flags
	priorPath string
	postPath  string
	catCols   []string
	numCols   []string

	// drift flags
	asJSON   bool
	plotsDir string

	// efficacy flags
	targetCol     string
	testPath      string
	positiveLabel string
	cutoff        int
	seed          int64
	trainFraction float64
	cvFolds       int
	iterations    int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "driftdetect",
		Short: "Compare two tabular snapshots: distributional drift and ML efficacy",
		Long: `driftdetect compares a prior and a post CSV snapshot of the same schema.
The drift command ranks columns by Jensen-Shannon distance; the efficacy
command trains one tree ensemble per snapshot and scores both on a shared
test set; serve runs a drift exporter that recomputes on an interval.`,
	}

	rootCmd.PersistentFlags().StringVar(&priorPath, "prior", "", "Prior snapshot CSV")
	rootCmd.PersistentFlags().StringVar(&postPath, "post", "", "Post snapshot CSV")
	rootCmd.PersistentFlags().StringSliceVar(&catCols, "categorical", nil, "Columns forced to the categorical role")
	rootCmd.PersistentFlags().StringSliceVar(&numCols, "numeric", nil, "Columns forced to the numeric role")
	rootCmd.MarkPersistentFlagRequired("prior")
	rootCmd.MarkPersistentFlagRequired("post")

	rootCmd.AddCommand(driftCmd())
	rootCmd.AddCommand(efficacyCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newDetector() (*driftdetect.Detector, error) {
	prior, err := dataset.ReadCSV(priorPath)
	if err != nil {
		return nil, err
	}
	post, err := dataset.ReadCSV(postPath)
	if err != nil {
		return nil, err
	}
	return driftdetect.New(prior, post,
		driftdetect.WithCategorical(catCols...),
		driftdetect.WithNumeric(numCols...),
	)
}

func driftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Rank columns by distributional drift between the snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			det, err := newDetector()
			if err != nil {
				return err
			}
			report, err := det.ComputeDrift()
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			fmt.Printf("=== Categorical drift ===\n")
			for _, s := range report.Categorical {
				fmt.Printf("%-30s %.6f\n", s.Column, s.Distance)
			}
			fmt.Printf("\n=== Numeric drift ===\n")
			for _, s := range report.Numeric {
				fmt.Printf("%-30s %.6f\n", s.Column, s.Distance)
			}

			if plotsDir != "" {
				if err := writePlots(det, plotsDir); err != nil {
					return fmt.Errorf("failed to write plots: %w", err)
				}
				fmt.Printf("\nPlot bundles written to %s\n", plotsDir)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the report as JSON")
	cmd.Flags().StringVar(&plotsDir, "plots", "", "Directory for plot data and scripts (omit to skip)")
	return cmd
}

func writePlots(det *driftdetect.Detector, dir string) error {
	pairs, err := det.PlotNumericPairs()
	if err != nil {
		return err
	}
	cats, err := det.PlotCategorical()
	if err != nil {
		return err
	}
	violins, err := det.PlotCategoricalToNumeric(nil, nil)
	if err != nil {
		return err
	}
	for _, fig := range []interface{ Save(string) error }{pairs, cats, violins} {
		if err := fig.Save(dir); err != nil {
			return err
		}
	}
	return nil
}

func efficacyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "efficacy",
		Short: "Train one model per snapshot and compare held-out metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			det, err := newDetector()
			if err != nil {
				return err
			}

			cfg := driftdetect.EfficacyConfig{
				TargetColumn:      targetCol,
				CardinalityCutoff: cutoff,
				Seed:              seed,
				TrainFraction:     trainFraction,
				CVFolds:           cvFolds,
				SearchIterations:  iterations,
				ParamGrid:         train.DefaultGrid(),
				PositiveLabel:     positiveLabel,
			}
			if testPath != "" {
				cfg.TestData, err = dataset.ReadCSV(testPath)
				if err != nil {
					return err
				}
			}

			report, err := det.CompareEfficacy(cfg)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printEfficacy(report)
			return nil
		},
	}

	cmd.Flags().StringVar(&targetCol, "target", "", "Target column")
	cmd.Flags().StringVar(&testPath, "test", "", "External test set CSV (defaults to a split of the post snapshot)")
	cmd.Flags().StringVar(&positiveLabel, "positive", "", "Positive class for a binary target")
	cmd.Flags().IntVar(&cutoff, "cutoff", 5, "Cardinality cutoff between one-hot and target-statistic encoding")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed for splitting and search")
	cmd.Flags().Float64Var(&trainFraction, "train-fraction", 0.7, "Training fraction of the post snapshot")
	cmd.Flags().IntVar(&cvFolds, "cv", 3, "Cross-validation folds")
	cmd.Flags().IntVar(&iterations, "iters", 5, "Randomized search iterations")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the report as JSON")
	cmd.MarkFlagRequired("target")
	return cmd
}

func printEfficacy(report *efficacy.Report) {
	if report.Task == efficacy.TaskRegression {
		fmt.Printf("=== Regression efficacy ===\n")
		fmt.Printf("%-8s %12s %12s %12s\n", "lineage", "RMSE", "MAE", "R2")
		for _, row := range report.Regression.Rows {
			fmt.Printf("%-8s %12.6f %12.6f %12.6f\n", row.Lineage, row.RMSE, row.MAE, row.R2)
		}
		return
	}

	fmt.Printf("=== Classification efficacy ===\n")
	fmt.Printf("%-16s %-8s %9s %10s %8s %8s %8s\n",
		"class", "lineage", "accuracy", "precision", "recall", "f1", "auc")
	for _, row := range report.Classification.Rows {
		auc := "NA"
		if row.AUCValid {
			auc = fmt.Sprintf("%.4f", row.AUC)
		}
		fmt.Printf("%-16s %-8s %9.4f %10.4f %8.4f %8.4f %8s\n",
			row.Class, row.Lineage, row.Accuracy, row.Precision, row.Recall, row.F1, auc)
	}
}
