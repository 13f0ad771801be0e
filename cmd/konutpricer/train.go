package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"konutpricer/bundle"
	"konutpricer/service"
)

// newService builds a service over the configured bundle path, with the
// seed and candidate set taken from config.
func newService() *service.Service {
	cfg := service.DefaultConfig()
	if seed := viper.GetUint64("model.seed"); seed != 0 {
		cfg.Seed = seed
		cfg.Trainer.Seed = seed
		cfg.Uncertainty.Seed = seed
	}
	cfg.Candidates = viper.GetStringSlice("model.candidates")
	if n := viper.GetInt("uncertainty.iterations"); n > 0 {
		cfg.Uncertainty.Iterations = n
	}
	repo := bundle.NewFileRepository(viper.GetString("model.bundle"))
	return service.New(cfg, repo)
}

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train <dataset.csv|dataset.xlsx>",
		Short: "Train the price model on a listing dataset",
		Long: `Train cleans the dataset, builds the feature matrix, trains the
candidate learners, combines the survivors, estimates prediction
uncertainty and writes the model bundle to the configured path.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := newService()
			b, err := svc.Train(args[0])
			if err != nil {
				return err
			}
			printReport(cmd, b)
			return nil
		},
	}
	cmd.Flags().Uint64("seed", 42, "random seed for the whole pipeline")
	cmd.Flags().StringSlice("candidates", nil, "candidate learners to train (default: all)")
	_ = viper.BindPFlag("model.seed", cmd.Flags().Lookup("seed"))
	_ = viper.BindPFlag("model.candidates", cmd.Flags().Lookup("candidates"))
	return cmd
}

func printReport(cmd *cobra.Command, b *bundle.Bundle) {
	r := b.Report
	if r == nil {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "strategy: %s\n", r.Strategy)
	fmt.Fprintf(out, "holdout:  R2=%.4f  MAPE=%.2f%%  RMSE=%.0f  MAE=%.0f\n",
		r.R2, r.MAPE, r.RMSE, r.MAE)
	fmt.Fprintf(out, "accuracy: %.1f%% within 10%%, %.1f%% within 20%%\n",
		r.Within10*100, r.Within20*100)
	fmt.Fprintf(out, "data:     %d train, %d test, %d features\n",
		r.NTrain, r.NTest, r.NFeatures)

	fmt.Fprintln(out, "\ncandidates:")
	for _, c := range r.Candidates {
		mark := " "
		if c.Selected {
			mark = "*"
		}
		fmt.Fprintf(out, "  %s %-4s  cv=%.4f±%.4f  test=%.4f  weight=%.3f\n",
			mark, c.Name, c.CVMean, c.CVStd, c.TestR2, c.Weight)
	}

	if len(r.TopFeatures) > 0 {
		fmt.Fprintln(out, "\ntop features:")
		for _, f := range r.TopFeatures {
			fmt.Fprintf(out, "  %-32s %.4f\n", f.Name, f.Score)
		}
	}
}
