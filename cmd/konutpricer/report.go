package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func locationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locations",
		Short: "List the districts and neighborhoods the model was trained on",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := newService()
			districts, neighborhoods, err := svc.Locations()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, d := range districts {
				fmt.Fprintln(out, d)
				for _, n := range neighborhoods[d] {
					fmt.Fprintf(out, "  %s\n", n)
				}
			}
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show training price statistics per district",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := newService()
			stats, err := svc.DistrictStats()
			if err != nil {
				return err
			}

			names := make([]string, 0, len(stats))
			for name := range stats {
				names = append(names, name)
			}
			sort.Strings(names)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-20s %10s %10s %10s %8s %6s\n",
				"district", "mean", "median", "per m2", "std", "count")
			for _, name := range names {
				s := stats[name]
				fmt.Fprintf(out, "%-20s %10.0f %10.0f %10.0f %8.0f %6d\n",
					name, s.Mean, s.Median, s.PricePerM2, s.Std, s.Count)
			}
			return nil
		},
	}
}

func bandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bands",
		Short: "Show holdout accuracy per price band",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := newService()
			bands, err := svc.BandPerformance()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-12s %8s %8s %6s\n", "band", "R2", "MAPE", "count")
			for _, b := range bands {
				fmt.Fprintf(out, "%-12s %8.4f %7.2f%% %6d\n", b.Label, b.R2, b.MAPE, b.Count)
			}
			return nil
		},
	}
}
