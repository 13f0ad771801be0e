package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"konutpricer/service"
)

func predictCmd() *cobra.Command {
	var q service.Query

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Price one listing from the trained bundle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := newService()
			p, err := svc.Predict(q)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "price:        %.0f TL\n", p.Price)
			fmt.Fprintf(out, "per m2:       %.0f TL\n", p.PricePerM2)
			fmt.Fprintf(out, "68%% interval: %.0f - %.0f TL\n", p.Lower, p.Upper)
			fmt.Fprintf(out, "95%% interval: %.0f - %.0f TL\n", p.Lower95, p.Upper95)
			fmt.Fprintf(out, "reliability:  %s (%.2f)\n", p.Reliability, p.ReliabilityScore)
			for _, w := range p.Warnings {
				fmt.Fprintf(out, "warning:      %s\n", w)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&q.District, "district", "", "district of the listing")
	cmd.Flags().StringVar(&q.Neighborhood, "neighborhood", "", "neighborhood of the listing")
	cmd.Flags().Float64Var(&q.Area, "area", 0, "net area in square meters")
	cmd.Flags().Float64Var(&q.Rooms, "rooms", 0, "number of rooms")
	cmd.Flags().Float64Var(&q.Age, "age", 0, "building age in years")
	cmd.Flags().Float64Var(&q.Floor, "floor", 0, "floor of the unit")
	_ = cmd.MarkFlagRequired("district")
	_ = cmd.MarkFlagRequired("neighborhood")
	_ = cmd.MarkFlagRequired("area")
	_ = cmd.MarkFlagRequired("rooms")

	return cmd
}
