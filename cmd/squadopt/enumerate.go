package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stitts-dev/squad-optimizer/internal/csvio"
	"github.com/stitts-dev/squad-optimizer/internal/optimizer"
)

type enumerateOptions struct {
	inputFile  string
	outputFile string
	maxValue   float64
	topN       int
	counts     optimizer.GroupCounts
}

func enumerateCmd(global *globalOptions) *cobra.Command {
	opts := &enumerateOptions{}

	cmd := &cobra.Command{
		Use:   "enumerate",
		Short: "List the top groups of a fixed shape by brute force",
		Long: `enumerate walks every combination of the requested per-position sizes,
skipping partial groups already over budget, and keeps the best top_n by
total points. It is exact but only practical for small pools.`,
		Example: `  squadopt enumerate --fwds 2 --mids 3 --defs 2 --gks 1 --top_n 10`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnumerate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.inputFile, "input_file", "footballdata.csv", "Player pool CSV")
	cmd.Flags().StringVar(&opts.outputFile, "output_file", "teamsheet.csv", "Output CSV for the ranked groups")
	cmd.Flags().Float64Var(&opts.maxValue, "max_value", 50, "Budget: maximum total price")
	cmd.Flags().IntVar(&opts.topN, "top_n", 5, "Number of groups to keep")
	cmd.Flags().IntVar(&opts.counts.Forwards, "fwds", 2, "Forwards per group")
	cmd.Flags().IntVar(&opts.counts.Midfielders, "mids", 5, "Midfielders per group")
	cmd.Flags().IntVar(&opts.counts.Goalkeepers, "gks", 1, "Goalkeepers per group")
	cmd.Flags().IntVar(&opts.counts.Defenders, "defs", 3, "Defenders per group")

	return cmd
}

func runEnumerate(cmd *cobra.Command, opts *enumerateOptions) error {
	cat, err := loadCatalog(opts.inputFile)
	if err != nil {
		return err
	}

	groups, err := optimizer.EnumerateGroups(cat, opts.counts, opts.maxValue, opts.topN)
	if err != nil {
		return err
	}

	if err := writeCSV(opts.outputFile, func(f *os.File) error {
		return csvio.WriteGroups(f, cat, groups)
	}); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(groups) == 0 {
		fmt.Fprintln(out, "No group fits the budget.")
		return nil
	}
	for i, g := range groups {
		fmt.Fprintf(out, "Group %d: %g points, value %.2f\n", i+1, g.TotalScore, g.TotalCost)
	}
	return nil
}
