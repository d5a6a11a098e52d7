package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stitts-dev/squad-optimizer/internal/csvio"
	"github.com/stitts-dev/squad-optimizer/internal/optimizer"
)

type evolveOptions struct {
	pickOptions
	initialTeamFile string
	maxChanges      int
	forceReplace    string
}

func evolveCmd(global *globalOptions) *cobra.Command {
	opts := &evolveOptions{}

	cmd := &cobra.Command{
		Use:   "evolve",
		Short: "Improve an existing team with a limited number of changes",
		Example: `  squadopt evolve --initial_team_file team.csv --max_changes 2
  squadopt evolve --force_replace "Injured Player" --max_changes 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvolve(cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.inputFile, "input_file", "footballdata.csv", "Player pool CSV")
	cmd.Flags().StringVar(&opts.outputDir, "output_dir", "output", "Directory for team sheets and summary.csv")
	cmd.Flags().Float64Var(&opts.maxValue, "max_value", 50, "Budget: maximum total price")
	cmd.Flags().StringVar(&opts.initialTeamFile, "initial_team_file", "team.csv", "Current team sheet CSV (Position and Names columns)")
	cmd.Flags().IntVar(&opts.maxChanges, "max_changes", 5, "Maximum number of players to swap out")
	cmd.Flags().StringVar(&opts.forceReplace, "force_replace", "", "Player that must be dropped; does not count against max_changes")

	return cmd
}

func runEvolve(cmd *cobra.Command, global *globalOptions, opts *evolveOptions) error {
	if opts.maxChanges < 0 {
		return optimizer.ErrInvalidChangeBudget
	}

	cat, err := loadCatalog(opts.inputFile)
	if err != nil {
		return err
	}
	baseline, err := loadBaseline(opts.initialTeamFile)
	if err != nil {
		return err
	}
	formations, err := global.formations()
	if err != nil {
		return err
	}
	engine, err := global.solverEngine()
	if err != nil {
		return err
	}

	evo := &optimizer.Evolution{
		Baseline:        baseline,
		ChangeBudget:    opts.maxChanges,
		ForcedExclusion: csvio.SanitizeName(opts.forceReplace),
	}

	ctx, cancel := global.withTimeout(cmd.Context())
	defer cancel()

	cmp, err := optimizer.NewDriver(engine).BestAcrossFormations(ctx, cat, formations, opts.maxValue, evo)
	if err != nil {
		return err
	}

	if err := writeSheets(opts.outputDir, "optimized_team_%s.csv", cat, cmp); err != nil {
		return err
	}

	if cmp.Best != nil {
		printChanges(cmd, baseline, cmp.Best.Result.Selected)
	}
	return reportBest(cmd, cmp)
}

func printChanges(cmd *cobra.Command, baseline, selected []string) {
	kept := make(map[string]bool, len(selected))
	for _, id := range selected {
		kept[id] = true
	}
	inBaseline := make(map[string]bool, len(baseline))
	out := cmd.OutOrStdout()
	for _, id := range baseline {
		inBaseline[id] = true
		if !kept[id] {
			fmt.Fprintf(out, "OUT: %s\n", id)
		}
	}
	for _, id := range selected {
		if !inBaseline[id] {
			fmt.Fprintf(out, "IN:  %s\n", id)
		}
	}
}
