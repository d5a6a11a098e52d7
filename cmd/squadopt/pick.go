package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stitts-dev/squad-optimizer/internal/catalog"
	"github.com/stitts-dev/squad-optimizer/internal/csvio"
	"github.com/stitts-dev/squad-optimizer/internal/optimizer"
	"github.com/stitts-dev/squad-optimizer/pkg/logger"
)

type pickOptions struct {
	inputFile string
	outputDir string
	maxValue  float64
}

func pickCmd(global *globalOptions) *cobra.Command {
	opts := &pickOptions{}

	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Pick the best squad for each formation from scratch",
		Example: `  squadopt pick --input_file footballdata.csv --max_value 50
  squadopt pick --engine cbc --output_dir out`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPick(cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.inputFile, "input_file", "footballdata.csv", "Player pool CSV")
	cmd.Flags().StringVar(&opts.outputDir, "output_dir", "output", "Directory for team sheets and summary.csv")
	cmd.Flags().Float64Var(&opts.maxValue, "max_value", 50, "Budget: maximum total price")

	return cmd
}

func runPick(cmd *cobra.Command, global *globalOptions, opts *pickOptions) error {
	cat, err := loadCatalog(opts.inputFile)
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

	ctx, cancel := global.withTimeout(cmd.Context())
	defer cancel()

	cmp, err := optimizer.NewDriver(engine).BestAcrossFormations(ctx, cat, formations, opts.maxValue, nil)
	if err != nil {
		return err
	}

	if err := writeSheets(opts.outputDir, "formation_%s.csv", cat, cmp); err != nil {
		return err
	}

	return reportBest(cmd, cmp)
}

// writeSheets writes a team sheet for every formation, empty when it has no
// roster, followed by summary.csv.
func writeSheets(dir, pattern string, cat *catalog.Catalog, cmp *optimizer.Comparison) error {
	for _, r := range cmp.Results {
		path := filepath.Join(dir, fmt.Sprintf(pattern, r.Name))
		if err := writeCSV(path, func(f *os.File) error {
			return csvio.WriteTeamSheet(f, cat, r.Formation, r.Result)
		}); err != nil {
			return err
		}
	}
	return writeCSV(filepath.Join(dir, "summary.csv"), func(f *os.File) error {
		return csvio.WriteSummary(f, cmp.Results)
	})
}

func reportBest(cmd *cobra.Command, cmp *optimizer.Comparison) error {
	out := cmd.OutOrStdout()
	if cmp.Best == nil {
		logger.GetLogger().Warn("No formation produced a roster within the budget")
		fmt.Fprintln(out, "No feasible squad found.")
		return nil
	}
	fmt.Fprintf(out, "Best formation: %s\n", cmp.Best.Name)
	fmt.Fprintf(out, "Total points:   %g\n", cmp.Best.TotalScore)
	fmt.Fprintf(out, "Total value:    %.2f\n", cmp.Best.Result.TotalCost)
	return nil
}
