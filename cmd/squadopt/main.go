// squadopt picks fantasy football squads from a CSV player pool.
//
// Usage:
//
//	squadopt pick --input_file footballdata.csv --output_dir output --max_value 50
//	squadopt evolve --initial_team_file team.csv --max_changes 2 --force_replace "Player Name"
//	squadopt enumerate --fwds 2 --mids 3 --defs 2 --gks 1 --top_n 5
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/stitts-dev/squad-optimizer/internal/catalog"
	"github.com/stitts-dev/squad-optimizer/internal/csvio"
	"github.com/stitts-dev/squad-optimizer/internal/optimizer"
	"github.com/stitts-dev/squad-optimizer/internal/solver"
	"github.com/stitts-dev/squad-optimizer/pkg/config"
	"github.com/stitts-dev/squad-optimizer/pkg/logger"
)

var version = "dev"

// globalOptions are shared by every subcommand.
type globalOptions struct {
	engine         string
	cbcPath        string
	logLevel       string
	formationsFile string
	timeout        time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "squadopt",
		Short: "Pick the best fantasy football squad under a budget",
		Long: `squadopt selects a squad from a CSV player pool, maximizing total points
under a budget with an exact number of players per position.

pick compares several formations from scratch, evolve limits how many
players of an existing team may change, and enumerate lists the best
fixed-size groups by brute force for small pools.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(logger.Options{
				Level:       opts.logLevel,
				Development: true,
				Output:      cmd.ErrOrStderr(),
			})
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.engine, "engine", config.EngineAuto, "Solver engine: auto (cbc if found, else simplex), simplex or cbc")
	rootCmd.PersistentFlags().StringVar(&opts.cbcPath, "cbc-path", "cbc", "Path to the CBC binary when --engine=cbc")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&opts.formationsFile, "formations-file", "", "YAML file listing formations to try (default: built-in list)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "Overall solver timeout, e.g. 30s (0 means none)")

	rootCmd.AddCommand(pickCmd(opts))
	rootCmd.AddCommand(evolveCmd(opts))
	rootCmd.AddCommand(enumerateCmd(opts))

	return rootCmd
}

func (o *globalOptions) withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if o.timeout > 0 {
		return context.WithTimeout(parent, o.timeout)
	}
	return context.WithCancel(parent)
}

func (o *globalOptions) solverEngine() (solver.Engine, error) {
	return solver.NewEngine(o.engine, o.cbcPath)
}

func (o *globalOptions) formations() ([]optimizer.Formation, error) {
	if o.formationsFile == "" {
		return optimizer.DefaultFormations, nil
	}
	f, err := os.Open(o.formationsFile)
	if err != nil {
		return nil, fmt.Errorf("open formations file: %w", err)
	}
	defer f.Close()
	return readFormations(f)
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open player file: %w", err)
	}
	defer f.Close()

	records, err := csvio.ReadPlayers(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	cat, err := catalog.New(records)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return cat, nil
}

func loadBaseline(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open team file: %w", err)
	}
	defer f.Close()
	return csvio.ReadBaseline(f)
}

// writeCSV creates path and hands it to write, closing it either way.
func writeCSV(path string, write func(f *os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
