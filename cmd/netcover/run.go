package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/netcover/internal/datasource"
	"github.com/vanderheijden86/netcover/internal/store"
	"github.com/vanderheijden86/netcover/pkg/config"
	"github.com/vanderheijden86/netcover/pkg/logging"
	"github.com/vanderheijden86/netcover/pkg/metrics"
	"github.com/vanderheijden86/netcover/pkg/run"
)

var (
	runCoverageTarget float64
	runSeed           int64
	runInterToolset   bool
	runToolset        string
	runFab            int64
	runPhase          int64
	runModel          int64
	runE2EGroup       int64
	runTag            string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one random sampling run",
	Long: `Run resolves the configured scope, builds the sampling universe, and
drives the sample-find-validate loop until the coverage target is
reached, the relaxation ladder is exhausted, or the attempt ceiling
is hit. Progress and results are persisted to the run store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		applyRunFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		logger := logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		})

		if cfg.Metrics.Addr != "" {
			go func() {
				if err := metrics.Serve(cfg.Metrics.Addr); err != nil {
					logger.Warn().Err(err).Msg("metrics listener failed")
				}
			}()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reader, err := datasource.NewCatalogReader(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer reader.Close()

		cat, err := reader.LoadCatalog(ctx)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		logger.Info().
			Int("nodes", len(cat.Nodes)).
			Int("links", len(cat.Links)).
			Int("toolsets", len(cat.Toolsets)).
			Msg("catalog loaded")

		st, err := store.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		driver := run.NewDriver(cat, st, cfg.Run, logger)
		res, err := driver.Run(ctx)
		if err != nil {
			return err
		}
		printResult(cmd, res)
		return nil
	},
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("coverage-target") {
		cfg.Run.CoverageTarget = runCoverageTarget
	}
	if cmd.Flags().Changed("seed") {
		cfg.Run.Seed = runSeed
	}
	if cmd.Flags().Changed("inter-toolset") {
		cfg.Run.IsInterToolset = runInterToolset
	}
	if cmd.Flags().Changed("toolset") {
		cfg.Run.Filter.Toolset = runToolset
	}
	if cmd.Flags().Changed("fab") {
		cfg.Run.Filter.FabNo = runFab
	}
	if cmd.Flags().Changed("phase") {
		cfg.Run.Filter.PhaseNo = runPhase
	}
	if cmd.Flags().Changed("model") {
		cfg.Run.Filter.ModelNo = runModel
	}
	if cmd.Flags().Changed("e2e-group") {
		cfg.Run.Filter.E2EGroupNo = runE2EGroup
	}
	if cmd.Flags().Changed("tag") {
		cfg.Run.Tag = runTag
	}
}

func printResult(cmd *cobra.Command, res *run.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s finished: %s\n", res.RunID, res.Reason)
	fmt.Fprintf(out, "  coverage:     %.2f%% (nodes %.2f%%, links %.2f%%)\n",
		res.FinalCoverage*100, res.NodeCoverage*100, res.LinkCoverage*100)
	fmt.Fprintf(out, "  attempts:     %d (failed %d)\n",
		res.Metrics.TotalAttempts, res.Metrics.FailedAttempts)
	fmt.Fprintf(out, "  paths:        %d found, %d unique, %d duplicates\n",
		res.Metrics.PathsFound, res.Metrics.UniquePaths, res.Metrics.DuplicatePaths)
	fmt.Fprintf(out, "  validation:   %d findings (%d critical), %d review flags\n",
		res.Metrics.ValidationErrors, res.Metrics.CriticalErrors, res.Metrics.ReviewFlags)
	fmt.Fprintf(out, "  sampling:     %d toolsets, %d equipments (%d draws, max %d), %d pocs (%d draws, max %d)\n",
		res.Sampling.ToolsetsSampled,
		res.Sampling.UniqueEquipments, res.Sampling.EquipmentAttempts, res.Sampling.MaxPerEquipment,
		res.Sampling.UniquePocs, res.Sampling.PocAttempts, res.Sampling.MaxPerPoc)
	fmt.Fprintf(out, "  elapsed:      %s\n", res.Elapsed.Round(time.Millisecond))
}

func init() {
	runCmd.Flags().Float64Var(&runCoverageTarget, "coverage-target", 0, "coverage target fraction in [0, 1]")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "PRNG seed (0 derives from the clock)")
	runCmd.Flags().BoolVar(&runInterToolset, "inter-toolset", false, "pair PoCs across toolsets")
	runCmd.Flags().StringVar(&runToolset, "toolset", "", "restrict scope to one toolset")
	runCmd.Flags().Int64Var(&runFab, "fab", 0, "restrict scope to a fab")
	runCmd.Flags().Int64Var(&runPhase, "phase", 0, "restrict scope to a phase")
	runCmd.Flags().Int64Var(&runModel, "model", 0, "restrict scope to a model")
	runCmd.Flags().Int64Var(&runE2EGroup, "e2e-group", 0, "restrict scope to an e2e group")
	runCmd.Flags().StringVar(&runTag, "tag", "", "suffix for the generated run tag")
}
