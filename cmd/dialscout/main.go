package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"dialscout/internal/analysis"
	"dialscout/internal/campaign"
	"dialscout/internal/config"
	"dialscout/internal/logging"
	"dialscout/internal/recording"
	"dialscout/internal/store"
	"dialscout/internal/targets"
	"dialscout/internal/telephony"
)

var (
	// Global flags
	verbose    bool
	configPath string
	dataDir    string

	// Run flags
	limit            int
	targetsPath      string
	assistantProfile string
	dryRun           bool

	// Reprocess flags
	manifestPath string
	force        bool

	// Export flags
	exportOut string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dialscout",
	Short: "dialscout - automated business discovery calling",
	Long: `dialscout places voice-agent calls to a list of businesses, waits for
each call to finish, extracts structured answers from the transcript,
and appends one durable row per attempt to a local results database.

Contacts that completed a call are remembered in a ledger, so re-running
the same target list never dials anyone twice.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

// runCmd executes one calling batch
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Dial the next batch of unreached targets",
	Long: `Loads the target list, removes contacts the ledger already holds,
and dials the remainder sequentially up to the batch limit. Each call is
polled to completion, analyzed, and persisted before the next one starts.

Example:
  dialscout run --limit 5 --targets sonographers.json`,
	RunE: runBatch,
}

// reprocessCmd re-analyzes saved transcripts without placing calls
var reprocessCmd = &cobra.Command{
	Use:   "reprocess",
	Short: "Re-run transcript analysis over previously saved calls",
	Long: `Reads a YAML manifest mapping transcript files to contacts and runs
the analyzer over each one, appending fresh result rows. No calls are
placed. Contacts that already hold an analyzed row are skipped unless
--force is given.

Example:
  dialscout reprocess --manifest calls.yaml --force`,
	RunE: runReprocess,
}

// exportCmd writes the results table as CSV
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all call results as CSV",
	RunE:  runExport,
}

// statsCmd summarizes the results database
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show attempt counts by outcome and the ledger size",
	RunE:  runStats,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "dialscout.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides config)")

	// Run flags
	runCmd.Flags().IntVar(&limit, "limit", 0, "Max calls this run (overrides config)")
	runCmd.Flags().StringVar(&targetsPath, "targets", "", "Target list JSON file (overrides config)")
	runCmd.Flags().StringVar(&assistantProfile, "assistant", "", "Assistant profile YAML file")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be dialed without placing calls")

	// Reprocess flags
	reprocessCmd.Flags().StringVar(&manifestPath, "manifest", "", "Reprocess manifest YAML (required)")
	reprocessCmd.Flags().BoolVar(&force, "force", false, "Re-analyze contacts that already hold an analyzed row")
	reprocessCmd.MarkFlagRequired("manifest")

	// Export flags
	exportCmd.Flags().StringVar(&exportOut, "out", "results.csv", "Output CSV path")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reprocessCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	if limit > 0 {
		cfg.Campaign.MaxCalls = limit
	}
	if targetsPath != "" {
		cfg.Storage.TargetsPath = targetsPath
	}
	if assistantProfile != "" {
		cfg.Telephony.AssistantProfile = assistantProfile
	}
	if verbose {
		cfg.Logging.Level = "debug"
		cfg.Logging.DebugMode = true
	}
	return cfg, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM. The
// current attempt is classified and persisted before the run stops.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal, finishing current attempt")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// runBatch drives one live calling run end to end.
func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := logging.Initialize(cfg.Storage.DataDir, cfg.Logging.Level, cfg.Logging.DebugMode); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	db, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("failed to open results store: %w", err)
	}
	defer db.Close()

	candidates, err := targets.Load(cfg.Storage.TargetsPath, cfg.Telephony.CountryCode)
	if err != nil {
		return fmt.Errorf("failed to load targets: %w", err)
	}
	logger.Info("Targets loaded",
		zap.String("path", cfg.Storage.TargetsPath),
		zap.Int("count", len(candidates)))

	profile := telephony.DefaultProfile()
	if cfg.Telephony.AssistantProfile != "" {
		profile, err = telephony.LoadProfile(cfg.Telephony.AssistantProfile)
		if err != nil {
			return fmt.Errorf("failed to load assistant profile: %w", err)
		}
	}

	dialer := telephony.NewClient(telephony.Config{
		APIKey:        cfg.Telephony.APIKey,
		PhoneNumberID: cfg.Telephony.PhoneNumberID,
		BaseURL:       cfg.Telephony.BaseURL,
		Timeout:       config.Duration(cfg.Telephony.Timeout, 0),
	})

	// The analyzer is optional: without a key every attempt records
	// Unknown answer fields but the calls still happen and persist.
	var analyzer campaign.Analyzer
	if cfg.Analysis.APIKey != "" {
		a, err := analysis.NewAnalyzer(ctx, analysis.Config{
			APIKey:  cfg.Analysis.APIKey,
			Model:   cfg.Analysis.Model,
			Timeout: config.Duration(cfg.Analysis.Timeout, 0),
		})
		if err != nil {
			return fmt.Errorf("failed to initialize analyzer: %w", err)
		}
		analyzer = a
	} else {
		logger.Warn("No analysis API key set, answer fields will be Unknown")
	}

	recorder := recording.NewFetcher(cfg.RecordingsDir(), config.Duration(cfg.Telephony.Timeout, 0))

	orch := campaign.NewOrchestrator(dialer, analyzer, recorder, db, campaign.Options{
		CountryCode:    cfg.Telephony.CountryCode,
		MaxCalls:       cfg.Campaign.MaxCalls,
		PollInterval:   config.Duration(cfg.Campaign.PollInterval, 0),
		CallTimeout:    config.Duration(cfg.Campaign.CallTimeout, 0),
		InterCallDelay: config.Duration(cfg.Campaign.InterCallDelay, 0),
		Profile:        profile,
		DryRun:         dryRun,
	})

	summary, err := orch.Run(ctx, candidates)
	if summary != nil {
		printSummary(summary)
	}
	return err
}

// runReprocess analyzes saved transcripts from a manifest.
func runReprocess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := logging.Initialize(cfg.Storage.DataDir, cfg.Logging.Level, cfg.Logging.DebugMode); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	manifest, err := campaign.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("failed to open results store: %w", err)
	}
	defer db.Close()

	var analyzer campaign.Analyzer
	if cfg.Analysis.APIKey != "" {
		a, err := analysis.NewAnalyzer(ctx, analysis.Config{
			APIKey:  cfg.Analysis.APIKey,
			Model:   cfg.Analysis.Model,
			Timeout: config.Duration(cfg.Analysis.Timeout, 0),
		})
		if err != nil {
			return fmt.Errorf("failed to initialize analyzer: %w", err)
		}
		analyzer = a
	} else {
		return fmt.Errorf("reprocess needs an analysis API key (set GEMINI_API_KEY)")
	}

	rep := campaign.NewReprocessor(analyzer, db, cfg.Telephony.CountryCode)
	rep.Force = force

	summary, err := rep.Run(ctx, manifest)
	if summary != nil {
		fmt.Printf("Reprocessed %d transcripts (%d skipped)\n",
			summary.Ended, summary.AlreadyReached+summary.Skipped)
	}
	return err
}

// runExport writes the full results table to a CSV file.
func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := logging.Initialize(cfg.Storage.DataDir, cfg.Logging.Level, cfg.Logging.DebugMode); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	db, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("failed to open results store: %w", err)
	}
	defer db.Close()

	f, err := os.Create(exportOut)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", exportOut, err)
	}
	defer f.Close()

	n, err := db.ExportCSV(f)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	fmt.Printf("Exported %d rows to %s\n", n, exportOut)
	return nil
}

// runStats prints outcome counts and the ledger size.
func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := logging.Initialize(cfg.Storage.DataDir, cfg.Logging.Level, cfg.Logging.DebugMode); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	db, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("failed to open results store: %w", err)
	}
	defer db.Close()

	stats, err := db.GetStats()
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	fmt.Printf("Attempts:  %d\n", stats.Attempts)
	for status, count := range stats.ByStatus {
		fmt.Printf("  %-10s %d\n", status, count)
	}
	fmt.Printf("Contacts reached (ledger): %d\n", stats.LedgerSize)
	return nil
}

// printSummary reports a run's outcome on stdout.
func printSummary(s *campaign.Summary) {
	fmt.Printf("Run %s\n", s.RunID)
	fmt.Printf("  Candidates:      %d\n", s.Candidates)
	fmt.Printf("  Already reached: %d\n", s.AlreadyReached)
	fmt.Printf("  Dialed:          %d\n", s.Dialed)
	fmt.Printf("    ended:     %d\n", s.Ended)
	fmt.Printf("    failed:    %d\n", s.Failed)
	fmt.Printf("    timed out: %d\n", s.TimedOut)
	fmt.Printf("  Deferred:        %d\n", s.Skipped)
}
