package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ena-tools/magsub/auth"
	"github.com/ena-tools/magsub/bins"
	"github.com/ena-tools/magsub/config"
	"github.com/ena-tools/magsub/ena"
	"github.com/ena-tools/magsub/plan"
	"github.com/ena-tools/magsub/preflight"
	"github.com/ena-tools/magsub/submit"
	"github.com/ena-tools/magsub/taxonomy"
	"github.com/ena-tools/magsub/webin"
)

var (
	configPath  string
	stagingDir  string
	loggingDir  string
	development int
	verbosity   int
	threads     int
	timestamps  int
	webinJar    string

	keepDepthFiles bool
	skipChecks     bool
	miniTest       bool

	gateSamples  bool
	gateReads    bool
	gateAssembly bool
	gateBins     bool
	gateMAGs     bool
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Run a submission against the archive",
	Long: `Validate the configuration, resolve bin taxonomy and execute the
requested submission phases in leaves-first order.

Examples:

  # Dry out the whole pipeline against the development service
  magsub submit --config config.yaml --staging-dir ./staging \
    --logging-dir ./logs --submit-samples --submit-reads \
    --submit-assembly --submit-bins --submit-mags

  # Production run, bins only
  magsub submit --config config.yaml --staging-dir ./staging \
    --logging-dir ./logs --development-service 0 --submit-bins`,
	RunE: runSubmit,
}

func init() {
	f := submitCmd.Flags()
	f.StringVar(&configPath, "config", "", "submission config YAML (required)")
	f.StringVar(&stagingDir, "staging-dir", "", "directory for staged payloads (required)")
	f.StringVar(&loggingDir, "logging-dir", "", "directory for logs and receipts (required)")
	f.IntVar(&development, "development-service", 1, "1 targets the development service, 0 production")
	f.IntVar(&verbosity, "verbosity", 1, "0 quiet, 1 normal, 2 debug")
	f.IntVar(&threads, "threads", runtime.NumCPU(), "worker threads for coverage and compression")
	f.IntVar(&timestamps, "timestamps", -1, "1 prefixes names with a HHMM token, 0 disables (default: on for the development service)")
	f.StringVar(&webinJar, "webin-jar", "", "path to the webin-cli jar (downloaded into the staging dir when empty)")
	f.BoolVar(&keepDepthFiles, "keep-depth-files", false, "keep generated depth files after coverage computation")
	f.BoolVar(&skipChecks, "skip-checks", false, "skip the preflight validator")
	f.BoolVar(&miniTest, "minitest", false, "submit only the first filtered bin")
	f.BoolVar(&gateSamples, "submit-samples", false, "register new samples")
	f.BoolVar(&gateReads, "submit-reads", false, "submit read sets")
	f.BoolVar(&gateAssembly, "submit-assembly", false, "submit the primary assembly")
	f.BoolVar(&gateBins, "submit-bins", false, "submit quality-filtered bins")
	f.BoolVar(&gateMAGs, "submit-mags", false, "submit MAGs")
	submitCmd.MarkFlagRequired("config")
	submitCmd.MarkFlagRequired("staging-dir")
	submitCmd.MarkFlagRequired("logging-dir")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	dev := development != 0
	stamping := timestamps == 1 || (timestamps == -1 && dev)

	logger, closeLog, err := newLogger(loggingDir, verbosity)
	if err != nil {
		return err
	}
	defer closeLog()

	p, err := plan.New(map[plan.Target]bool{
		plan.Samples:  gateSamples,
		plan.Reads:    gateReads,
		plan.Assembly: gateAssembly,
		plan.Bins:     gateBins,
		plan.MAGs:     gateMAGs,
	})
	if err != nil {
		logger.Error().Err(err).Msg("invalid submission plan")
		return err
	}

	cfg, err := config.Load(configPath, config.WithTimestamps(stamping))
	if err != nil {
		logger.Error().Err(err).Str("config", configPath).Msg("cannot load config")
		return err
	}

	creds, err := auth.Resolve()
	if err != nil {
		logger.Error().Err(err).Msg("no archive credentials")
		return err
	}

	client := ena.NewClient(ena.WithDevelopment(dev), ena.WithLogger(logger))

	if skipChecks {
		logger.Warn().Msg("preflight checks skipped on request")
	} else {
		validator := preflight.New(cfg, client, p, stamping, logger)
		if err := validator.Run(ctx); err != nil {
			var perr *preflight.Error
			if errors.As(err, &perr) {
				fmt.Fprintln(os.Stderr, perr.Error())
			}
			logger.Error().Err(err).Msg("preflight failed")
			return err
		}
	}

	assignments, err := resolveTaxonomy(ctx, cfg, p, client, logger)
	if err != nil {
		logger.Error().Err(err).Msg("taxonomy resolution failed")
		return err
	}

	jar := webinJar
	if jar == "" && needsUploader(p) {
		jar, err = webin.Download(ctx, filepath.Join(stagingDir, "webin"), verbosity > 0)
		if err != nil {
			logger.Error().Err(err).Msg("cannot fetch the uploader")
			return err
		}
		logger.Info().Str("jar", jar).Msg("using downloaded uploader")
	}

	uploader := webin.NewUploader(jar, creds, dev, logger)
	registrar := webin.NewDropbox(creds, dev)

	orchestrator := submit.New(cfg, p, client, uploader, registrar, assignments, submit.Options{
		StagingDir:     stagingDir,
		LoggingDir:     loggingDir,
		Threads:        threads,
		KeepDepthFiles: keepDepthFiles,
		MiniTest:       miniTest,
	}, logger)
	if err := orchestrator.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("submission failed; staged payloads are kept for inspection")
		return err
	}
	return nil
}

// resolveTaxonomy maps every bin to an archive taxonomy entry beforehand
// so unresolvable lineages abort before any submission traffic.
func resolveTaxonomy(ctx context.Context, cfg *config.Config, p plan.Plan, client *ena.Client, logger zerolog.Logger) (map[string]taxonomy.Assignment, error) {
	if !p.Has(plan.Bins) && !p.Has(plan.MAGs) {
		return nil, nil
	}
	b, err := cfg.Bins()
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("bin submission requested but no bins section is configured")
	}
	files, err := bins.Files(b.Directory)
	if err != nil {
		return nil, err
	}

	var lineages map[string][]string
	if len(b.TaxonomyFiles) > 0 {
		lineages, err = taxonomy.ReadLineages(b.TaxonomyFiles)
		if err != nil {
			return nil, err
		}
	}
	var manual map[string]taxonomy.Manual
	if b.ManualTaxonomyFile != "" {
		manual, err = taxonomy.ReadManual(b.ManualTaxonomyFile)
		if err != nil {
			return nil, err
		}
	}

	resolver := taxonomy.NewResolver(client, logger, verbosity > 0)
	return resolver.Resolve(ctx, bins.SortedIDs(files), lineages, manual)
}

// needsUploader reports whether the plan has a phase that drives the
// external uploader.
func needsUploader(p plan.Plan) bool {
	return p.Has(plan.Reads) || p.Has(plan.Assembly) || p.Has(plan.Bins) || p.Has(plan.MAGs)
}

// newLogger builds the process logger: terse console output plus a
// verbose submission.log under the logging tree.
func newLogger(dir string, verbosity int) (zerolog.Logger, func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return zerolog.Nop(), nil, err
	}
	logFile, err := os.OpenFile(filepath.Join(dir, "submission.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := zerolog.New(zerolog.MultiLevelWriter(console, logFile)).With().Timestamp().Logger()
	switch verbosity {
	case 0:
		logger = logger.Level(zerolog.WarnLevel)
	case 2:
		logger = logger.Level(zerolog.DebugLevel)
	default:
		logger = logger.Level(zerolog.InfoLevel)
	}
	return logger, func() { logFile.Close() }, nil
}
