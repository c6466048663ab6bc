package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"hashharvest/internal/client"
	"hashharvest/internal/collector"
	"hashharvest/internal/config"
	"hashharvest/internal/database"
	"hashharvest/internal/log"
	"hashharvest/internal/model"
	"hashharvest/internal/report"
)

// NewCollectCmd creates the collect command.
func NewCollectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect [profile...]",
		Short: "Collect file hashes from one or more platform servers",
		Long: `Collect pages through the platform's FileHash store, deduplicating as
it goes, and writes the result as a hash inventory artifact.

Servers can be given directly via --server/--username/--password, or as
named profiles from the .hashharvest configuration file. When several
profiles are given, they are collected concurrently and each produces
its own artifact.

Examples:
  # Collect from a single server
  hashharvest collect --server https://edr.example.com --username api@example.com --password secret

  # Collect from named profiles, four at a time
  hashharvest collect prod-east prod-west staging

  # Cap the run at one million hashes and write JSON
  hashharvest collect -m 1000000 -f json -o inventory.json prod-east

  # Verify connectivity and credentials without collecting
  hashharvest collect --test-only prod-east

Configuration file (.hashharvest) example:
  defaults:
    username: api@example.com
    batchSize: 5000
  servers:
    prod-east:
      url: https://east.example.com
      password: secret
    prod-west:
      url: https://west.example.com
      password: secret
      insecure: true`,
		Args: cobra.ArbitraryArgs,
		RunE: runCollectCmd,
	}

	// Server connection flags
	cmd.Flags().StringP("server", "s", "",
		"Platform base URL (e.g., https://edr.example.com)")
	cmd.Flags().StringP("username", "u", "",
		"Account used for the login handshake")
	cmd.Flags().StringP("password", "p", "",
		"Account password")
	cmd.Flags().BoolP("insecure", "k", false,
		"Skip TLS certificate verification (self-signed deployments)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Per-request timeout")
	cmd.Flags().Int("max-retries", config.DefaultMaxRetries,
		"Retry budget for retryable HTTP statuses (429, 5xx)")

	// Collection behavior flags
	cmd.Flags().IntP("max-hashes", "m", config.DefaultMaxHashes,
		"Collection target per server (0 means unbounded)")
	cmd.Flags().IntP("batch-size", "b", config.DefaultBatchSize,
		"Page size for FileHash queries")
	cmd.Flags().Int("concurrency", config.DefaultConcurrency,
		"Number of profiles collected in parallel")
	cmd.Flags().Bool("test-only", false,
		"Check reachability and authentication, then exit without collecting")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .hashharvest in current or home directory)")

	// Artifact flags
	cmd.Flags().StringP("output", "o", "",
		"Artifact file path (single server only; default: timestamped name)")
	cmd.Flags().StringP("format", "f", string(config.FormatCSV),
		"Artifact format: csv, json, or markdown")
	cmd.Flags().Bool("no-history", false,
		"Skip recording the run in the local history database")

	return cmd
}

// runCollectCmd executes the collect command.
func runCollectCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Credentials flow through log attributes, so the logger must redact
	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("received shutdown signal, finishing current pages...")
		cancel()
	}()

	return runCollect(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.ServerURL, err = cmd.Flags().GetString("server")
	if err != nil {
		return nil, err
	}

	cfg.Username, err = cmd.Flags().GetString("username")
	if err != nil {
		return nil, err
	}

	cfg.Password, err = cmd.Flags().GetString("password")
	if err != nil {
		return nil, err
	}

	cfg.InsecureSkipVerify, err = cmd.Flags().GetBool("insecure")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.MaxRetries, err = cmd.Flags().GetInt("max-retries")
	if err != nil {
		return nil, err
	}

	cfg.MaxHashes, err = cmd.Flags().GetInt("max-hashes")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch-size")
	if err != nil {
		return nil, err
	}

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.TestOnly, err = cmd.Flags().GetBool("test-only")
	if err != nil {
		return nil, err
	}

	cfg.OutputPath, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return nil, err
	}
	cfg.OutputFormat = config.Format(strings.ToLower(format))

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, err
	}
	if !noHistory {
		cfg.DBDir = config.XDGDataDir()
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Load named server profiles from the config file.
	// If the user explicitly specified a path, error if it is missing.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.Profiles, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.Profiles = &config.File{
			Servers: make(map[string]config.Profile),
		}
	}

	// Positional arguments are profile names
	cfg.Servers = args

	return cfg, nil
}

// target is one resolved server to collect from.
type target struct {
	// name labels the target in output and file names. It is the profile
	// name, or the server host when given via flags.
	name string

	// profile carries the merged connection settings.
	profile config.Profile
}

// resolveTargets turns the config into concrete collection targets.
func resolveTargets(cfg *config.Config) ([]target, error) {
	if len(cfg.Servers) == 0 {
		return []target{{
			name: hostLabel(cfg.ServerURL),
			profile: config.Profile{
				URL:      cfg.ServerURL,
				Username: cfg.Username,
				Password: cfg.Password,
				Insecure: cfg.InsecureSkipVerify,
			},
		}}, nil
	}

	targets := make([]target, 0, len(cfg.Servers))
	for _, name := range cfg.Servers {
		profile, ok := cfg.Profiles.GetProfile(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", config.ErrUnknownProfile, name)
		}
		if profile.URL == "" {
			return nil, fmt.Errorf("profile %s has no url", name)
		}
		// Flag credentials fill in what the profile leaves empty
		if profile.Username == "" {
			profile.Username = cfg.Username
		}
		if profile.Password == "" {
			profile.Password = cfg.Password
		}
		targets = append(targets, target{name: name, profile: profile})
	}

	return targets, nil
}

// hostLabel derives a file-name-safe label from a server URL.
func hostLabel(serverURL string) string {
	u, err := url.Parse(serverURL)
	if err != nil || u.Host == "" {
		return "server"
	}
	return strings.ReplaceAll(u.Host, ":", "_")
}

// runCollect executes the collection across all resolved targets.
func runCollect(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	targets, err := resolveTargets(cfg)
	if err != nil {
		return err
	}

	if cfg.OutputPath != "" && len(targets) > 1 {
		return fmt.Errorf("--output applies to a single server; %d targets given", len(targets))
	}

	logger.Info("starting collection",
		"targets", len(targets),
		"maxHashes", cfg.MaxHashes,
		"batchSize", cfg.BatchSize,
		"testOnly", cfg.TestOnly,
	)

	// Open run history unless disabled. A broken history database should
	// not block collection, so failures only log.
	var db *database.HistoryDB
	if cfg.DBDir != "" && !cfg.TestOnly {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			logger.Warn("run history unavailable", "dir", cfg.DBDir, "error", err)
		} else {
			defer db.Close()
		}
	}

	// stdout is shared between concurrent runs
	var outMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)

	for _, tgt := range targets {
		g.Go(func() error {
			return collectOne(gctx, cfg, tgt, db, &outMu, logger)
		})
	}

	return g.Wait()
}

// collectOne runs the full collection for a single target: authenticate,
// collect, write the artifact, and record the run.
func collectOne(ctx context.Context, cfg *config.Config, tgt target, db *database.HistoryDB, outMu *sync.Mutex, logger *slog.Logger) error {
	logger = logger.With("target", tgt.name)

	opts := []client.Option{
		client.WithTimeout(cfg.Timeout),
		client.WithMaxRetries(cfg.MaxRetries),
		client.WithInsecureSkipVerify(tgt.profile.Insecure),
		client.WithLogger(logger),
	}
	if len(tgt.profile.Headers) > 0 {
		opts = append(opts, client.WithHeaders(tgt.profile.Headers))
	}

	c, err := client.New(tgt.profile.URL, tgt.profile.Username, tgt.profile.Password, opts...)
	if err != nil {
		return fmt.Errorf("%s: %w", tgt.name, err)
	}

	if err := c.Ping(ctx); err != nil {
		return fmt.Errorf("%s: server unreachable: %w", tgt.name, err)
	}

	if err := c.Authenticate(ctx); err != nil {
		return fmt.Errorf("%s: %w", tgt.name, err)
	}
	logger.Info("authenticated", "server", c.BaseURL())

	if cfg.TestOnly {
		outMu.Lock()
		fmt.Printf("%s: connection and authentication OK (%s)\n", tgt.name, c.BaseURL())
		outMu.Unlock()
		return nil
	}

	batchSize := cfg.BatchSize
	if tgt.profile.BatchSize > 0 {
		batchSize = tgt.profile.BatchSize
	}
	maxHashes := cfg.MaxHashes
	if tgt.profile.MaxHashes > 0 {
		maxHashes = tgt.profile.MaxHashes
	}

	col := collector.New(c,
		collector.WithBatchSize(batchSize),
		collector.WithIsTransient(client.IsTransient),
		collector.WithCollectorLogger(logger),
	)

	hashes, stats, err := col.Collect(ctx, maxHashes)
	if err != nil {
		return fmt.Errorf("%s: %w", tgt.name, err)
	}

	inv := &model.Inventory{
		Server:  c.BaseURL(),
		Records: hashes.Records(time.Now().UTC()),
		Stats:   stats,
	}

	outputPath, err := writeArtifact(cfg, tgt, inv)
	if err != nil {
		return fmt.Errorf("%s: %w", tgt.name, err)
	}

	recordRun(ctx, db, inv, outputPath, logger)

	outMu.Lock()
	printSummary(tgt.name, inv, outputPath)
	outMu.Unlock()

	return nil
}

// writeArtifact writes the inventory in the configured format and returns
// the path written.
func writeArtifact(cfg *config.Config, tgt target, inv *model.Inventory) (string, error) {
	outputPath := cfg.OutputPath
	if outputPath == "" {
		outputPath = defaultArtifactPath(tgt.name, cfg.OutputFormat, inv.Stats.StartedAt)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Inventories can contain sensitive indicators, keep them owner-only
	f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // Path comes from operator flags
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	var w report.Writer
	switch cfg.OutputFormat {
	case config.FormatJSON:
		w = report.NewJSONWriter(f, report.WithPrettyPrint())
	case config.FormatMarkdown:
		w = report.NewMarkdownWriter(f)
	default:
		w = report.NewCSVWriter(f)
	}

	if _, err := w.Write(inv); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	return outputPath, nil
}

// defaultArtifactPath builds a timestamped file name for a target.
func defaultArtifactPath(name string, format config.Format, startedAt time.Time) string {
	ext := "csv"
	switch format {
	case config.FormatJSON:
		ext = "json"
	case config.FormatMarkdown:
		ext = "md"
	}
	return fmt.Sprintf("hashes_%s_%s.%s", name, startedAt.Format("20060102_150405"), ext)
}

// recordRun saves the run and its hashes to the history database.
// If db is nil, this function is a no-op. Failures only log: the artifact
// on disk is the deliverable, the history is bookkeeping.
func recordRun(ctx context.Context, db *database.HistoryDB, inv *model.Inventory, outputPath string, logger *slog.Logger) {
	if db == nil {
		return
	}

	if _, err := db.SaveRun(ctx, inv.Server, outputPath, inv.Stats); err != nil {
		logger.Warn("failed to record run", "error", err)
		return
	}

	added, err := db.UpsertHashes(ctx, inv.Records)
	if err != nil {
		logger.Warn("failed to merge hashes into history", "error", err)
		return
	}

	logger.Info("run recorded", "newHashes", added)
}

// printSummary prints the per-target run summary to stdout.
// Counts run to the millions, so they are printed with separators.
func printSummary(name string, inv *model.Inventory, outputPath string) {
	p := message.NewPrinter(language.English)

	p.Printf("%s: collected %d unique hashes in %v (%d batches, %d errors)\n",
		name,
		inv.Stats.UniqueHashes,
		inv.Stats.Duration.Round(time.Millisecond),
		inv.Stats.BatchesProcessed,
		inv.Stats.Errors,
	)
	p.Printf("%s: stop reason %s, %.0f hashes/sec, written to %s\n",
		name, inv.Stats.StopReason, inv.Stats.Rate(), outputPath)
}
