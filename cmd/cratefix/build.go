package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/frederic-klein/cratefix/internal/config"
	"github.com/frederic-klein/cratefix/internal/desugar"
	"github.com/frederic-klein/cratefix/internal/downloader"
	"github.com/frederic-klein/cratefix/internal/emitter"
	"github.com/frederic-klein/cratefix/internal/index"
	"github.com/frederic-klein/cratefix/internal/registry"
	"github.com/frederic-klein/cratefix/internal/source"
)

// buildOptions holds the build flags. Only flags set on the command line
// override the loaded configuration.
type buildOptions struct {
	format    string
	json      bool
	source    string
	indexDir  string
	cacheDir  string
	commit    string
	namespace string
	rawNames  bool
	merge     string
	strict    bool
	noCheck   bool
	workers   int
	output    string
}

func addBuildFlags(cmd *cobra.Command, o *buildOptions) {
	f := cmd.Flags()
	f.StringVarP(&o.format, "format", "f", emitter.FormatMsgpack, "output format: msgpack, json or yaml")
	f.BoolVar(&o.json, "json", false, "shorthand for --format json")
	f.StringVar(&o.source, "source", source.KindSnapshot, "index source: snapshot or home")
	f.StringVar(&o.indexDir, "index-dir", "", "read this index directory instead of the source default")
	f.StringVar(&o.cacheDir, "cache-dir", "", "directory the index snapshot is extracted into")
	f.StringVar(&o.commit, "commit", source.DefaultCommit, "crates.io-index commit of the snapshot")
	f.StringVar(&o.namespace, "namespace", registry.DefaultNamespace, "namespace prefixed to normalized package names")
	f.BoolVar(&o.rawNames, "raw-names", false, "keep package names exactly as published (default for --source home)")
	f.StringVar(&o.merge, "merge", "replace", "how packages found in several files combine: replace or versions")
	f.BoolVar(&o.strict, "strict", false, "fail on requirements no rule handles and semver cannot parse")
	f.BoolVar(&o.noCheck, "no-check", false, "skip the malformed-range sanity check")
	f.IntVarP(&o.workers, "workers", "w", 0, "files read in parallel (0 = number of CPUs)")
	f.StringVarP(&o.output, "output", "o", "", "write to this file instead of stdout")
}

// apply overrides cfg with the flags set on cmd.
func (o *buildOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("format") {
		cfg.Format = o.format
	}
	if o.json {
		cfg.Format = emitter.FormatJSON
	}
	if f.Changed("source") {
		cfg.Source = o.source
	}
	if f.Changed("index-dir") {
		cfg.IndexDir = o.indexDir
	}
	if f.Changed("cache-dir") {
		cfg.CacheDir = o.cacheDir
	}
	if f.Changed("commit") {
		cfg.Commit = o.commit
	}
	if f.Changed("namespace") {
		cfg.Namespace = o.namespace
	}
	if f.Changed("raw-names") {
		cfg.RawNames = &o.rawNames
	}
	if f.Changed("merge") {
		cfg.Merge = o.merge
	}
	if f.Changed("strict") {
		cfg.Strict = o.strict
	}
	if f.Changed("no-check") {
		cfg.NoCheck = o.noCheck
	}
	if f.Changed("workers") {
		cfg.Workers = o.workers
	}
}

func newBuildCmd(configPath *string) *cobra.Command {
	opts := &buildOptions{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the registry from the index (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, *configPath, opts)
		},
	}
	addBuildFlags(cmd, opts)
	return cmd
}

func runBuild(cmd *cobra.Command, configPath string, opts *buildOptions) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	opts.apply(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	d, err := desugar.New(
		desugar.WithStrict(cfg.Strict),
		desugar.WithCheck(!cfg.NoCheck),
		desugar.WithLogger(logger),
		desugar.WithCacheSize(cfg.CacheSize),
	)
	if err != nil {
		return err
	}

	src, err := newSource(cfg, logger)
	if err != nil {
		return err
	}
	root, err := src.Ensure(ctx)
	if err != nil {
		return err
	}
	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = src.Patterns()
	}

	reader := index.NewReader(d,
		index.WithNormalizer(cfg.Normalizer()),
		index.WithMergeStrategy(cfg.MergeStrategy()),
		index.WithWorkers(cfg.Workers),
		index.WithLogger(logger),
	)

	p := newProgress(logger)
	reg, err := reader.Load(ctx, root, patterns)
	if err != nil {
		return fmt.Errorf("reading index: %w", err)
	}
	stats := reg.Stats()
	p.done("Built registry", "packages", stats.Packages, "versions", stats.Versions, "dependencies", stats.Dependencies)

	// Encode fully before writing so a failure leaves no partial output.
	var buf bytes.Buffer
	em, err := emitter.NewEmitter(&buf, cfg.Format)
	if err != nil {
		return err
	}
	if err := em.Emit(reg); err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}

	if opts.output == "" {
		_, err = buf.WriteTo(cmd.OutOrStdout())
		return err
	}
	if err := os.WriteFile(opts.output, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	logger.Info("Wrote registry", "path", opts.output, "format", em.Format())
	return nil
}

func newSource(cfg config.Config, logger *log.Logger) (source.Source, error) {
	if cfg.Source == source.KindHome {
		if cfg.IndexDir != "" {
			return source.NewDir(cfg.IndexDir, index.RegistryPatterns(index.DefaultPatterns)), nil
		}
		cargoHome, err := source.CargoHome()
		if err != nil {
			return nil, err
		}
		return source.NewHome(cargoHome), nil
	}

	if cfg.IndexDir != "" {
		return source.NewDir(cfg.IndexDir, nil), nil
	}
	return source.NewSnapshot(cfg.Commit, cfg.BaseURL, cfg.CacheDir, downloader.NewDownloader(), logger), nil
}
