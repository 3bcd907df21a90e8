package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/grokify/forwardport/internal/cache"
	"github.com/grokify/forwardport/internal/collector"
	"github.com/grokify/forwardport/internal/distro"
	"github.com/grokify/forwardport/internal/fetch"
	"github.com/grokify/forwardport/internal/logfields"
	"github.com/grokify/forwardport/internal/snapshot"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [output]",
	Short: "Collect open PRs, their slices and the archive packages into a snapshot",
	Long: `Fetch the open PRs into the ubuntu-* branches of chisel-releases, the
slices in each PR head and merge base, and the binary packages of every
analyzed release, and write them to a snapshot.

The output format is chosen by its extension (.json, .json.gz, .json.zst).
Without an output path, or with "-", plain JSON is written to stdout.

Releases default to those published in the archive that have a release
branch, minus the skip list of the release catalog.

Examples:
  forwardport fetch snapshot.json.gz
  forwardport fetch --jobs 8 --releases 22.04,24.04 snapshot.json
  forwardport fetch --cache-dir ~/.cache/forwardport -j -1 | forwardport analyze -`,
	Args: usageArgs(cobra.MaximumNArgs(1)),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().IntP("jobs", "j", 1, "Concurrent requests, -1 for unlimited")
	fetchCmd.Flags().Bool("force", false, "Overwrite an existing output file")
	fetchCmd.Flags().String("repo-url", collector.DefaultRepoURL, "chisel-releases repository URL (or set CHISEL_RELEASES_URL)")
	fetchCmd.Flags().String("archive-url", collector.DefaultArchiveURL, "Ubuntu archive dists URL (or set ARCHIVE_URL)")
	fetchCmd.Flags().String("old-archive-url", collector.DefaultOldArchiveURL, "Ubuntu old-releases dists URL (or set OLD_ARCHIVE_URL)")
	fetchCmd.Flags().StringSlice("releases", nil, "Release versions to analyze (default: supported releases with branches)")
	fetchCmd.Flags().String("releases-file", "", "YAML release catalog replacing the built-in one")
	fetchCmd.Flags().String("cache-dir", "", "Cache HTTP responses in this directory")
	fetchCmd.Flags().Duration("cache-ttl", cache.DefaultTTL, "Lifetime of cached HTTP responses")
	fetchCmd.Flags().Bool("clear-cache", false, "Remove all cached HTTP responses before fetching")
	fetchCmd.Flags().Int("max-retries", 0, "Retry rate-limited and failed requests up to this many times")
	fetchCmd.Flags().Bool("progress", false, "Show request progress on stderr")

	for _, name := range []string{
		"jobs", "force", "repo-url", "archive-url", "old-archive-url",
		"releases", "releases-file", "cache-dir", "cache-ttl", "clear-cache", "max-retries", "progress",
	} {
		_ = viper.BindPFlag(name, fetchCmd.Flags().Lookup(name))
	}
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := zap.L()

	output := snapshot.Stdio
	if len(args) == 1 {
		output = args[0]
	}

	jobs := viper.GetInt("jobs")
	if err := fetch.ValidateJobs(jobs); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	// Fail on the output path before spending time on the network.
	if _, err := snapshot.FormatOf(output); err != nil {
		return err
	}
	force := viper.GetBool("force")
	if err := snapshot.CheckWritable(output, force); err != nil {
		return err
	}

	var err error
	catalog := distro.Default()
	if path := viper.GetString("releases-file"); path != "" {
		c, err := distro.LoadCatalogFromFile(path)
		if err != nil {
			return err
		}
		catalog = c
	}

	cacheDir := viper.GetString("cache-dir")
	if cacheDir == "" && viper.GetBool("use-cache") {
		if cacheDir, err = cache.DefaultDir(); err != nil {
			return err
		}
	}
	respCache, err := newCache(ctx, cacheDir, viper.GetDuration("cache-ttl"), viper.GetBool("clear-cache"))
	if err != nil {
		return err
	}

	cfg := collector.ClientConfig{
		Token:      githubToken(),
		MaxRetries: viper.GetInt("max-retries"),
		Cache:      respCache,
	}

	repo, err := collector.NewGitHubCollector(
		collector.NewGitHubClient(ctx, cfg),
		viper.GetString("repo-url"),
		catalog,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	log.Info("fetching open PRs",
		logfields.RepositoryOwner(repo.Owner()),
		logfields.Repository(repo.Repo()),
	)

	archiveCfg := cfg
	archiveCfg.Token = ""
	archive := collector.NewArchiveCollector(
		collector.NewHTTPClient(archiveCfg),
		catalog,
		collector.WithArchiveURL(viper.GetString("archive-url")),
		collector.WithOldArchiveURL(viper.GetString("old-archive-url")),
		collector.WithUserAgent("forwardport/"+version),
	)

	start := time.Now()
	snap, err := fetch.New(repo, archive, catalog, fetch.Config{
		Jobs:     jobs,
		Releases: viper.GetStringSlice("releases"),
		Progress: fetch.NewProgress(fetch.ProgressConfig{
			Writer:  cmd.ErrOrStderr(),
			Enabled: viper.GetBool("progress"),
		}),
	}).Run(ctx)
	if err != nil {
		return err
	}
	log.Info("fetched snapshot", logfields.Elapsed(time.Since(start)))

	if output == snapshot.Stdio {
		return snapshot.Encode(pipeWriter{w: cmd.OutOrStdout()}, snap)
	}
	return snapshot.Save(output, snap, force)
}

// newCache returns a response cache in dir, or nil when dir is empty.
// clearFirst removes every cached response first.
func newCache(ctx context.Context, dir string, ttl time.Duration, clearFirst bool) (*cache.Cache, error) {
	if dir == "" {
		return nil, nil
	}

	c, err := cache.New(cache.Config{Dir: dir, TTL: ttl})
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	log := zap.L()
	if clearFirst {
		if err := c.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clearing cache: %w", err)
		}
		log.Info("cleared cache", zap.String("dir", c.Dir()))
	}

	pruned, err := c.Prune(ctx)
	if err != nil {
		log.Warn("could not prune cache", zap.Error(err))
	}
	stats := c.Stats(ctx)
	log.Info("caching HTTP responses",
		zap.String("dir", c.Dir()),
		zap.Duration("ttl", c.TTL()),
		zap.Int("entries", stats.FileEntries),
		zap.Int("pruned", pruned),
	)
	return c, nil
}
