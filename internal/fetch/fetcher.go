// Package fetch collects a snapshot of the open PRs into release branches,
// their slice listings and the package listings of every analyzed release.
package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/grokify/forwardport/internal/collector"
	"github.com/grokify/forwardport/internal/distro"
	"github.com/grokify/forwardport/internal/forwardport"
	"github.com/grokify/forwardport/internal/logfields"
	"github.com/grokify/forwardport/internal/sliceset"
	"github.com/grokify/forwardport/internal/snapshot"
	"github.com/grokify/forwardport/pkg/model"
)

// Config configures a Fetcher.
type Config struct {
	// Jobs is the maximum number of concurrent requests, or Unlimited.
	Jobs int

	// Releases lists the versions to analyze. Empty selects the releases
	// published in the archive that have a branch and are not skipped.
	Releases []string

	// Progress reports the progress of the requests. Nil reports nothing.
	Progress *Progress
}

// Fetcher runs the collection pipeline.
type Fetcher struct {
	repo    collector.Repository
	archive collector.Archive
	catalog *distro.Catalog
	cfg     Config
}

// New creates a Fetcher.
func New(repo collector.Repository, archive collector.Archive, catalog *distro.Catalog, cfg Config) *Fetcher {
	if cfg.Jobs == 0 {
		cfg.Jobs = 1
	}
	return &Fetcher{
		repo:    repo,
		archive: archive,
		catalog: catalog,
		cfg:     cfg,
	}
}

func logger() *zap.Logger {
	return zap.L().Named("fetch")
}

type listing struct {
	release   model.Release
	component string
	pocket    string
}

// Run collects a snapshot.
func (f *Fetcher) Run(ctx context.Context) (*snapshot.Snapshot, error) {
	if err := ValidateJobs(f.cfg.Jobs); err != nil {
		return nil, err
	}
	log := logger()
	progress := f.cfg.Progress

	releases, err := f.releases(ctx)
	if err != nil {
		return nil, err
	}

	prs, err := f.repo.OpenPullRequests(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("found open PRs", logfields.PRCount(len(prs)))

	progress.Start(4)

	start := time.Now()
	progress.StartStage("merge bases", len(prs))
	mergeBases, err := Map(ctx, f.cfg.Jobs, prs, tracked(progress, f.repo.MergeBase))
	if err != nil {
		return nil, err
	}
	log.Info("fetched merge bases", logfields.PRCount(len(prs)), logfields.Elapsed(time.Since(start)))

	start = time.Now()
	head, base, err := f.slices(ctx, prs, mergeBases)
	if err != nil {
		return nil, err
	}
	total := 0
	for i := range prs {
		total += head[i].Len() + base[i].Len()
	}
	log.Info("fetched slices",
		logfields.PRCount(len(prs)),
		logfields.SliceCount(total),
		logfields.Elapsed(time.Since(start)),
	)

	start = time.Now()
	packages, err := f.packages(ctx, releases)
	if err != nil {
		return nil, err
	}
	log.Info("fetched packages",
		zap.Int("releases", len(releases)),
		logfields.Elapsed(time.Since(start)),
	)

	snap := snapshot.New()
	snap.Releases = releases
	snap.PullRequests = prs
	snap.PackagesByRelease = packages
	for i, pr := range prs {
		snap.SlicesInHead[pr] = head[i]
		snap.SlicesInBase[pr] = base[i]
	}

	npkgs := 0
	for _, pkgs := range packages {
		npkgs += pkgs.Len()
	}
	progress.Complete(Summary{
		Releases: len(releases),
		PRs:      len(prs),
		Slices:   total,
		Packages: npkgs,
	})

	logByRelease(snap)
	return snap, nil
}

// releases returns the releases to analyze, oldest first.
func (f *Fetcher) releases(ctx context.Context) ([]model.Release, error) {
	log := logger()

	if len(f.cfg.Releases) > 0 {
		releases := make([]model.Release, 0, len(f.cfg.Releases))
		for _, v := range f.cfg.Releases {
			rel, ok := f.catalog.Lookup(strings.TrimSpace(v))
			if !ok {
				return nil, fmt.Errorf("%w: %q", model.ErrUnknownRelease, v)
			}
			releases = append(releases, rel)
		}
		model.SortReleases(releases)
		log.Info("considering requested releases", zap.String("releases", joinReleases(releases)))
		return releases, nil
	}

	supported, err := f.archive.SupportedReleases(ctx)
	if err != nil {
		return nil, err
	}
	branches, err := f.repo.ReleaseBranches(ctx)
	if err != nil {
		return nil, err
	}

	log.Debug("found supported releases in the archive", zap.String("releases", joinReleases(supported)))
	log.Debug("found release branches", zap.String("releases", joinReleases(branches)))

	hasBranch := make(map[string]bool, len(branches))
	for _, b := range branches {
		hasBranch[b.Version] = true
	}

	var releases, dropped, skipped []model.Release
	for _, r := range supported {
		switch {
		case !hasBranch[r.Version]:
			dropped = append(dropped, r)
		case f.catalog.Skipped(r):
			skipped = append(skipped, r)
		default:
			releases = append(releases, r)
		}
	}

	if len(dropped) > 0 {
		log.Debug("dropping supported releases without branches", zap.String("releases", joinReleases(dropped)))
	}
	if len(skipped) > 0 {
		log.Info("skipping releases", zap.String("releases", joinReleases(skipped)))
	}
	log.Info("considering supported releases with branches", zap.String("releases", joinReleases(releases)))

	return releases, nil
}

// slices returns the slices in the head and in the merge base of each PR,
// indexed like prs.
func (f *Fetcher) slices(ctx context.Context, prs []model.PullRequest, mergeBases []string) (head, base []sliceset.Set, err error) {
	progress := f.cfg.Progress

	progress.StartStage("head slices", len(prs))
	head, err = Map(ctx, f.cfg.Jobs, prs, tracked(progress, func(ctx context.Context, pr model.PullRequest) (sliceset.Set, error) {
		return f.repo.Slices(ctx, pr.Head.RepoOwner, pr.Head.RepoName, pr.Head.Ref)
	}))
	if err != nil {
		return nil, nil, err
	}

	indices := make([]int, len(prs))
	for i := range indices {
		indices[i] = i
	}
	progress.StartStage("base slices", len(prs))
	base, err = Map(ctx, f.cfg.Jobs, indices, tracked(progress, func(ctx context.Context, i int) (sliceset.Set, error) {
		return f.repo.Slices(ctx, prs[i].Base.RepoOwner, prs[i].Base.RepoName, mergeBases[i])
	}))
	if err != nil {
		return nil, nil, err
	}

	return head, base, nil
}

// packages returns, per release, the union of the packages of every
// component and pocket.
func (f *Fetcher) packages(ctx context.Context, releases []model.Release) (map[model.Release]sliceset.Set, error) {
	var listings []listing
	for _, r := range releases {
		for _, c := range collector.Components {
			for _, p := range collector.Pockets {
				listings = append(listings, listing{release: r, component: c, pocket: p})
			}
		}
	}

	f.cfg.Progress.StartStage("package listings", len(listings))
	sets, err := Map(ctx, f.cfg.Jobs, listings, tracked(f.cfg.Progress, func(ctx context.Context, l listing) (sliceset.Set, error) {
		return f.archive.Packages(ctx, l.release, l.component, l.pocket)
	}))
	if err != nil {
		return nil, err
	}

	byRelease := make(map[model.Release]sliceset.Set, len(releases))
	for _, r := range releases {
		byRelease[r] = make(sliceset.Set)
	}
	for i, l := range listings {
		byRelease[l.release] = byRelease[l.release].Union(sets[i])
	}
	return byRelease, nil
}

// logByRelease logs the open PRs of every release with their slice counts.
func logByRelease(snap *snapshot.Snapshot) {
	log := logger()
	if !log.Core().Enabled(zap.InfoLevel) {
		return
	}

	byRelease := forwardport.GroupByRelease(snap.PullRequests, snap.Releases)
	for _, r := range snap.Releases {
		prs := byRelease[r]
		log.Info("open PRs into release", logfields.Release(r.String()), logfields.PRCount(len(prs)))
		for _, pr := range prs {
			log.Info("open PR",
				logfields.PullRequest(pr.Number),
				zap.String("title", pr.Title),
				zap.Int("head_slices", snap.SlicesInHead[pr].Len()),
				zap.Int("base_slices", snap.SlicesInBase[pr].Len()),
			)
		}
	}
}

func joinReleases(releases []model.Release) string {
	parts := make([]string, len(releases))
	for i, r := range releases {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}
