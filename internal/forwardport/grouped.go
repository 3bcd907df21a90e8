package forwardport

import (
	"slices"

	"github.com/grokify/forwardport/internal/logfields"
	"github.com/grokify/forwardport/internal/sliceset"
	"github.com/grokify/forwardport/pkg/model"
)

// Grouped maps each PR to its comparisons, keyed by future release. Every
// PR and every release after its own is present, with an empty slice when
// there is no candidate.
type Grouped map[model.PullRequest]map[model.Release][]*Comparison

// GroupByRelease buckets PRs by target release, sorted by number. Every
// release is a key. PRs into releases not listed are logged and dropped.
func GroupByRelease(prs []model.PullRequest, releases []model.Release) map[model.Release][]model.PullRequest {
	log := logger()

	out := make(map[model.Release][]model.PullRequest, len(releases))
	byVersion := make(map[string]model.Release, len(releases))
	for _, r := range releases {
		out[r] = []model.PullRequest{}
		byVersion[r.Version] = r
	}

	sorted := slices.Clone(prs)
	model.SortPullRequests(sorted)

	for _, pr := range sorted {
		rel, ok := byVersion[pr.Release().Version]
		if !ok {
			log.Warn("PR is into an unsupported release, skipping",
				logfields.PullRequest(pr.Number),
				logfields.Release(pr.Release().String()),
			)
			continue
		}
		out[rel] = append(out[rel], pr)
	}

	return out
}

// CompareAll builds a Comparison for every PR and every PR into a strictly
// later release.
func CompareAll(releases []model.Release, prsByRelease map[model.Release][]model.PullRequest, newSlices map[model.PullRequest]sliceset.Set) (Grouped, error) {
	log := logger()

	sorted := slices.Clone(releases)
	model.SortReleases(sorted)

	grouped := make(Grouped)

	for i, rel := range sorted {
		prs := prsByRelease[rel]
		future := sorted[i+1:]

		if len(future) == 0 && len(prs) > 0 {
			log.Debug("no future releases, PRs have nothing to compare against",
				logfields.Release(rel.String()),
				logfields.PRCount(len(prs)),
			)
		}

		for _, pr := range prs {
			byFuture := make(map[model.Release][]*Comparison, len(future))

			for _, fr := range future {
				candidates := prsByRelease[fr]
				if len(candidates) == 0 {
					log.Debug("no PRs into future release",
						logfields.PullRequest(pr.Number),
						logfields.FutureRelease(fr.String()),
					)
				}

				comparisons := make([]*Comparison, 0, len(candidates))
				for _, candidate := range candidates {
					c, err := NewComparison(pr, newSlices[pr], candidate, newSlices[candidate])
					if err != nil {
						return nil, err
					}
					comparisons = append(comparisons, c)
				}
				byFuture[fr] = comparisons
			}

			grouped[pr] = byFuture
		}
	}

	return grouped, nil
}
