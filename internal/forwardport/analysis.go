package forwardport

import (
	"maps"
	"slices"

	"github.com/grokify/forwardport/internal/sliceset"
	"github.com/grokify/forwardport/pkg/model"
)

// Input is the data a gap analysis runs on.
type Input struct {
	// Releases under analysis. When empty, the releases with a package
	// listing are used.
	Releases          []model.Release
	PullRequests      []model.PullRequest
	SlicesInHead      map[model.PullRequest]sliceset.Set
	SlicesInBase      map[model.PullRequest]sliceset.Set
	PackagesByRelease map[model.Release]sliceset.Set
}

// Analysis is the outcome of a gap analysis.
type Analysis struct {
	Releases  []model.Release
	Grouped   Grouped
	NewSlices map[model.PullRequest]sliceset.Set
}

// Analyze groups PRs by release, derives their new slices, compares them
// across releases and accounts for discontinued packages.
func Analyze(in Input) (*Analysis, error) {
	releases := uniqueReleases(in.Releases)
	if len(releases) == 0 {
		releases = uniqueReleases(slices.Collect(maps.Keys(in.PackagesByRelease)))
	}

	prsByRelease := GroupByRelease(in.PullRequests, releases)

	newSlices, err := NewSlices(in.SlicesInHead, in.SlicesInBase)
	if err != nil {
		return nil, err
	}

	grouped, err := CompareAll(releases, prsByRelease, newSlices)
	if err != nil {
		return nil, err
	}

	ResolveDiscontinued(grouped, in.PackagesByRelease)

	return &Analysis{
		Releases:  releases,
		Grouped:   grouped,
		NewSlices: newSlices,
	}, nil
}

func uniqueReleases(releases []model.Release) []model.Release {
	seen := make(map[string]bool, len(releases))
	out := make([]model.Release, 0, len(releases))
	for _, r := range releases {
		if seen[r.Version] {
			continue
		}
		seen[r.Version] = true
		out = append(out, r)
	}
	model.SortReleases(out)
	return out
}

// ForwardPorted returns the aggregate status of pr.
func (a *Analysis) ForwardPorted(pr model.PullRequest) bool {
	return Status(a.NewSlices[pr], a.Grouped[pr])
}

// Result is the per-PR view of an Analysis.
type Result struct {
	PR            model.PullRequest
	ForwardPorted bool
	Slices        []string
	Future        []FutureResult
}

// FutureResult summarizes the candidates of a PR in one later release.
type FutureResult struct {
	Release      model.Release
	ForwardPorts []int
	Discontinued []string
	Comparisons  []*Comparison
}

// ForwardPorts returns the numbers of all forward-ported candidates across
// every future release, sorted.
func (r Result) ForwardPorts() []int {
	out := []int{}
	for _, f := range r.Future {
		out = append(out, f.ForwardPorts...)
	}
	slices.Sort(out)
	return out
}

// Results returns one Result per analyzed PR, ordered by PR number, with
// future releases oldest first.
func (a *Analysis) Results() []Result {
	prs := slices.SortedFunc(maps.Keys(a.Grouped), model.ComparePullRequests)

	results := make([]Result, 0, len(prs))
	for _, pr := range prs {
		byFuture := a.Grouped[pr]

		res := Result{
			PR:            pr,
			ForwardPorted: Status(a.NewSlices[pr], byFuture),
			Slices:        a.NewSlices[pr].Sorted(),
		}

		for _, fr := range slices.SortedFunc(maps.Keys(byFuture), model.Release.Compare) {
			comparisons := slices.Clone(byFuture[fr])
			slices.SortFunc(comparisons, func(x, y *Comparison) int {
				return model.ComparePullRequests(x.Future, y.Future)
			})

			f := FutureResult{
				Release:      fr,
				ForwardPorts: []int{},
				Discontinued: []string{},
				Comparisons:  comparisons,
			}
			for _, c := range comparisons {
				if c.IsForwardPorted() {
					f.ForwardPorts = append(f.ForwardPorts, c.Future.Number)
				}
			}
			if len(comparisons) > 0 {
				f.Discontinued = comparisons[0].Discontinued().Sorted()
			}

			res.Future = append(res.Future, f)
		}

		results = append(results, res)
	}

	return results
}
