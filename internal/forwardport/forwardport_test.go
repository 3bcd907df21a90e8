package forwardport

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/grokify/forwardport/internal/sliceset"
	"github.com/grokify/forwardport/pkg/model"
)

var (
	focal = model.MustRelease("20.04", "focal")
	jammy = model.MustRelease("22.04", "jammy")
	noble = model.MustRelease("24.04", "noble")
)

func newPR(t *testing.T, number int, rel model.Release) model.PullRequest {
	t.Helper()

	pr := model.PullRequest{
		Number: number,
		Title:  fmt.Sprintf("PR %d", number),
		User:   "octocat",
		Head: model.Commit{
			Ref:       fmt.Sprintf("pr-%d", number),
			RepoName:  "chisel-releases",
			RepoOwner: "octocat",
			RepoURL:   "https://github.com/octocat/chisel-releases",
			SHA:       fmt.Sprintf("head%d", number),
		},
		Base: model.Commit{
			Ref:       rel.Key(),
			RepoName:  "chisel-releases",
			RepoOwner: "canonical",
			RepoURL:   "https://github.com/canonical/chisel-releases",
			SHA:       fmt.Sprintf("base%d", number),
		},
		URL: fmt.Sprintf("https://github.com/canonical/chisel-releases/pull/%d", number),
	}

	pr, err := pr.WithRelease(rel)
	require.NoError(t, err)
	return pr
}

func observeLogs(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	t.Cleanup(zap.ReplaceGlobals(zap.New(core)))
	return logs
}

// scenario builds an input where each PR's base is empty, so its new
// slices are exactly its head slices.
func scenario(releases []model.Release, slicesByPR map[model.PullRequest]sliceset.Set, packages map[model.Release]sliceset.Set) Input {
	in := Input{
		Releases:          releases,
		SlicesInHead:      map[model.PullRequest]sliceset.Set{},
		SlicesInBase:      map[model.PullRequest]sliceset.Set{},
		PackagesByRelease: packages,
	}
	for pr, s := range slicesByPR {
		in.PullRequests = append(in.PullRequests, pr)
		in.SlicesInHead[pr] = s
		in.SlicesInBase[pr] = sliceset.New()
	}
	return in
}

func TestNewSlices(t *testing.T) {
	logs := observeLogs(t, zap.WarnLevel)

	pr1 := newPR(t, 1, focal)
	pr2 := newPR(t, 2, jammy)

	head := map[model.PullRequest]sliceset.Set{
		pr1: sliceset.New("base-files_bins", "foo_bins", "foo_libs"),
		pr2: sliceset.New("bar_bins"),
	}
	base := map[model.PullRequest]sliceset.Set{
		pr1: sliceset.New("base-files_bins"),
		pr2: sliceset.New("bar_bins", "old_bins"),
	}

	got, err := NewSlices(head, base)
	require.NoError(t, err)

	assert.Equal(t, []string{"foo_bins", "foo_libs"}, got[pr1].Sorted())
	assert.Equal(t, 0, got[pr2].Len())

	// PR #2 drops old_bins relative to its merge base
	removed := logs.FilterField(zap.Int("github.pull_request", 2)).All()
	require.Len(t, removed, 1)
	assert.Equal(t, zap.WarnLevel, removed[0].Level)
	assert.Equal(t, 0, logs.FilterField(zap.Int("github.pull_request", 1)).Len())
}

func TestNewSlices_KeyMismatch(t *testing.T) {
	pr1 := newPR(t, 1, focal)
	pr2 := newPR(t, 2, jammy)

	_, err := NewSlices(
		map[model.PullRequest]sliceset.Set{pr1: sliceset.New("a")},
		map[model.PullRequest]sliceset.Set{pr2: sliceset.New("a")},
	)
	require.ErrorIs(t, err, ErrKeyMismatch)

	_, err = NewSlices(
		map[model.PullRequest]sliceset.Set{pr1: sliceset.New("a"), pr2: sliceset.New()},
		map[model.PullRequest]sliceset.Set{pr1: sliceset.New()},
	)
	require.ErrorIs(t, err, ErrKeyMismatch)
}

func TestNewComparison_RequiresLaterRelease(t *testing.T) {
	older := newPR(t, 1, focal)
	same := newPR(t, 2, focal)
	newer := newPR(t, 3, jammy)

	_, err := NewComparison(older, sliceset.New("a"), same, sliceset.New("a"))
	require.ErrorIs(t, err, ErrNotFutureRelease)

	_, err = NewComparison(newer, sliceset.New("a"), older, sliceset.New("a"))
	require.ErrorIs(t, err, ErrNotFutureRelease)

	c, err := NewComparison(older, sliceset.New("a"), newer, sliceset.New("a"))
	require.NoError(t, err)
	assert.Equal(t, focal, c.Release())
	assert.Equal(t, jammy, c.FutureRelease())
}

func TestComparison_SetRelations(t *testing.T) {
	c, err := NewComparison(
		newPR(t, 1, focal), sliceset.New("foo_bins", "foo_libs", "bar_bins", "gone_bins"),
		newPR(t, 2, jammy), sliceset.New("foo_bins", "baz_bins"),
	)
	require.NoError(t, err)

	ResolveDiscontinued(
		Grouped{c.PR: {jammy: {c}}},
		map[model.Release]sliceset.Set{jammy: sliceset.New("foo", "bar", "baz")},
	)

	assert.Equal(t, []string{"gone_bins"}, c.Discontinued().Sorted())
	assert.Equal(t, []string{"bar_bins", "foo_libs"}, c.Missing().Sorted())
	assert.Equal(t, []string{"foo_bins"}, c.Overlap().Sorted())
	assert.Equal(t, 0, c.Missing().Intersect(c.Overlap()).Len())
	assert.True(t, c.Missing().Union(c.Overlap()).Equal(c.Slices.Difference(c.Discontinued())))
	assert.False(t, c.IsForwardPorted())
}

func TestGroupByRelease(t *testing.T) {
	logs := observeLogs(t, zap.WarnLevel)

	oracular := model.MustRelease("24.10", "oracular")
	prs := []model.PullRequest{
		newPR(t, 5, jammy),
		newPR(t, 2, jammy),
		newPR(t, 3, oracular),
		newPR(t, 1, focal),
	}

	got := GroupByRelease(prs, []model.Release{focal, jammy, noble})

	require.Len(t, got, 3)
	assert.Equal(t, []int{1}, numbers(got[focal]))
	assert.Equal(t, []int{2, 5}, numbers(got[jammy]))
	assert.NotNil(t, got[noble])
	assert.Empty(t, got[noble])

	assert.Equal(t, 1, logs.FilterMessage("PR is into an unsupported release, skipping").Len())
}

func numbers(prs []model.PullRequest) []int {
	out := []int{}
	for _, pr := range prs {
		out = append(out, pr.Number)
	}
	return out
}

func TestCompareAll_EveryFutureReleasePresent(t *testing.T) {
	pr1 := newPR(t, 1, focal)
	pr2 := newPR(t, 2, focal)
	pr3 := newPR(t, 3, noble)

	releases := []model.Release{noble, focal, jammy}
	byRelease := GroupByRelease([]model.PullRequest{pr1, pr2, pr3}, releases)
	newSlices := map[model.PullRequest]sliceset.Set{
		pr1: sliceset.New("a_bins"),
		pr2: sliceset.New("b_bins"),
		pr3: sliceset.New("a_bins"),
	}

	grouped, err := CompareAll(releases, byRelease, newSlices)
	require.NoError(t, err)

	require.Len(t, grouped, 3)

	require.Contains(t, grouped[pr1], jammy)
	require.Contains(t, grouped[pr1], noble)
	assert.Empty(t, grouped[pr1][jammy])
	require.Len(t, grouped[pr1][noble], 1)
	assert.Equal(t, 3, grouped[pr1][noble][0].Future.Number)

	// same release PRs are never compared with each other
	for _, comparisons := range grouped[pr2] {
		for _, c := range comparisons {
			assert.NotEqual(t, 1, c.Future.Number)
		}
	}

	require.Contains(t, grouped, pr3)
	assert.Empty(t, grouped[pr3])

	assert.False(t, Status(newSlices[pr1], grouped[pr1]), "no candidate in 22.04")
}

func TestStatus(t *testing.T) {
	pr1 := newPR(t, 1, focal)
	failing, err := NewComparison(pr1, sliceset.New("a_bins"), newPR(t, 2, jammy), sliceset.New())
	require.NoError(t, err)
	passing, err := NewComparison(pr1, sliceset.New("a_bins"), newPR(t, 3, jammy), sliceset.New("a_bins"))
	require.NoError(t, err)

	tests := map[string]struct {
		slices   sliceset.Set
		byFuture map[model.Release][]*Comparison
		want     bool
	}{
		"no new slices with failing candidates": {
			slices:   sliceset.New(),
			byFuture: map[model.Release][]*Comparison{jammy: {failing}},
			want:     true,
		},
		"no future releases": {
			slices:   sliceset.New("a_bins"),
			byFuture: map[model.Release][]*Comparison{},
			want:     true,
		},
		"future release without candidates": {
			slices:   sliceset.New("a_bins"),
			byFuture: map[model.Release][]*Comparison{jammy: {passing}, noble: {}},
			want:     false,
		},
		"one passing candidate is enough": {
			slices:   sliceset.New("a_bins"),
			byFuture: map[model.Release][]*Comparison{jammy: {failing, passing}},
			want:     true,
		},
		"only failing candidates": {
			slices:   sliceset.New("a_bins"),
			byFuture: map[model.Release][]*Comparison{jammy: {failing}},
			want:     false,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.slices, tt.byFuture))
		})
	}
}

func TestAnalyze_ForwardPorted(t *testing.T) {
	pr1 := newPR(t, 1, focal)
	pr2 := newPR(t, 2, jammy)

	a, err := Analyze(scenario(
		[]model.Release{focal, jammy},
		map[model.PullRequest]sliceset.Set{
			pr1: sliceset.New("foo_bins"),
			pr2: sliceset.New("foo_bins", "foo_libs"),
		},
		map[model.Release]sliceset.Set{focal: sliceset.New("foo"), jammy: sliceset.New("foo")},
	))
	require.NoError(t, err)

	c := a.Grouped[pr1][jammy][0]
	assert.Equal(t, []string{"foo_bins"}, c.Overlap().Sorted())
	assert.Equal(t, 0, c.Missing().Len())
	assert.True(t, c.IsForwardPorted())
	assert.True(t, a.ForwardPorted(pr1))
}

func TestAnalyze_MissingAndDiscontinued(t *testing.T) {
	pr1 := newPR(t, 1, focal)
	pr2 := newPR(t, 2, jammy)
	slicesByPR := map[model.PullRequest]sliceset.Set{
		pr1: sliceset.New("foo_bins"),
		pr2: sliceset.New("foo_libs"),
	}

	t.Run("package still in future release", func(t *testing.T) {
		a, err := Analyze(scenario([]model.Release{focal, jammy}, slicesByPR,
			map[model.Release]sliceset.Set{jammy: sliceset.New("foo", "bar")}))
		require.NoError(t, err)

		c := a.Grouped[pr1][jammy][0]
		assert.Equal(t, []string{"foo_bins"}, c.Missing().Sorted())
		assert.Equal(t, 0, c.Discontinued().Len())
		assert.False(t, a.ForwardPorted(pr1))
	})

	t.Run("package dropped from future release", func(t *testing.T) {
		a, err := Analyze(scenario([]model.Release{focal, jammy}, slicesByPR,
			map[model.Release]sliceset.Set{jammy: sliceset.New("bar")}))
		require.NoError(t, err)

		c := a.Grouped[pr1][jammy][0]
		assert.Equal(t, []string{"foo_bins"}, c.Discontinued().Sorted())
		assert.Equal(t, 0, c.Missing().Len())
		assert.True(t, a.ForwardPorted(pr1))
	})

	t.Run("no package listing for future release", func(t *testing.T) {
		a, err := Analyze(scenario([]model.Release{focal, jammy}, slicesByPR,
			map[model.Release]sliceset.Set{jammy: sliceset.New()}))
		require.NoError(t, err)

		c := a.Grouped[pr1][jammy][0]
		assert.Equal(t, 0, c.Discontinued().Len())
		assert.False(t, a.ForwardPorted(pr1))
	})
}

func TestAnalyze_LatestReleaseIsVacuouslyForwardPorted(t *testing.T) {
	pr := newPR(t, 7, noble)

	a, err := Analyze(scenario(
		[]model.Release{focal, jammy, noble},
		map[model.PullRequest]sliceset.Set{pr: sliceset.New("foo_bins")},
		nil,
	))
	require.NoError(t, err)

	require.Contains(t, a.Grouped, pr)
	assert.Empty(t, a.Grouped[pr])
	assert.True(t, a.ForwardPorted(pr))
}

func TestAnalyze_ReleasesFromPackageListing(t *testing.T) {
	pr1 := newPR(t, 1, focal)
	pr2 := newPR(t, 2, jammy)

	a, err := Analyze(scenario(
		nil,
		map[model.PullRequest]sliceset.Set{pr1: sliceset.New("foo_bins"), pr2: sliceset.New("foo_bins")},
		map[model.Release]sliceset.Set{jammy: sliceset.New("foo"), focal: sliceset.New("foo")},
	))
	require.NoError(t, err)

	assert.Equal(t, []model.Release{focal, jammy}, a.Releases)
	assert.True(t, a.ForwardPorted(pr1))
}

func TestAnalysis_Results(t *testing.T) {
	pr1 := newPR(t, 1, focal)
	pr4 := newPR(t, 4, jammy)
	pr3 := newPR(t, 3, jammy)
	pr9 := newPR(t, 9, noble)

	a, err := Analyze(scenario(
		[]model.Release{focal, jammy, noble},
		map[model.PullRequest]sliceset.Set{
			pr1: sliceset.New("foo_bins", "old_bins"),
			pr3: sliceset.New("foo_bins"),
			pr4: sliceset.New("foo_bins", "foo_libs"),
			pr9: sliceset.New("foo_bins"),
		},
		map[model.Release]sliceset.Set{
			jammy: sliceset.New("foo"),
			noble: sliceset.New("foo"),
		},
	))
	require.NoError(t, err)

	results := a.Results()
	require.Len(t, results, 4)
	assert.Equal(t, []int{1, 3, 4, 9}, []int{
		results[0].PR.Number, results[1].PR.Number, results[2].PR.Number, results[3].PR.Number,
	})

	r1 := results[0]
	assert.True(t, r1.ForwardPorted)
	assert.Equal(t, []string{"foo_bins", "old_bins"}, r1.Slices)
	require.Len(t, r1.Future, 2)

	assert.Equal(t, jammy, r1.Future[0].Release)
	assert.Equal(t, []int{3, 4}, r1.Future[0].ForwardPorts)
	assert.Equal(t, []string{"old_bins"}, r1.Future[0].Discontinued)
	require.Len(t, r1.Future[0].Comparisons, 2)
	assert.Equal(t, 3, r1.Future[0].Comparisons[0].Future.Number)

	assert.Equal(t, noble, r1.Future[1].Release)
	assert.Equal(t, []int{9}, r1.Future[1].ForwardPorts)
	assert.Equal(t, []int{3, 4, 9}, r1.ForwardPorts())

	// #4 introduces foo_libs which #9 does not carry
	r4 := results[2]
	assert.False(t, r4.ForwardPorted)
	assert.Equal(t, []int{}, r4.ForwardPorts())

	r9 := results[3]
	assert.True(t, r9.ForwardPorted)
	assert.Empty(t, r9.Future)
}

func TestPackageOf(t *testing.T) {
	tests := map[string]string{
		"foo_bins":        "foo",
		"foo":             "foo",
		"libc6_libs":      "libc6",
		"ca-certificates": "ca-certificates",
		"python3.12_core": "python3.12",
	}
	for slice, want := range tests {
		assert.Equal(t, want, PackageOf(slice), slice)
	}
}
