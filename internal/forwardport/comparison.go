package forwardport

import (
	"fmt"

	"github.com/grokify/forwardport/internal/sliceset"
	"github.com/grokify/forwardport/pkg/model"
)

// Comparison pairs a PR with a candidate forward-port PR into a later release.
type Comparison struct {
	PR           model.PullRequest
	Slices       sliceset.Set
	Future       model.PullRequest
	FutureSlices sliceset.Set

	// set once by ResolveDiscontinued
	discontinued sliceset.Set
}

// NewComparison fails with ErrNotFutureRelease unless future targets a
// release strictly later than pr.
func NewComparison(pr model.PullRequest, slices sliceset.Set, future model.PullRequest, futureSlices sliceset.Set) (*Comparison, error) {
	if !pr.Release().Before(future.Release()) {
		return nil, fmt.Errorf("%w: PR #%d into %s, candidate #%d into %s",
			ErrNotFutureRelease, pr.Number, pr.Release(), future.Number, future.Release())
	}

	return &Comparison{
		PR:           pr,
		Slices:       slices,
		Future:       future,
		FutureSlices: futureSlices,
	}, nil
}

// Release is the release the original PR targets.
func (c *Comparison) Release() model.Release {
	return c.PR.Release()
}

// FutureRelease is the release the candidate PR targets.
func (c *Comparison) FutureRelease() model.Release {
	return c.Future.Release()
}

// Discontinued returns the slices whose package is gone from the future release.
func (c *Comparison) Discontinued() sliceset.Set {
	return c.discontinued
}

// Missing returns the new slices of the PR absent from the candidate,
// excluding discontinued ones.
func (c *Comparison) Missing() sliceset.Set {
	return c.Slices.Difference(c.FutureSlices).Difference(c.discontinued)
}

// Overlap returns the new slices shared by both PRs.
func (c *Comparison) Overlap() sliceset.Set {
	return c.Slices.Intersect(c.FutureSlices)
}

// IsForwardPorted reports whether the candidate carries every slice that
// still needs porting.
func (c *Comparison) IsForwardPorted() bool {
	return c.Missing().Len() == 0
}

func (c *Comparison) String() string {
	return fmt.Sprintf("#%d (%s) -> #%d (%s): %d missing, %d overlapping",
		c.PR.Number, c.Release().Key(), c.Future.Number, c.FutureRelease().Key(),
		c.Missing().Len(), c.Overlap().Len())
}
