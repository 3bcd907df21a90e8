// Package collector fetches the raw data of a forward-port analysis: open
// PRs and slice listings from the chisel-releases GitHub repository, and
// supported releases and package listings from the Ubuntu archive.
package collector

import (
	"context"

	"github.com/grokify/forwardport/internal/sliceset"
	"github.com/grokify/forwardport/pkg/model"
)

// Repository collects data from a chisel-releases repository.
type Repository interface {
	// ReleaseBranches returns the releases that have a branch.
	ReleaseBranches(ctx context.Context) ([]model.Release, error)

	// OpenPullRequests returns the open, non-draft PRs into release branches.
	OpenPullRequests(ctx context.Context) ([]model.PullRequest, error)

	// MergeBase returns the merge-base commit SHA of a PR's head and base.
	MergeBase(ctx context.Context, pr model.PullRequest) (string, error)

	// Slices returns the slice definition names in the slices directory
	// of owner/repo at ref.
	Slices(ctx context.Context, owner, repo, ref string) (sliceset.Set, error)
}

// Archive collects data from an Ubuntu package archive.
type Archive interface {
	// SupportedReleases returns the releases published in the archive.
	SupportedReleases(ctx context.Context) ([]model.Release, error)

	// Packages returns the binary package names of one component and pocket.
	Packages(ctx context.Context, release model.Release, component, pocket string) (sliceset.Set, error)
}

// Components are the archive components whose packages are collected.
var Components = []string{"main", "restricted", "universe", "multiverse"}

// Pockets are the archive pockets whose packages are collected. The empty
// pocket is the release itself.
var Pockets = []string{"", "security", "updates", "backports"}
