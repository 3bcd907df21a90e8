package model

import (
	"cmp"
	"fmt"
	"slices"
)

// ForwardPortMissingLabel marks PRs that still need to be forward-ported.
const ForwardPortMissingLabel = "forward port missing"

// Commit identifies a branch tip in a specific fork.
type Commit struct {
	Ref       string
	RepoName  string
	RepoOwner string
	RepoURL   string
	SHA       string
}

// Descriptor returns "owner/name/ref".
func (c Commit) Descriptor() string {
	return c.RepoOwner + "/" + c.RepoName + "/" + c.Ref
}

// PullRequest is an open pull request into a release branch.
//
// PRs are used as map keys, so the derived release takes part in ==.
// Every producer resolves it through one catalog: the collector with
// Resolve, and snapshot decoding by checking it against the listed
// releases. Use Equal to compare PRs from different sources.
type PullRequest struct {
	Number int
	Title  string
	User   string
	Head   Commit
	Base   Commit
	Label  bool
	URL    string

	// derived from Base.Ref
	release Release
}

// Resolve returns a copy of the PR with its target release derived from
// the base branch name.
func (p PullRequest) Resolve(resolver CodenameResolver) (PullRequest, error) {
	rel, err := ParseBranchName(p.Base.Ref, resolver)
	if err != nil {
		return PullRequest{}, fmt.Errorf("PR #%d: %w", p.Number, err)
	}
	p.release = rel
	return p, nil
}

// WithRelease returns a copy of the PR targeting rel. The version of rel
// must match the version in the base branch name.
func (p PullRequest) WithRelease(rel Release) (PullRequest, error) {
	version, err := BranchVersion(p.Base.Ref)
	if err != nil {
		return PullRequest{}, fmt.Errorf("PR #%d: %w", p.Number, err)
	}
	if _, _, err := ParseVersion(rel.Version); err != nil {
		return PullRequest{}, fmt.Errorf("PR #%d: %w", p.Number, err)
	}
	if version != rel.Version {
		return PullRequest{}, fmt.Errorf("PR #%d: %w: base branch %q does not match release %s",
			p.Number, ErrInvalidBranchName, p.Base.Ref, rel)
	}
	p.release = rel
	return p, nil
}

// Release returns the release the PR targets.
func (p PullRequest) Release() Release {
	return p.release
}

// Equal compares all fields except the derived release.
func (p PullRequest) Equal(other PullRequest) bool {
	p.release = Release{}
	other.release = Release{}
	return p == other
}

func (p PullRequest) String() string {
	return fmt.Sprintf("#%d", p.Number)
}

// ComparePullRequests orders PRs by number.
func ComparePullRequests(a, b PullRequest) int {
	return cmp.Compare(a.Number, b.Number)
}

// SortPullRequests sorts PRs in place by number.
func SortPullRequests(prs []PullRequest) {
	slices.SortStableFunc(prs, ComparePullRequests)
}
