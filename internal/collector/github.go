package collector

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v84/github"
	"github.com/grokify/gogithub/pr"
	"go.uber.org/zap"

	"github.com/grokify/forwardport/internal/logfields"
	"github.com/grokify/forwardport/internal/sliceset"
	"github.com/grokify/forwardport/pkg/model"
)

const (
	// DefaultRepoURL is the chisel-releases repository.
	DefaultRepoURL = "https://github.com/canonical/chisel-releases"

	slicesDir = "slices"
	sliceExt  = ".yaml"
	perPage   = 100
)

func logger() *zap.Logger {
	return zap.L().Named("collector")
}

// GitHubCollector implements Repository for a GitHub repository.
type GitHubCollector struct {
	client   *github.Client
	owner    string
	repo     string
	resolver model.CodenameResolver
}

// NewGitHubCollector creates a collector for the repository at repoURL.
// resolver maps release versions in branch names to codenames.
func NewGitHubCollector(client *github.Client, repoURL string, resolver model.CodenameResolver) (*GitHubCollector, error) {
	owner, repo, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	return &GitHubCollector{
		client:   client,
		owner:    owner,
		repo:     repo,
		resolver: resolver,
	}, nil
}

// ParseRepoURL extracts owner and name from a repository URL such as
// "https://github.com/canonical/chisel-releases".
func ParseRepoURL(raw string) (owner, repo string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("invalid repository URL %q: %w", raw, err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository URL %q: expected https://<host>/<owner>/<repo>", raw)
	}

	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}

// Owner returns the repository owner.
func (c *GitHubCollector) Owner() string {
	return c.owner
}

// Repo returns the repository name.
func (c *GitHubCollector) Repo() string {
	return c.repo
}

// ReleaseBranches returns the releases with a branch in the repository,
// oldest first. Branches of versions the resolver does not know are skipped.
func (c *GitHubCollector) ReleaseBranches(ctx context.Context) ([]model.Release, error) {
	log := logger()

	var releases []model.Release
	opts := &github.BranchListOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	for {
		branches, resp, err := c.client.Repositories.ListBranches(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing branches of %s/%s: %w", c.owner, c.repo, apiError(err))
		}

		for _, b := range branches {
			name := b.GetName()
			if !strings.HasPrefix(name, model.BranchPrefix) {
				continue
			}
			rel, err := model.ParseBranchName(name, c.resolver)
			if err != nil {
				log.Warn("skipping release branch", logfields.BaseBranch(name), zap.Error(err))
				continue
			}
			releases = append(releases, rel)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	model.SortReleases(releases)
	return releases, nil
}

// OpenPullRequests returns the open, non-draft PRs into release branches,
// ordered by number. A PR into a release the resolver does not know is an
// error.
func (c *GitHubCollector) OpenPullRequests(ctx context.Context) ([]model.PullRequest, error) {
	opts := &github.PullRequestListOptions{
		State: "open",
		ListOptions: github.ListOptions{
			PerPage: perPage,
		},
	}

	ghPRs, err := pr.ListPRs(ctx, c.client, c.owner, c.repo, opts)
	if err != nil {
		return nil, fmt.Errorf("listing PRs of %s/%s: %w", c.owner, c.repo, apiError(err))
	}

	prs := make([]model.PullRequest, 0, len(ghPRs))
	for _, ghPR := range ghPRs {
		if !strings.HasPrefix(ghPR.GetBase().GetRef(), model.BranchPrefix) || ghPR.GetDraft() {
			continue
		}

		mpr, err := convertPR(ghPR).Resolve(c.resolver)
		if err != nil {
			return nil, err
		}
		prs = append(prs, mpr)
	}

	model.SortPullRequests(prs)
	return prs, nil
}

// MergeBase returns the merge base of the PR's head and base branches.
func (c *GitHubCollector) MergeBase(ctx context.Context, mpr model.PullRequest) (string, error) {
	base, head := mpr.Base, mpr.Head

	cmp, _, err := c.client.Repositories.CompareCommits(ctx,
		base.RepoOwner, base.RepoName,
		base.RepoOwner+":"+base.Ref,
		head.RepoOwner+":"+head.Ref,
		&github.ListOptions{PerPage: 1},
	)
	if err != nil {
		return "", fmt.Errorf("PR %s: comparing %s with %s: %w", mpr, base.Descriptor(), head.Descriptor(), apiError(err))
	}

	sha := cmp.GetMergeBaseCommit().GetSHA()
	if sha == "" {
		return "", fmt.Errorf("PR %s: no merge base commit between %s and %s", mpr, base.Descriptor(), head.Descriptor())
	}

	if sha != base.SHA {
		logger().Warn("base branch has advanced since the PR was created/updated. Consider rebasing",
			logfields.PullRequest(mpr.Number),
			logfields.BaseBranch(base.Ref),
			logfields.Commit(sha),
		)
	}

	return sha, nil
}

// Slices returns the names of the slice definitions in the slices
// directory of owner/repo at ref, without their extension.
func (c *GitHubCollector) Slices(ctx context.Context, owner, repo, ref string) (sliceset.Set, error) {
	_, entries, _, err := c.client.Repositories.GetContents(ctx, owner, repo, slicesDir,
		&github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return nil, fmt.Errorf("listing %s of %s/%s at %s: %w", slicesDir, owner, repo, ref, apiError(err))
	}

	slices := make(sliceset.Set, len(entries))
	for _, e := range entries {
		if e.GetType() != "file" {
			continue
		}
		if name, ok := strings.CutSuffix(e.GetName(), sliceExt); ok {
			slices.Add(name)
		}
	}

	return slices, nil
}

// convertPR converts a GitHub pull request to our model.
func convertPR(ghPR *github.PullRequest) model.PullRequest {
	label := false
	for _, l := range ghPR.Labels {
		if l.GetName() == model.ForwardPortMissingLabel {
			label = true
			break
		}
	}

	return model.PullRequest{
		Number: ghPR.GetNumber(),
		Title:  ghPR.GetTitle(),
		User:   ghPR.GetUser().GetLogin(),
		Head:   convertBranch(ghPR.GetHead()),
		Base:   convertBranch(ghPR.GetBase()),
		Label:  label,
		URL:    ghPR.GetHTMLURL(),
	}
}

func convertBranch(b *github.PullRequestBranch) model.Commit {
	return model.Commit{
		Ref:       b.GetRef(),
		RepoName:  b.GetRepo().GetName(),
		RepoOwner: b.GetRepo().GetOwner().GetLogin(),
		RepoURL:   b.GetRepo().GetHTMLURL(),
		SHA:       b.GetSHA(),
	}
}
