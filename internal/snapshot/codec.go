package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/grokify/forwardport/internal/distro"
	"github.com/grokify/forwardport/internal/sliceset"
	"github.com/grokify/forwardport/pkg/model"
)

type document struct {
	Version           *int                `json:"version,omitempty"`
	Releases          []releaseDoc        `json:"ubuntu_releases"`
	PullRequests      []pullRequestDoc    `json:"prs"`
	PackagesByRelease map[string][]string `json:"packages_by_release"`
}

type releaseDoc struct {
	Version  string `json:"version"`
	Codename string `json:"codename"`
}

type commitDoc struct {
	Ref       string `json:"ref"`
	RepoName  string `json:"repo_name"`
	RepoOwner string `json:"repo_owner"`
	RepoURL   string `json:"repo_url"`
	SHA       string `json:"sha"`
}

type slicesDoc struct {
	Head []string `json:"head"`
	Base []string `json:"base"`
}

type pullRequestDoc struct {
	Number  int        `json:"number"`
	Title   string     `json:"title"`
	User    string     `json:"user"`
	Head    commitDoc  `json:"head"`
	Base    commitDoc  `json:"base"`
	Label   bool       `json:"label"`
	URL     string     `json:"url"`
	Release releaseDoc `json:"ubuntu_release"`
	Slices  slicesDoc  `json:"slices"`
}

// Encode writes s as an indented JSON document. PRs are ordered by number
// and every name list is sorted, so equal snapshots encode identically.
// Package listings must belong to a release in s.Releases, otherwise
// ErrInvalid is returned and nothing is written.
func Encode(w io.Writer, s *Snapshot) error {
	listed := make(map[model.Release]bool, len(s.Releases))
	for _, r := range s.Releases {
		listed[r] = true
	}
	for _, r := range slices.SortedFunc(maps.Keys(s.PackagesByRelease), model.Release.Compare) {
		if !listed[r] {
			return fmt.Errorf("%w: packages_by_release: %s is not a listed release", ErrInvalid, r)
		}
	}

	version := FormatVersion
	doc := document{
		Version:           &version,
		Releases:          make([]releaseDoc, 0, len(s.Releases)),
		PullRequests:      make([]pullRequestDoc, 0, len(s.PullRequests)),
		PackagesByRelease: make(map[string][]string, len(s.PackagesByRelease)),
	}

	releases := slices.Clone(s.Releases)
	model.SortReleases(releases)
	for _, r := range releases {
		doc.Releases = append(doc.Releases, releaseDoc(r))
	}

	prs := slices.Clone(s.PullRequests)
	model.SortPullRequests(prs)
	for _, pr := range prs {
		doc.PullRequests = append(doc.PullRequests, pullRequestDoc{
			Number:  pr.Number,
			Title:   pr.Title,
			User:    pr.User,
			Head:    commitDoc(pr.Head),
			Base:    commitDoc(pr.Base),
			Label:   pr.Label,
			URL:     pr.URL,
			Release: releaseDoc(pr.Release()),
			Slices: slicesDoc{
				Head: s.SlicesInHead[pr].Sorted(),
				Base: s.SlicesInBase[pr].Sorted(),
			},
		})
	}

	for r, pkgs := range s.PackagesByRelease {
		doc.PackagesByRelease[r.Key()] = pkgs.Sorted()
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Decode reads a JSON document written by Encode. A document without a
// version field is read as version 1.
func Decode(r io.Reader) (*Snapshot, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	version := FormatVersion
	if doc.Version != nil {
		version = *doc.Version
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	s := New()
	known := distro.Default()

	versions := make(map[string]bool, len(doc.Releases))
	codenames := make(map[string]string, len(doc.Releases))
	for _, rd := range doc.Releases {
		rel, err := model.NewReleaseIn(rd.Version, rd.Codename, known)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		if versions[rel.Version] {
			return nil, fmt.Errorf("%w: release %s listed twice", ErrInvalid, rel.Version)
		}
		if other, ok := codenames[rel.Codename]; ok {
			return nil, fmt.Errorf("%w: codename %s used by %s and %s", ErrInvalid, rel.Codename, other, rel.Version)
		}
		versions[rel.Version] = true
		codenames[rel.Codename] = rel.Version
		s.Releases = append(s.Releases, rel)
	}
	model.SortReleases(s.Releases)
	listed := distro.NewCatalog(s.Releases)

	seen := make(map[int]bool, len(doc.PullRequests))
	for _, pd := range doc.PullRequests {
		if seen[pd.Number] {
			return nil, fmt.Errorf("%w: duplicate PR #%d", ErrInvalid, pd.Number)
		}
		seen[pd.Number] = true

		// PRs are map keys including their release, so the release must be
		// spelled like the listed one.
		rel, err := model.NewReleaseIn(pd.Release.Version, pd.Release.Codename, known)
		if err == nil {
			rel, err = model.NewReleaseIn(pd.Release.Version, pd.Release.Codename, listed)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: PR #%d: %w", ErrInvalid, pd.Number, err)
		}

		pr, err := model.PullRequest{
			Number: pd.Number,
			Title:  pd.Title,
			User:   pd.User,
			Head:   model.Commit(pd.Head),
			Base:   model.Commit(pd.Base),
			Label:  pd.Label,
			URL:    pd.URL,
		}.WithRelease(rel)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}

		s.PullRequests = append(s.PullRequests, pr)
		s.SlicesInHead[pr] = sliceset.New(pd.Slices.Head...)
		s.SlicesInBase[pr] = sliceset.New(pd.Slices.Base...)
	}
	model.SortPullRequests(s.PullRequests)

	for _, key := range slices.Sorted(maps.Keys(doc.PackagesByRelease)) {
		version, err := model.BranchVersion(key)
		if err != nil {
			return nil, fmt.Errorf("%w: packages_by_release: %w", ErrInvalid, err)
		}
		rel, ok := listed.Lookup(version)
		if !ok {
			return nil, fmt.Errorf("%w: packages_by_release: %s is not a listed release", ErrInvalid, key)
		}
		s.PackagesByRelease[rel] = sliceset.New(doc.PackagesByRelease[key]...)
	}

	return s, nil
}
