// Package distro holds the table of known Ubuntu releases.
package distro

import (
	"slices"
	"sync"

	"github.com/grokify/forwardport/pkg/model"
)

var knownReleases = []model.Release{
	{Version: "14.04", Codename: "trusty"},
	{Version: "14.10", Codename: "utopic"},
	{Version: "15.04", Codename: "vivid"},
	{Version: "15.10", Codename: "wily"},
	{Version: "16.04", Codename: "xenial"},
	{Version: "16.10", Codename: "yakkety"},
	{Version: "17.04", Codename: "zesty"},
	{Version: "17.10", Codename: "artful"},
	{Version: "18.04", Codename: "bionic"},
	{Version: "18.10", Codename: "cosmic"},
	{Version: "19.04", Codename: "disco"},
	{Version: "19.10", Codename: "eoan"},
	{Version: "20.04", Codename: "focal"},
	{Version: "20.10", Codename: "groovy"},
	{Version: "21.04", Codename: "hirsute"},
	{Version: "21.10", Codename: "impish"},
	{Version: "22.04", Codename: "jammy"},
	{Version: "22.10", Codename: "kinetic"},
	{Version: "23.04", Codename: "lunar"},
	{Version: "23.10", Codename: "mantic"},
	{Version: "24.04", Codename: "noble"},
	{Version: "24.10", Codename: "oracular"},
	{Version: "25.04", Codename: "plucky"},
	{Version: "25.10", Codename: "questing"},
}

// Releases that still have branches but are no longer analyzed.
var skippedVersions = []string{
	"24.10", // EOL
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	return NewCatalog(knownReleases, skippedVersions...)
})

// Default returns the built-in catalog. It is built on first use.
func Default() *Catalog {
	return defaultCatalog()
}

// Catalog maps release versions to codenames and back.
type Catalog struct {
	releases   []model.Release
	byVersion  map[string]model.Release
	byCodename map[string]model.Release
	skip       map[string]bool
}

// NewCatalog creates a catalog from releases. skip lists versions that are
// excluded from analysis even when a branch exists. Versions and codenames
// must be unique; LoadCatalogFromBytes checks this for catalog files.
func NewCatalog(releases []model.Release, skip ...string) *Catalog {
	c := &Catalog{
		releases:   slices.Clone(releases),
		byVersion:  make(map[string]model.Release, len(releases)),
		byCodename: make(map[string]model.Release, len(releases)),
		skip:       make(map[string]bool, len(skip)),
	}
	model.SortReleases(c.releases)

	for _, r := range c.releases {
		c.byVersion[r.Version] = r
		c.byCodename[r.Codename] = r
	}
	for _, v := range skip {
		c.skip[v] = true
	}

	return c
}

// Codename implements model.CodenameResolver.
func (c *Catalog) Codename(version string) (string, bool) {
	r, ok := c.byVersion[version]
	return r.Codename, ok
}

// Version returns the version of a codename.
func (c *Catalog) Version(codename string) (string, bool) {
	r, ok := c.byCodename[codename]
	return r.Version, ok
}

// Lookup returns the release with the given version.
func (c *Catalog) Lookup(version string) (model.Release, bool) {
	r, ok := c.byVersion[version]
	return r, ok
}

// Releases returns all known releases, oldest first.
func (c *Catalog) Releases() []model.Release {
	return slices.Clone(c.releases)
}

// Skipped reports whether r is on the skip list.
func (c *Catalog) Skipped(r model.Release) bool {
	return c.skip[r.Version]
}

// SkipList returns the skipped releases, oldest first.
func (c *Catalog) SkipList() []model.Release {
	var out []model.Release
	for _, r := range c.releases {
		if c.skip[r.Version] {
			out = append(out, r)
		}
	}
	return out
}
