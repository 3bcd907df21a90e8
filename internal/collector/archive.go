package collector

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/grokify/forwardport/internal/distro"
	"github.com/grokify/forwardport/internal/logfields"
	"github.com/grokify/forwardport/internal/sliceset"
	"github.com/grokify/forwardport/pkg/model"
)

const (
	// DefaultArchiveURL is the dists directory of the Ubuntu archive.
	DefaultArchiveURL = "https://archive.ubuntu.com/ubuntu/dists"

	// DefaultOldArchiveURL is the dists directory of end-of-life releases.
	DefaultOldArchiveURL = "https://old-releases.ubuntu.com/ubuntu/dists"

	develDist = "devel"
	arch      = "amd64"
)

var packagePattern = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`(?m)^Package:\s*(\S+)`)
})

// ArchiveCollector implements Archive over HTTP.
type ArchiveCollector struct {
	client        *http.Client
	archiveURL    string
	oldArchiveURL string
	catalog       *distro.Catalog
	userAgent     string
}

// ArchiveOption configures an ArchiveCollector.
type ArchiveOption func(*ArchiveCollector)

// WithArchiveURL sets the dists URL of the archive.
func WithArchiveURL(u string) ArchiveOption {
	return func(a *ArchiveCollector) {
		a.archiveURL = strings.TrimRight(u, "/")
	}
}

// WithOldArchiveURL sets the dists URL searched when a listing is missing
// from the archive.
func WithOldArchiveURL(u string) ArchiveOption {
	return func(a *ArchiveCollector) {
		a.oldArchiveURL = strings.TrimRight(u, "/")
	}
}

// WithUserAgent sets the User-Agent header of archive requests.
func WithUserAgent(ua string) ArchiveOption {
	return func(a *ArchiveCollector) {
		a.userAgent = ua
	}
}

// NewArchiveCollector creates an archive collector. catalog resolves the
// codenames found in the archive to versions.
func NewArchiveCollector(client *http.Client, catalog *distro.Catalog, opts ...ArchiveOption) *ArchiveCollector {
	if client == nil {
		client = http.DefaultClient
	}

	a := &ArchiveCollector{
		client:        client,
		archiveURL:    DefaultArchiveURL,
		oldArchiveURL: DefaultOldArchiveURL,
		catalog:       catalog,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SupportedReleases returns the releases listed in the archive's dists
// index, oldest first.
func (a *ArchiveCollector) SupportedReleases(ctx context.Context) ([]model.Release, error) {
	code, body, err := a.get(ctx, a.archiveURL)
	if err != nil {
		return nil, err
	}
	if err := statusError(code, a.archiveURL, false); err != nil {
		return nil, err
	}

	var releases []model.Release
	for _, codename := range ParseDists(bytes.NewReader(body)) {
		version, ok := a.catalog.Version(codename)
		if !ok {
			version, err = a.fetchVersion(ctx, codename)
			if err != nil {
				return nil, err
			}
		}

		rel, err := model.NewRelease(version, codename)
		if err != nil {
			return nil, fmt.Errorf("release %s: %w", codename, err)
		}
		releases = append(releases, rel)
	}

	model.SortReleases(releases)
	return releases, nil
}

// fetchVersion reads the version of codename from its Release file.
func (a *ArchiveCollector) fetchVersion(ctx context.Context, codename string) (string, error) {
	logger().Warn("unknown codename, trying to fetch its version from the archive", zap.String("codename", codename))

	u := a.archiveURL + "/" + codename + "/Release"
	code, body, err := a.get(ctx, u)
	if err != nil {
		return "", err
	}
	if err := statusError(code, u, false); err != nil {
		return "", err
	}

	version, ok := ParseReleaseVersion(bytes.NewReader(body))
	if !ok {
		return "", fmt.Errorf("could not find version for codename %q", codename)
	}
	return version, nil
}

// Packages returns the binary package names of one component and pocket
// of release. Listings missing from the archive are looked up in the old
// releases archive.
func (a *ArchiveCollector) Packages(ctx context.Context, release model.Release, component, pocket string) (sliceset.Set, error) {
	if !slices.Contains(Components, component) {
		return nil, fmt.Errorf("%w: component %q, must be one of %s", ErrInvalidArgument, component, strings.Join(Components, ", "))
	}
	if !slices.Contains(Pockets, pocket) {
		return nil, fmt.Errorf("%w: pocket %q", ErrInvalidArgument, pocket)
	}

	log := logger()

	dist := release.Codename
	if pocket != "" {
		dist += "-" + pocket
	}
	path := "/" + dist + "/" + component + "/binary-" + arch + "/Packages.gz"

	u := a.archiveURL + path
	code, body, err := a.get(ctx, u)
	if err != nil {
		return nil, err
	}

	if code != http.StatusOK {
		log.Debug("package listing not in archive, retrying with old releases",
			logfields.URL(u), zap.Int("status", code))

		u = a.oldArchiveURL + path
		code, body, err = a.get(ctx, u)
		if err != nil {
			return nil, err
		}
	}
	if err := statusError(code, u, false); err != nil {
		return nil, err
	}

	log.Debug("downloaded package listing", logfields.URL(u), zap.Int("bytes", len(body)))

	gz, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", u, err)
	}
	defer func() {
		_ = gz.Close()
	}()

	pkgs, err := ParsePackages(gz)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", u, err)
	}
	return pkgs, nil
}

func (a *ArchiveCollector) get(ctx context.Context, u string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, err
	}
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("fetching %s: %w", u, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading %s: %w", u, err)
	}
	return resp.StatusCode, body, nil
}

// ParseDists returns the sorted distribution codenames linked from a dists
// directory index. Pocket suffixes such as "-updates" are stripped and the
// "devel" alias is ignored.
func ParseDists(r io.Reader) []string {
	seen := make(sliceset.Set)
	z := html.NewTokenizer(r)

	for {
		switch z.Next() {
		case html.ErrorToken:
			return seen.Sorted()

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "href" {
					if dist, ok := distFromHref(string(val)); ok {
						seen.Add(dist)
					}
				}
				if !more {
					break
				}
			}
		}
	}
}

func distFromHref(href string) (string, bool) {
	if href == "" || !strings.HasSuffix(href, "/") || strings.HasPrefix(href, "/") {
		return "", false
	}
	dist, _, _ := strings.Cut(strings.Trim(href, "/"), "-")
	if dist == "" || dist == develDist || strings.HasPrefix(dist, ".") {
		return "", false
	}
	return dist, true
}

// ParseReleaseVersion returns the value of the "Version:" field of a
// Release file.
func ParseReleaseVersion(r io.Reader) (string, bool) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if v, ok := strings.CutPrefix(scanner.Text(), "Version:"); ok {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// ParsePackages returns the package names of a Packages index.
func ParsePackages(r io.Reader) (sliceset.Set, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	pkgs := make(sliceset.Set)
	for _, m := range packagePattern().FindAllSubmatch(content, -1) {
		pkgs.Add(string(m[1]))
	}
	return pkgs, nil
}
