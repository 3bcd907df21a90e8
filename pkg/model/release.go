package model

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// BranchPrefix is the prefix of every release branch in chisel-releases.
const BranchPrefix = "ubuntu-"

var versionPattern = regexp.MustCompile(`^(\d+)\.(\d+)$`)

// Release is an Ubuntu release identified by its "YY.MM" version and codename.
type Release struct {
	Version  string
	Codename string
}

// CodenameResolver maps a release version to its codename.
type CodenameResolver interface {
	Codename(version string) (string, bool)
}

// NewRelease returns a Release after validating the version format. It
// cannot check the codename; use NewReleaseIn when a catalog is at hand.
func NewRelease(version, codename string) (Release, error) {
	if _, _, err := ParseVersion(version); err != nil {
		return Release{}, err
	}
	if codename == "" {
		return Release{}, fmt.Errorf("release %s: empty codename", version)
	}
	return Release{Version: version, Codename: codename}, nil
}

// NewReleaseIn is like NewRelease and also rejects a codename that differs
// from the one resolver knows for the version. Versions unknown to
// resolver are accepted.
func NewReleaseIn(version, codename string, resolver CodenameResolver) (Release, error) {
	r, err := NewRelease(version, codename)
	if err != nil {
		return Release{}, err
	}
	if known, ok := resolver.Codename(version); ok && known != codename {
		return Release{}, fmt.Errorf("%w: %s is %s, not %s", ErrCodenameMismatch, version, known, codename)
	}
	return r, nil
}

// MustRelease is like NewRelease but panics on error.
func MustRelease(version, codename string) Release {
	r, err := NewRelease(version, codename)
	if err != nil {
		panic(err)
	}
	return r
}

// ParseVersion splits a "YY.MM" version into its year and month.
func ParseVersion(version string) (year, month int, err error) {
	m := versionPattern.FindStringSubmatch(version)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}

	year, err = strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}
	month, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}

	return year, month, nil
}

// ParseBranchName parses a release branch name such as "ubuntu-24.04".
func ParseBranchName(branch string, resolver CodenameResolver) (Release, error) {
	version, err := BranchVersion(branch)
	if err != nil {
		return Release{}, err
	}

	codename, ok := resolver.Codename(version)
	if !ok {
		return Release{}, fmt.Errorf("%w: version %q of branch %q", ErrUnknownRelease, version, branch)
	}

	return Release{Version: version, Codename: codename}, nil
}

// BranchVersion returns the version part of a release branch name.
func BranchVersion(branch string) (string, error) {
	version, ok := strings.CutPrefix(branch, BranchPrefix)
	if !ok {
		return "", fmt.Errorf("%w: %q does not start with %q", ErrInvalidBranchName, branch, BranchPrefix)
	}
	if !versionPattern.MatchString(version) {
		return "", fmt.Errorf("%w: %q", ErrInvalidBranchName, branch)
	}
	return version, nil
}

// Key returns the release branch name, e.g. "ubuntu-22.04".
func (r Release) Key() string {
	return BranchPrefix + r.Version
}

func (r Release) String() string {
	return fmt.Sprintf("%s (%s)", r.Key(), r.Codename)
}

// Compare orders releases by their (year, month) version.
// Codenames are not taken into account. Unparsable versions sort first.
// Returns -1 if r < other, 0 if equal, 1 if r > other.
func (r Release) Compare(other Release) int {
	ry, rm, _ := ParseVersion(r.Version)
	oy, om, _ := ParseVersion(other.Version)
	if c := cmp.Compare(ry, oy); c != 0 {
		return c
	}
	return cmp.Compare(rm, om)
}

// Before reports whether r is an earlier release than other.
func (r Release) Before(other Release) bool {
	return r.Compare(other) < 0
}

// SortReleases sorts releases in place from oldest to newest.
func SortReleases(releases []Release) {
	slices.SortStableFunc(releases, Release.Compare)
}
