package forwardport

import (
	"maps"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/grokify/forwardport/internal/logfields"
	"github.com/grokify/forwardport/internal/sliceset"
	"github.com/grokify/forwardport/pkg/model"
)

// PackageOf returns the package a slice belongs to: the identifier up to
// the first underscore.
func PackageOf(slice string) string {
	pkg, _, _ := strings.Cut(slice, "_")
	return pkg
}

// DiscontinuedSlices returns the slices whose package is not in packages.
func DiscontinuedSlices(names, packages sliceset.Set) sliceset.Set {
	out := make(sliceset.Set)
	for s := range names {
		if !packages.Contains(PackageOf(s)) {
			out.Add(s)
		}
	}
	return out
}

// ResolveDiscontinued marks, for every (PR, future release) group, the
// slices of the PR whose package no longer exists in that release. Groups
// whose release has no package listing are left untouched.
func ResolveDiscontinued(grouped Grouped, packagesByRelease map[model.Release]sliceset.Set) {
	log := logger()

	byVersion := make(map[string]sliceset.Set, len(packagesByRelease))
	for r, pkgs := range packagesByRelease {
		byVersion[r.Version] = pkgs
		log.Debug("release package listing", logfields.Release(r.String()), zap.Int("packages", pkgs.Len()))
	}

	for _, pr := range slices.SortedFunc(maps.Keys(grouped), model.ComparePullRequests) {
		for fr, comparisons := range grouped[pr] {
			packages := byVersion[fr.Version]
			if packages.Len() == 0 {
				log.Debug("no packages for future release",
					logfields.PullRequest(pr.Number),
					logfields.BaseBranch(pr.Base.Ref),
					logfields.FutureRelease(fr.String()),
				)
				continue
			}
			if len(comparisons) == 0 {
				continue
			}

			// every comparison in the group shares pr and its slices
			discontinued := DiscontinuedSlices(comparisons[0].Slices, packages)
			if discontinued.Len() == 0 {
				continue
			}

			log.Debug("discontinued slices",
				logfields.PullRequest(pr.Number),
				logfields.BaseBranch(pr.Base.Ref),
				logfields.FutureRelease(fr.String()),
				logfields.SliceCount(discontinued.Len()),
				logfields.Slices(discontinued.Abbrev()),
			)

			for _, c := range comparisons {
				c.discontinued = discontinued
			}
		}
	}
}
