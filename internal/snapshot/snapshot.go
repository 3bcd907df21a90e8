// Package snapshot persists everything a forward-port analysis needs, so
// that the network-bound fetch and the analysis can run separately.
package snapshot

import (
	"github.com/grokify/forwardport/internal/forwardport"
	"github.com/grokify/forwardport/internal/sliceset"
	"github.com/grokify/forwardport/pkg/model"
)

// FormatVersion is the document version written by Encode.
const FormatVersion = 1

// Snapshot is the collected state of the release branches and their open PRs.
type Snapshot struct {
	Releases          []model.Release
	PullRequests      []model.PullRequest
	SlicesInHead      map[model.PullRequest]sliceset.Set
	SlicesInBase      map[model.PullRequest]sliceset.Set
	PackagesByRelease map[model.Release]sliceset.Set
}

// New returns an empty snapshot with initialized maps.
func New() *Snapshot {
	return &Snapshot{
		SlicesInHead:      make(map[model.PullRequest]sliceset.Set),
		SlicesInBase:      make(map[model.PullRequest]sliceset.Set),
		PackagesByRelease: make(map[model.Release]sliceset.Set),
	}
}

// Input returns the analysis input held by the snapshot.
func (s *Snapshot) Input() forwardport.Input {
	return forwardport.Input{
		Releases:          s.Releases,
		PullRequests:      s.PullRequests,
		SlicesInHead:      s.SlicesInHead,
		SlicesInBase:      s.SlicesInBase,
		PackagesByRelease: s.PackagesByRelease,
	}
}
