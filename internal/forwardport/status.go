package forwardport

import (
	"github.com/grokify/forwardport/internal/sliceset"
	"github.com/grokify/forwardport/pkg/model"
)

// Status reports whether a PR with the given new slices is forward-ported:
// every future release must hold at least one forward-ported candidate.
// A PR without new slices, or without future releases, is forward-ported.
func Status(slices sliceset.Set, byFuture map[model.Release][]*Comparison) bool {
	if slices.Len() == 0 {
		return true
	}

	for _, comparisons := range byFuture {
		if !anyForwardPorted(comparisons) {
			return false
		}
	}
	return true
}

func anyForwardPorted(comparisons []*Comparison) bool {
	for _, c := range comparisons {
		if c.IsForwardPorted() {
			return true
		}
	}
	return false
}
