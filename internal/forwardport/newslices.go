package forwardport

import (
	"fmt"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/grokify/forwardport/internal/logfields"
	"github.com/grokify/forwardport/internal/sliceset"
	"github.com/grokify/forwardport/pkg/model"
)

const loggerName = "forwardport"

func logger() *zap.Logger {
	return zap.L().Named(loggerName)
}

// NewSlices returns, per PR, the slices present in its head but not in its
// merge base. Both maps must cover exactly the same PRs.
func NewSlices(head, base map[model.PullRequest]sliceset.Set) (map[model.PullRequest]sliceset.Set, error) {
	if len(head) != len(base) {
		return nil, fmt.Errorf("%w: %d PRs in head, %d PRs in base", ErrKeyMismatch, len(head), len(base))
	}
	for pr := range head {
		if _, ok := base[pr]; !ok {
			return nil, fmt.Errorf("%w: PR #%d has no base slices", ErrKeyMismatch, pr.Number)
		}
	}

	log := logger()
	out := make(map[model.PullRequest]sliceset.Set, len(head))

	for _, pr := range slices.SortedFunc(maps.Keys(head), model.ComparePullRequests) {
		inHead, inBase := head[pr], base[pr]

		if removed := inBase.Difference(inHead); removed.Len() > 0 {
			log.Warn("PR removes slices present in its merge base",
				logfields.PullRequest(pr.Number),
				logfields.SliceCount(removed.Len()),
				logfields.Slices(removed.Abbrev()),
			)
		}

		added := inHead.Difference(inBase)
		out[pr] = added

		if ce := log.Check(zap.DebugLevel, "new slices"); ce != nil {
			if added.Len() == 0 {
				ce.Write(logfields.PullRequest(pr.Number), logfields.SliceCount(0))
			} else {
				ce.Write(
					logfields.PullRequest(pr.Number),
					logfields.SliceCount(added.Len()),
					logfields.Slices(added.Abbrev()),
				)
			}
		}
	}

	return out, nil
}
