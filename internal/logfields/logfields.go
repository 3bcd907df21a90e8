package logfields

import (
	"time"

	"go.uber.org/zap"
)

func PullRequest(val int) zap.Field {
	return zap.Int("github.pull_request", val)
}

func Repository(val string) zap.Field {
	return zap.String("git.repository", val)
}

func RepositoryOwner(val string) zap.Field {
	return zap.String("github.repository_owner", val)
}

func BaseBranch(val string) zap.Field {
	return zap.String("git.base_branch", val)
}

func Commit(val string) zap.Field {
	return zap.String("git.commit", val)
}

func Release(val string) zap.Field {
	return zap.String("ubuntu.release", val)
}

func FutureRelease(val string) zap.Field {
	return zap.String("ubuntu.future_release", val)
}

func Slices(val string) zap.Field {
	return zap.String("chisel.slices", val)
}

func SliceCount(val int) zap.Field {
	return zap.Int("chisel.slice_count", val)
}

func URL(val string) zap.Field {
	return zap.String("http.url", val)
}

func Elapsed(val time.Duration) zap.Field {
	return zap.Duration("elapsed", val)
}

func PRCount(val int) zap.Field {
	return zap.Int("github.pull_request_count", val)
}
