package model

import "errors"

var (
	// ErrInvalidVersion is returned for versions not in "YY.MM" form.
	ErrInvalidVersion = errors.New("invalid release version")

	// ErrUnknownRelease is returned when a version has no known codename.
	ErrUnknownRelease = errors.New("unknown release")

	// ErrCodenameMismatch is returned when a codename does not belong to its version.
	ErrCodenameMismatch = errors.New("codename does not match release version")

	// ErrInvalidBranchName is returned for branch names that are not release branches.
	ErrInvalidBranchName = errors.New("invalid release branch name")
)
