package core

import "errors"

var (
	// ErrRateLimited is returned by DeletePost when the upstream rejected
	// the call with a rate-limit response.
	ErrRateLimited = errors.New("rate limited by upstream")

	// ErrIgnoreEvent marks stream payloads that are not scoreable posts:
	// renotes, reblogs, channel acknowledgments.
	ErrIgnoreEvent = errors.New("event ignored")

	// ErrUnsupported is returned for moderation calls the platform does
	// not implement.
	ErrUnsupported = errors.New("unsupported by platform")
)
