package core

import "time"

// Visibility classes shared by the supported platforms. Misskey's
// home/followers/specified map onto unlisted/private/direct.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
	VisibilityDirect   Visibility = "direct"
)

// User is the platform-neutral author of a post. FirstSeenAt is decoded
// deterministically from the platform ID by the adapter and never changes.
type User struct {
	ID           string
	Handle       string
	Nickname     string // empty when the account has no display name
	Host         string // empty for local accounts
	AvatarExists bool
	AvatarURI    string
	FirstSeenAt  time.Time
}

// Acct renders the user as handle@host for log lines.
func (u *User) Acct() string {
	host := u.Host
	if host == "" {
		host = "local"
	}
	return u.Handle + "@" + host
}

// File is one media attachment, owned by its post.
type File struct {
	URI      string
	BlurHash string
}

// Post is a value object built once per adapter event and discarded after
// scoring. The user reference is read-only.
type Post struct {
	ID         string
	Text       string
	User       *User
	Files      []File
	CreatedAt  time.Time
	Mentions   int // unique external mentions, counted by the adapter
	Visibility Visibility
}

// CheckResult is one triggered spam check, alive for a single scoring pass.
type CheckResult struct {
	Name   string
	Weight int
}

// ActionKind tags the two destructive moderation actions.
type ActionKind string

const (
	ActionSuspend ActionKind = "suspend"
	ActionDelete  ActionKind = "delete"
)
