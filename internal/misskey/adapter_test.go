package misskey

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"fedimod/internal/config"
	"fedimod/internal/core"
)

func newAdapter(t *testing.T) *Adapter {
	t.Helper()

	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), &config.Config{
		Site:   "https://example.social/",
		APIKey: "  'secret' ",
	})
}

func TestNewSanitizesInputs(t *testing.T) {
	t.Parallel()

	a := newAdapter(t)
	require.Equal(t, "https://example.social", a.site)
	require.Equal(t, "secret", a.token)
}

func streamPayload(t *testing.T, n any) []byte {
	t.Helper()

	raw, err := json.Marshal(map[string]any{
		"type": "channel",
		"body": map[string]any{
			"type": "note",
			"body": n,
		},
	})
	require.NoError(t, err)
	return raw
}

func TestParseEventNote(t *testing.T) {
	t.Parallel()

	a := newAdapter(t)

	raw := streamPayload(t, map[string]any{
		"id":   "9s7e2b3c0000001a",
		"text": "hello @bob@two.example",
		"user": map[string]any{
			"id":       "9s7e2b3c000000zz",
			"username": "alice",
			"name":     "Alice",
			"host":     "one.example",
		},
		"visibility": "home",
		"files": []map[string]any{
			{"url": "https://cdn/a.png", "blurhash": "LEHV6n"},
		},
	})

	post, err := a.ParseEvent(raw)
	require.NoError(t, err)

	require.Equal(t, "9s7e2b3c0000001a", post.ID)
	require.Equal(t, "hello @bob@two.example", post.Text)
	require.Equal(t, "alice@one.example", post.User.Acct())
	require.Equal(t, core.VisibilityUnlisted, post.Visibility)
	require.Equal(t, 1, post.Mentions)
	require.Len(t, post.Files, 1)
	require.Equal(t, "https://cdn/a.png", post.Files[0].URI)
}

// The note text carries its mentions verbatim, so the API mention array must
// not be added on top of the textual count.
func TestParseEventCountsMentionedUsersOnce(t *testing.T) {
	t.Parallel()

	a := newAdapter(t)

	raw := streamPayload(t, map[string]any{
		"id":   "9s7e2b3c0000001a",
		"text": "hi @a@one.example @b@two.example @c@three.example",
		"user": map[string]any{
			"id":       "9s7e2b3c000000zz",
			"username": "alice",
		},
		"visibility": "public",
		"mentions":   []string{"ua", "ub", "uc"},
	})

	post, err := a.ParseEvent(raw)
	require.NoError(t, err)
	require.Equal(t, 3, post.Mentions)
}

func TestParseEventIgnoresOtherMessages(t *testing.T) {
	t.Parallel()

	a := newAdapter(t)

	_, err := a.ParseEvent([]byte(`{"type":"channel","body":{"type":"readAllNotifications"}}`))
	require.ErrorIs(t, err, core.ErrIgnoreEvent)

	_, err = a.ParseEvent([]byte(`{"type":"emojiUpdated"}`))
	require.ErrorIs(t, err, core.ErrIgnoreEvent)
}

func TestParseEventIgnoresPureRenotes(t *testing.T) {
	t.Parallel()

	a := newAdapter(t)

	raw := streamPayload(t, map[string]any{
		"id":     "9s7e2b3c0000001a",
		"text":   nil,
		"renote": map[string]any{"id": "9s7e2b3c0000002b"},
		"user": map[string]any{
			"id":       "9s7e2b3c000000zz",
			"username": "alice",
		},
	})

	_, err := a.ParseEvent(raw)
	require.ErrorIs(t, err, core.ErrIgnoreEvent)
}

func TestParseEventGarbage(t *testing.T) {
	t.Parallel()

	a := newAdapter(t)

	_, err := a.ParseEvent([]byte("not json"))
	require.Error(t, err)
	require.NotErrorIs(t, err, core.ErrIgnoreEvent)
}

func TestNoteCWPrependedToText(t *testing.T) {
	t.Parallel()

	cw := "spoiler"
	text := "body"
	n := note{ID: "9s7e2b3c0000001a", Text: &text, CW: &cw, User: noteUser{ID: "9s7e2b3c000000zz", Username: "a"}}

	post := n.toPost()
	require.Equal(t, "spoiler\nbody", post.Text)
}

func TestVisibilityMapping(t *testing.T) {
	t.Parallel()

	require.Equal(t, core.VisibilityPublic, visibilityOf("public"))
	require.Equal(t, core.VisibilityUnlisted, visibilityOf("home"))
	require.Equal(t, core.VisibilityPrivate, visibilityOf("followers"))
	require.Equal(t, core.VisibilityDirect, visibilityOf("specified"))
}
