package misskey

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"resty.dev/v3"

	"fedimod/internal/config"
	"fedimod/internal/core"
)

// Adapter speaks the Misskey HTTP API and streaming protocol.
type Adapter struct {
	logger *slog.Logger
	client *resty.Client

	site    string
	token   string
	channel string
}

func New(logger *slog.Logger, cfg *config.Config) *Adapter {
	return &Adapter{
		logger: logger.With("component", "misskey.Adapter"),
		client: resty.New(),
		site:   strings.TrimRight(cfg.Site, "/"),
		// The token travels in JSON payloads and a query string, so strip
		// characters that would break either.
		token:   strings.NewReplacer("'", "", " ", "").Replace(cfg.APIKey),
		channel: cfg.StreamChannel,
	}
}

// api issues one authenticated POST. Misskey puts the token in the body.
func (a *Adapter) api(ctx context.Context, endpoint string, body map[string]any, out any) (int, error) {
	payload := map[string]any{"i": a.token}
	for k, v := range body {
		payload[k] = v
	}

	req := a.client.R().
		WithContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload)
	if out != nil {
		req.SetResult(out)
	}

	res, err := req.Post(a.site + "/api/" + endpoint)
	if err != nil {
		return 0, err
	}
	if res.IsError() {
		return res.StatusCode(), fmt.Errorf("%s returned %s", endpoint, res.Status())
	}
	return res.StatusCode(), nil
}

type noteUser struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Name      *string `json:"name"`
	Host      *string `json:"host"`
	AvatarURL *string `json:"avatarUrl"`
}

type noteFile struct {
	URL      *string `json:"url"`
	BlurHash *string `json:"blurhash"`
}

type note struct {
	ID         string           `json:"id"`
	Text       *string          `json:"text"`
	CW         *string          `json:"cw"`
	User       noteUser         `json:"user"`
	Files      []noteFile       `json:"files"`
	Renote     *json.RawMessage `json:"renote"`
	Visibility string           `json:"visibility"`
}

// toPost maps one note onto the neutral model. Pure renotes carry no content
// worth scoring and yield nil.
func (n *note) toPost() *core.Post {
	if n.Renote != nil && lo.FromPtr(n.Text) == "" {
		return nil
	}

	text := lo.FromPtr(n.Text)
	if cw := lo.FromPtr(n.CW); cw != "" {
		text = cw + "\n" + text
	}

	createdAt, err := aidxTime(n.ID)
	if err != nil {
		createdAt = time.Now()
	}
	firstSeen, err := aidxTime(n.User.ID)
	if err != nil {
		firstSeen = time.Now()
	}

	avatar := lo.FromPtr(n.User.AvatarURL)

	return &core.Post{
		ID:   n.ID,
		Text: text,
		User: &core.User{
			ID:           n.User.ID,
			Handle:       n.User.Username,
			Nickname:     lo.FromPtr(n.User.Name),
			Host:         lo.FromPtr(n.User.Host),
			AvatarExists: avatar != "" && !strings.Contains(avatar, "identicon"),
			AvatarURI:    avatar,
			FirstSeenAt:  firstSeen,
		},
		Files: lo.FilterMap(n.Files, func(f noteFile, _ int) (core.File, bool) {
			url := lo.FromPtr(f.URL)
			return core.File{URI: url, BlurHash: lo.FromPtr(f.BlurHash)}, url != ""
		}),
		CreatedAt:  createdAt,
		// Unlike Mastodon, the note text still carries its mentions verbatim,
		// so counting the API mention array on top would double them.
		Mentions:   core.CountExternalMentions(text),
		Visibility: visibilityOf(n.Visibility),
	}
}

func visibilityOf(v string) core.Visibility {
	switch v {
	case "home":
		return core.VisibilityUnlisted
	case "followers":
		return core.VisibilityPrivate
	case "specified":
		return core.VisibilityDirect
	default:
		return core.VisibilityPublic
	}
}

func (a *Adapter) FetchRecentPosts(ctx context.Context, limit int) ([]*core.Post, error) {
	var notes []note
	if _, err := a.api(ctx, "notes/global-timeline", map[string]any{
		"withRenotes": false,
		"limit":       limit,
	}, &notes); err != nil {
		return nil, err
	}

	return lo.FilterMap(notes, func(n note, _ int) (*core.Post, bool) {
		post := n.toPost()
		return post, post != nil
	}), nil
}

func (a *Adapter) SuspendAccount(ctx context.Context, userID string) error {
	_, err := a.api(ctx, "admin/suspend-user", map[string]any{"userId": userID}, nil)
	return err
}

func (a *Adapter) DeletePost(ctx context.Context, postID string) error {
	status, err := a.api(ctx, "notes/delete", map[string]any{"noteId": postID}, nil)
	if status == http.StatusTooManyRequests {
		return core.ErrRateLimited
	}
	return err
}

func (a *Adapter) OpenStream(ctx context.Context) (core.StreamConn, error) {
	endpoint := strings.Replace(a.site, "https://", "wss://", 1) + "/streaming?i=" + a.token

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	channel := a.channel
	if channel == "" {
		channel = "globalTimeline"
	}

	err = conn.WriteJSON(map[string]any{
		"type": "connect",
		"body": map[string]any{
			"channel": channel,
			"id":      "1",
		},
	})
	if err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}

type streamMessage struct {
	Type string `json:"type"`
	Body struct {
		Type string          `json:"type"`
		Body json.RawMessage `json:"body"`
	} `json:"body"`
}

func (a *Adapter) ParseEvent(raw []byte) (*core.Post, error) {
	var msg streamMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}

	if msg.Type != "channel" || msg.Body.Type != "note" {
		return nil, core.ErrIgnoreEvent
	}

	var n note
	if err := json.Unmarshal(msg.Body.Body, &n); err != nil {
		return nil, err
	}

	post := n.toPost()
	if post == nil {
		return nil, core.ErrIgnoreEvent
	}
	return post, nil
}

func (a *Adapter) FetchImage(ctx context.Context, uri string) ([]byte, error) {
	res, err := a.client.R().WithContext(ctx).Get(uri)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("fetching %s: %s", uri, res.Status())
	}
	return res.Bytes(), nil
}
