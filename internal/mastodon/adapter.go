package mastodon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"resty.dev/v3"

	"fedimod/internal/config"
	"fedimod/internal/core"
)

// The public timeline endpoint caps page size at 40.
const maxTimelineLimit = 40

// Adapter speaks the Mastodon REST API and streaming protocol.
type Adapter struct {
	logger *slog.Logger
	client *resty.Client

	site  string
	token string
}

func New(logger *slog.Logger, cfg *config.Config) *Adapter {
	return &Adapter{
		logger: logger.With("component", "mastodon.Adapter"),
		client: resty.New(),
		site:   strings.TrimRight(cfg.Site, "/"),
		token:  strings.NewReplacer("'", "", " ", "").Replace(cfg.APIKey),
	}
}

type tootAccount struct {
	ID          string `json:"id"`
	Acct        string `json:"acct"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
}

type tootAttachment struct {
	Type     string `json:"type"`
	URL      string `json:"url"`
	BlurHash string `json:"blurhash"`
}

type toot struct {
	ID          string            `json:"id"`
	Content     string            `json:"content"`
	SpoilerText string            `json:"spoiler_text"`
	Account     tootAccount       `json:"account"`
	Mentions    []json.RawMessage `json:"mentions"`
	Attachments []tootAttachment  `json:"media_attachments"`
	Reblog      *json.RawMessage  `json:"reblog"`
	Visibility  string            `json:"visibility"`
}

func (t *toot) toPost() *core.Post {
	text := stripHTML(t.Content)
	if t.SpoilerText != "" {
		text = t.SpoilerText + "\n" + text
	}

	createdAt, err := snowflakeTime(t.ID)
	if err != nil {
		createdAt = time.Now()
	}
	firstSeen, err := snowflakeTime(t.Account.ID)
	if err != nil {
		firstSeen = time.Now()
	}

	host := ""
	if _, h, found := strings.Cut(t.Account.Acct, "@"); found {
		host = h
	}

	return &core.Post{
		ID:   t.ID,
		Text: text,
		User: &core.User{
			ID:           t.Account.ID,
			Handle:       t.Account.Username,
			Nickname:     t.Account.DisplayName,
			Host:         host,
			AvatarExists: t.Account.Avatar != "" && !strings.HasSuffix(t.Account.Avatar, "missing.png"),
			AvatarURI:    t.Account.Avatar,
			FirstSeenAt:  firstSeen,
		},
		Files: lo.FilterMap(t.Attachments, func(a tootAttachment, _ int) (core.File, bool) {
			return core.File{URI: a.URL, BlurHash: a.BlurHash}, a.Type == "image" && a.URL != ""
		}),
		CreatedAt:  createdAt,
		Mentions:   len(t.Mentions) + core.CountExternalMentions(text),
		Visibility: core.Visibility(t.Visibility),
	}
}

func (a *Adapter) get(ctx context.Context, path string, out any) error {
	res, err := a.client.R().
		WithContext(ctx).
		SetAuthToken(a.token).
		SetResult(out).
		Get(a.site + path)
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("%s returned %s", path, res.Status())
	}
	return nil
}

func (a *Adapter) FetchRecentPosts(ctx context.Context, limit int) ([]*core.Post, error) {
	limit = min(limit, maxTimelineLimit)

	var toots []toot
	if err := a.get(ctx, "/api/v1/timelines/public?limit="+strconv.Itoa(limit), &toots); err != nil {
		return nil, err
	}

	return lo.FilterMap(toots, func(t toot, _ int) (*core.Post, bool) {
		if t.Reblog != nil {
			return nil, false
		}
		return t.toPost(), true
	}), nil
}

func (a *Adapter) SuspendAccount(ctx context.Context, userID string) error {
	res, err := a.client.R().
		WithContext(ctx).
		SetAuthToken(a.token).
		SetBody(map[string]any{
			"type":                    "suspend",
			"text":                    "(Automatic, fedimod) Spam detected",
			"send_email_notification": false,
		}).
		Post(a.site + "/api/v1/admin/accounts/" + userID + "/action")
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("suspend returned %s", res.Status())
	}
	return nil
}

// DeletePost is not available to admin tokens over the public API; the
// suspension takes the account's posts down with it.
func (a *Adapter) DeletePost(_ context.Context, postID string) error {
	a.logger.Debug("skipping post delete", "post", postID)
	return core.ErrUnsupported
}

func (a *Adapter) OpenStream(ctx context.Context) (core.StreamConn, error) {
	endpoint := strings.Replace(a.site, "https://", "wss://", 1) +
		"/api/v1/streaming?access_token=" + a.token + "&stream=public"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

type streamEvent struct {
	Event   string `json:"event"`
	Payload string `json:"payload"`
}

func (a *Adapter) ParseEvent(raw []byte) (*core.Post, error) {
	var event streamEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, err
	}

	if event.Event != "update" {
		return nil, core.ErrIgnoreEvent
	}

	// The payload is a JSON document serialized into a JSON string.
	var t toot
	if err := json.Unmarshal([]byte(event.Payload), &t); err != nil {
		return nil, err
	}

	if t.Reblog != nil {
		return nil, core.ErrIgnoreEvent
	}
	return t.toPost(), nil
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
