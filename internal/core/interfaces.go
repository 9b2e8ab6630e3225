package core

import (
	"context"
	"time"
)

// StreamConn is the subset of a live websocket connection the stream
// watcher drives. *websocket.Conn satisfies it.
type StreamConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// ModerationAPI is the destructive subset of a platform adapter.
type ModerationAPI interface {
	SuspendAccount(ctx context.Context, userID string) error

	// DeletePost removes a post. Returns ErrRateLimited when the upstream
	// asked the caller to slow down; any other error is permanent.
	DeletePost(ctx context.Context, postID string) error
}

// ImageFetcher downloads one attachment.
type ImageFetcher interface {
	FetchImage(ctx context.Context, uri string) ([]byte, error)
}

// Adapter translates one platform's wire format into the neutral post model
// and performs the platform's HTTP and websocket calls.
type Adapter interface {
	ModerationAPI
	ImageFetcher

	// FetchRecentPosts returns a snapshot of the newest public posts.
	FetchRecentPosts(ctx context.Context, limit int) ([]*Post, error)

	// OpenStream dials the platform's live event stream.
	OpenStream(ctx context.Context) (StreamConn, error)

	// ParseEvent converts one raw stream payload into a post. Returns
	// ErrIgnoreEvent for payloads that never reach the scorer.
	ParseEvent(raw []byte) (*Post, error)
}
