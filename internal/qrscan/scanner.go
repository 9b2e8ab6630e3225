package qrscan

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"fedimod/internal/config"
	"fedimod/internal/core"
	"fedimod/pkg/async"
)

var imagesScanned = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fedimod_images_scanned_total",
	Help: "The total number of attachment images fetched for QR scanning",
}, []string{"status"})

// Scanner fetches a post's attachments and tests any embedded QR payloads
// against the banned-pattern list.
type Scanner struct {
	Logger  *slog.Logger
	Config  *config.Config
	Fetcher core.ImageFetcher

	transcoder *Transcoder
	decode     func(b []byte) (string, error)
}

func (s *Scanner) Init(_ context.Context) error {
	s.Logger = s.Logger.With("component", "qrscan.Scanner")
	s.transcoder = &Transcoder{}
	if s.decode == nil {
		s.decode = decodeImage
	}
	return nil
}

// ScanImages reports whether any attachment carries a QR payload matching
// the banned list. A single image failing to download or decode only
// excludes that image; its siblings still count.
func (s *Scanner) ScanImages(ctx context.Context, files []core.File) bool {
	if len(files) == 0 {
		return false
	}

	results := async.Settle(ctx, files, func(ctx context.Context, file core.File) (string, error) {
		return s.scanOne(ctx, file)
	})

	for _, res := range results {
		payload, err := res.Unpack()
		if err != nil {
			imagesScanned.WithLabelValues("failed").Inc()
			s.Logger.Debug("image skipped", "error", err)
			continue
		}

		imagesScanned.WithLabelValues("decoded").Inc()
		s.Logger.Info("QR payload decoded", "payload", payload)

		for _, re := range s.Config.BadQRPatterns {
			if re.MatchString(payload) {
				s.Logger.Info("bad QR payload", "payload", payload)
				return true
			}
		}
	}

	return false
}

func (s *Scanner) scanOne(ctx context.Context, file core.File) (string, error) {
	b, err := s.Fetcher.FetchImage(ctx, file.URI)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", file.URI, err)
	}

	// The decode path only reads the stdlib-registered formats.
	if isWebP(file.URI) {
		if b, err = s.transcoder.WebPToPNG(b); err != nil {
			return "", fmt.Errorf("transcoding %s: %w", file.URI, err)
		}
	}

	return s.decode(b)
}

func isWebP(uri string) bool {
	return strings.Contains(strings.ToLower(uri), ".webp")
}
