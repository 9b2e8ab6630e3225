package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
)

const (
	PlatformMisskey  = "misskey"
	PlatformMastodon = "mastodon"
)

var (
	ErrBadPlatform = errors.New("platform must be misskey or mastodon")
	ErrNoSite      = errors.New("site URL is not set")
	ErrNoAPIKey    = errors.New("API key is not set")
)

type Config struct {
	Platform      string `flag:"platform"`
	Site          string `flag:"site"`
	APIKey        string `flag:"api-key"`
	StreamChannel string `flag:"stream-channel"`

	PatternsPath   string `flag:"patterns"`
	Production     bool   `flag:"production"`
	SuspendEnabled bool   `flag:"suspend"`
	DumpPosts      bool   `flag:"dump-posts"`

	DatabaseURL string `flag:"database-url"`
	MetricsAddr string `flag:"metrics-addr"`

	LogLevel string `flag:"log-level"`

	// Compiled from the patterns file by Load.
	BadTextPatterns []*regexp.Regexp
	BadQRPatterns   []*regexp.Regexp
}

// patternsFile mirrors the on-disk JSON rule list.
type patternsFile struct {
	BadPostTextRegex   []string `json:"badPostTextRegex"`
	BadPostQrTextRegex []string `json:"badPostQrTextRegex"`
}

// Load reads and compiles the banned-pattern lists.
func (c *Config) Load() error {
	if c.PatternsPath == "" {
		return nil
	}

	raw, err := os.ReadFile(c.PatternsPath)
	if err != nil {
		return fmt.Errorf("reading patterns file: %w", err)
	}

	var pf patternsFile
	if err := json.Unmarshal(raw, &pf); err != nil {
		return fmt.Errorf("parsing patterns file: %w", err)
	}

	if c.BadTextPatterns, err = compileAll(pf.BadPostTextRegex); err != nil {
		return err
	}
	c.BadQRPatterns, err = compileAll(pf.BadPostQrTextRegex)
	return err
}

func (c *Config) Validate() error {
	switch c.Platform {
	case PlatformMisskey, PlatformMastodon:
	default:
		return fmt.Errorf("%w, got %q", ErrBadPlatform, c.Platform)
	}
	if c.Site == "" {
		return ErrNoSite
	}
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	return nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}
