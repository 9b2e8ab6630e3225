package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writePatterns(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "patterns.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadCompilesPatterns(t *testing.T) {
	t.Parallel()

	cfg := Config{PatternsPath: writePatterns(t, `{
		"badPostTextRegex": ["free money", "(?i)casino"],
		"badPostQrTextRegex": ["evil\\.example"]
	}`)}

	require.NoError(t, cfg.Load())
	require.Len(t, cfg.BadTextPatterns, 2)
	require.Len(t, cfg.BadQRPatterns, 1)

	require.True(t, cfg.BadTextPatterns[1].MatchString("CASINO time"))
	require.True(t, cfg.BadQRPatterns[0].MatchString("https://evil.example/x"))
}

func TestLoadRejectsBadRegex(t *testing.T) {
	t.Parallel()

	cfg := Config{PatternsPath: writePatterns(t, `{"badPostTextRegex": ["[unclosed"]}`)}
	require.Error(t, cfg.Load())
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	cfg := Config{PatternsPath: filepath.Join(t.TempDir(), "nope.json")}
	require.Error(t, cfg.Load())
}

func TestLoadNoPathIsEmpty(t *testing.T) {
	t.Parallel()

	cfg := Config{}
	require.NoError(t, cfg.Load())
	require.Empty(t, cfg.BadTextPatterns)
	require.Empty(t, cfg.BadQRPatterns)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := Config{Platform: "misskey", Site: "https://example.social", APIKey: "k"}
	require.NoError(t, cfg.Validate())

	require.ErrorIs(t, (&Config{Platform: "friendica"}).Validate(), ErrBadPlatform)
	require.ErrorIs(t, (&Config{Platform: "misskey"}).Validate(), ErrNoSite)
	require.ErrorIs(t, (&Config{Platform: "mastodon", Site: "https://x"}).Validate(), ErrNoAPIKey)
}
