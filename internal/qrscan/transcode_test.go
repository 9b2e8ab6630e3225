package qrscan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWebPToPNGCleansUpOnFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tr := &Transcoder{Dir: dir}

	_, err := tr.WebPToPNG([]byte("definitely not webp"))
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "scratch files must not outlive the call")
}

func TestWebPToPNGRejectsGarbage(t *testing.T) {
	t.Parallel()

	tr := &Transcoder{Dir: t.TempDir()}

	_, err := tr.WebPToPNG(nil)
	require.Error(t, err)
	require.ErrorContains(t, err, "webp")
}

func TestTranscoderScratchDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tr := &Transcoder{Dir: dir}

	// Even the failure path touches the scratch dir, never the cwd.
	_, _ = tr.WebPToPNG([]byte{0x00})

	matches, err := filepath.Glob("fedimod-*")
	require.NoError(t, err)
	require.Empty(t, matches)
}
