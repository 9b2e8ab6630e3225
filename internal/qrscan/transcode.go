package qrscan

import (
	"fmt"
	"image/png"
	"os"

	"golang.org/x/image/webp"
)

// Transcoder converts WebP attachments to PNG through scratch files. The
// scratch files are removed on every exit path.
type Transcoder struct {
	// Dir overrides the scratch directory; empty means the system default.
	Dir string
}

func (t *Transcoder) WebPToPNG(b []byte) ([]byte, error) {
	in, err := os.CreateTemp(t.Dir, "fedimod-*.webp")
	if err != nil {
		return nil, err
	}
	defer os.Remove(in.Name())

	if _, err = in.Write(b); err != nil {
		in.Close()
		return nil, err
	}
	if err = in.Close(); err != nil {
		return nil, err
	}

	src, err := os.Open(in.Name())
	if err != nil {
		return nil, err
	}
	img, err := webp.Decode(src)
	src.Close()
	if err != nil {
		return nil, fmt.Errorf("decoding webp: %w", err)
	}

	out, err := os.CreateTemp(t.Dir, "fedimod-*.png")
	if err != nil {
		return nil, err
	}
	defer os.Remove(out.Name())

	if err = png.Encode(out, img); err != nil {
		out.Close()
		return nil, err
	}
	if err = out.Close(); err != nil {
		return nil, err
	}

	return os.ReadFile(out.Name())
}
