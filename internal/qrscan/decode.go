package qrscan

import (
	"bytes"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

const maxEdge = 1024

var decodeHints = map[gozxing.DecodeHintType]interface{}{
	gozxing.DecodeHintType_TRY_HARDER: true,
}

// decodeImage extracts a QR payload from encoded image bytes. The image is
// downscaled to fit 1024x1024, flattened to normalized grayscale and decoded
// both as-is and inverted.
func decodeImage(b []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return "", err
	}

	prepared := normalize(imaging.Grayscale(imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)))

	source := gozxing.NewLuminanceSourceFromImage(prepared)

	payload, err := decodeQR(source)
	if err != nil {
		// Some spam QR codes are printed light-on-dark.
		payload, err = decodeQR(gozxing.NewInvertedLuminanceSource(source))
	}
	return payload, err
}

func decodeQR(source gozxing.LuminanceSource) (string, error) {
	bmp, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(source))
	if err != nil {
		return "", err
	}

	result, err := qrcode.NewQRCodeReader().Decode(bmp, decodeHints)
	if err != nil {
		return "", err
	}
	return result.GetText(), nil
}

// normalize stretches the luminance range to the full 0-255 scale.
// The input is already grayscale, so only one channel is inspected.
func normalize(img *image.NRGBA) *image.NRGBA {
	darkest, brightest := uint8(255), uint8(0)
	for i := 0; i < len(img.Pix); i += 4 {
		v := img.Pix[i]
		if v < darkest {
			darkest = v
		}
		if v > brightest {
			brightest = v
		}
	}

	if brightest <= darkest || (darkest == 0 && brightest == 255) {
		return img
	}

	scale := 255.0 / float64(brightest-darkest)
	for i := 0; i < len(img.Pix); i += 4 {
		v := uint8(float64(img.Pix[i]-darkest) * scale)
		img.Pix[i], img.Pix[i+1], img.Pix[i+2] = v, v, v
	}
	return img
}
