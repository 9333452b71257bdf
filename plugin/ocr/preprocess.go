package ocr

import (
	"bytes"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Preprocess prepares a screenshot for recognition: grayscale, upscale to
// at least minWidth pixels wide, boost contrast and sharpen. The result is
// PNG encoded.
func Preprocess(image []byte, minWidth int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(image), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode image")
	}

	gray := imaging.Grayscale(img)
	if minWidth > 0 && gray.Bounds().Dx() < minWidth {
		gray = imaging.Resize(gray, minWidth, 0, imaging.Lanczos)
	}
	gray = imaging.AdjustContrast(gray, 20)
	gray = imaging.Sharpen(gray, 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, gray, imaging.PNG); err != nil {
		return nil, errors.Wrap(err, "failed to encode image")
	}
	return buf.Bytes(), nil
}
