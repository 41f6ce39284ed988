package ai

import (
	"bytes"
	"encoding/base64"
	"image"

	"emperror.dev/errors"
	"github.com/disintegration/imaging"
)

const encodedMIMEType = "image/jpeg"

// Preprocess shrinks img to fit maxSide (0 keeps the size) and encodes it as JPEG.
func Preprocess(img image.Image, maxSide int) ([]byte, error) {
	if img == nil {
		return nil, errors.New("image is nil")
	}
	b := img.Bounds()
	if maxSide > 0 && (b.Dx() > maxSide || b.Dy() > maxSide) {
		img = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, errors.Wrap(err, "encode image")
	}
	return buf.Bytes(), nil
}

func encodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
