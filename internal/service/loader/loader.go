package loader

import (
	"bytes"
	"image"
	"os"

	"emperror.dev/errors"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Decoded is an image read back from disk.
type Decoded struct {
	Bitmap image.Image
	Format string
}

// Load decodes the file at path, honouring EXIF orientation.
func Load(path string) (*Decoded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "cannot identify image file")
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s image", format)
	}
	return &Decoded{Bitmap: img, Format: format}, nil
}
