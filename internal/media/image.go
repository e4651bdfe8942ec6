// Package media handles upload validation, image processing and on-disk
// storage for avatars and post attachments.
package media

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"

	_ "golang.org/x/image/webp" // register webp decoding
)

// AvatarMaxSize is the bounding box avatars are downsized to fit into.
const AvatarMaxSize = 512

// JPEGQuality is the fixed quality used for all lossy re-encoding.
const JPEGQuality = 85

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

var videoExtensions = map[string]bool{
	".mp4": true,
}

// AllowedImageFile reports whether the filename carries an accepted image
// extension.
func AllowedImageFile(filename string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(filename))]
}

// AllowedVideoFile reports whether the filename carries an accepted video
// extension.
func AllowedVideoFile(filename string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(filename))]
}

// ProcessAvatar prepares raw upload bytes for storage as an avatar: EXIF
// orientation correction, center crop to a square of side min(width,height),
// downsize to fit AvatarMaxSize keeping aspect ratio, and JPEG re-encoding
// at the fixed quality.
func ProcessAvatar(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode avatar: %w", err)
	}

	switch orientation(data) {
	case 3:
		img = imaging.Rotate180(img)
	case 6:
		img = imaging.Rotate270(img)
	case 8:
		img = imaging.Rotate90(img)
	}

	bounds := img.Bounds()
	side := bounds.Dx()
	if bounds.Dy() < side {
		side = bounds.Dy()
	}
	img = imaging.CropCenter(img, side, side)

	if side > AvatarMaxSize {
		img = imaging.Fit(img, AvatarMaxSize, AvatarMaxSize, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}

// CompressImage re-encodes a post attachment as JPEG at the fixed quality
// without resizing.
func CompressImage(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// orientation extracts the EXIF orientation tag, returning 1 when the data
// has no usable EXIF block.
func orientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return o
}
