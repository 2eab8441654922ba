// Package imageops normalizes reference photos and generated thumbnails.
package imageops

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
)

const (
	// ThumbnailSize is the edge of the square thumbnail deliverable.
	ThumbnailSize = 2048
	// MaxReferenceEdge bounds the longest edge of a photo sent to the model.
	MaxReferenceEdge = 3072
)

// Square center-crops data to a square and scales it to size x size PNG.
// Input that is already exactly that size is returned unchanged.
func Square(data []byte, size int) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := src.Bounds()
	if b.Dx() == size && b.Dy() == size {
		return data, nil
	}
	dst := imaging.Fill(src, size, size, imaging.Center, imaging.Lanczos)
	return encodePNG(dst)
}

// FitReference downscales photos whose longest edge exceeds maxEdge and
// reports the resulting MIME type. Smaller photos are returned as is.
func FitReference(data []byte, mimeType string, maxEdge int) ([]byte, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image config: %w", err)
	}
	if cfg.Width <= maxEdge && cfg.Height <= maxEdge {
		if mimeType == "" {
			mimeType = "image/" + format
		}
		return data, mimeType, nil
	}
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	dst := imaging.Fit(src, maxEdge, maxEdge, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, imaging.JPEG, imaging.JPEGQuality(92)); err != nil {
		return nil, "", fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
