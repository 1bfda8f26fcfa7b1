// Package media re-encodes captured images for storage and generates reduced
// previews for day views.
package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	// Decoder registration for the formats field devices produce.
	_ "image/gif"
	_ "image/png"
)

const (
	// StorageQuality is the JPEG quality used for the primary stored copy.
	StorageQuality = 85
	// PreviewQuality is the JPEG quality used for generated previews.
	PreviewQuality = 60
	// PreviewMaxDim bounds the longest edge of a generated preview.
	PreviewMaxDim = 512
)

// JPEGTranscoder normalizes uploads to JPEG before storage. Device uploads
// arrive as JPEG, PNG or GIF; everything is stored as JPEG.
type JPEGTranscoder struct {
	quality int
}

// NewJPEGTranscoder creates a transcoder at StorageQuality.
func NewJPEGTranscoder() *JPEGTranscoder {
	return &JPEGTranscoder{quality: StorageQuality}
}

// Transcode decodes the raw upload and re-encodes it as JPEG. The input
// content type is advisory; the actual format is sniffed from the bytes.
func (t *JPEGTranscoder) Transcode(_ context.Context, data []byte, _ string) ([]byte, string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: t.quality}); err != nil {
		return nil, "", fmt.Errorf("failed to encode jpeg: %w", err)
	}

	return buf.Bytes(), "image/jpeg", nil
}

// Preview decodes a stored image and produces a downscaled, lower-quality
// JPEG with the longest edge at most maxDim pixels. Images already within
// bounds are re-encoded without scaling.
func Preview(data []byte, maxDim int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	img = scaleDown(img, maxDim)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: PreviewQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}

	return buf.Bytes(), nil
}

// scaleDown resizes with nearest-neighbor sampling. Previews are thumbnails;
// sampling quality does not matter at PreviewQuality.
func scaleDown(src image.Image, maxDim int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= maxDim || maxDim <= 0 {
		return src
	}

	outW := w * maxDim / longest
	outH := h * maxDim / longest
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	for y := 0; y < outH; y++ {
		srcY := bounds.Min.Y + y*h/outH
		for x := 0; x < outW; x++ {
			srcX := bounds.Min.X + x*w/outW
			dst.Set(x, y, src.At(srcX, srcY))
		}
	}
	return dst
}
