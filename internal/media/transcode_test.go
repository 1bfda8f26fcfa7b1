package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestTranscodeProducesJPEG(t *testing.T) {
	t.Parallel()

	tr := NewJPEGTranscoder()
	out, contentType, err := tr.Transcode(context.Background(), encodePNG(t, 40, 30), "image/png")
	if err != nil {
		t.Fatal(err)
	}
	if contentType != "image/jpeg" {
		t.Errorf("content type = %q", contentType)
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not decodable jpeg: %v", err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
		t.Errorf("dimensions = %v, want 40x30", img.Bounds())
	}
}

func TestTranscodeRejectsGarbage(t *testing.T) {
	t.Parallel()

	tr := NewJPEGTranscoder()
	if _, _, err := tr.Transcode(context.Background(), []byte("not an image"), "image/jpeg"); err == nil {
		t.Fatal("garbage input accepted")
	}
}

func TestPreviewBoundsLongestEdge(t *testing.T) {
	t.Parallel()

	out, err := Preview(encodePNG(t, 1600, 800), PreviewMaxDim)
	if err != nil {
		t.Fatal(err)
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != PreviewMaxDim {
		t.Errorf("width = %d, want %d", img.Bounds().Dx(), PreviewMaxDim)
	}
	if img.Bounds().Dy() != PreviewMaxDim/2 {
		t.Errorf("height = %d, want aspect preserved (%d)", img.Bounds().Dy(), PreviewMaxDim/2)
	}
}

func TestPreviewLeavesSmallImagesUnscaled(t *testing.T) {
	t.Parallel()

	out, err := Preview(encodePNG(t, 100, 60), PreviewMaxDim)
	if err != nil {
		t.Fatal(err)
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 60 {
		t.Errorf("dimensions = %v, want unchanged 100x60", img.Bounds())
	}
}
