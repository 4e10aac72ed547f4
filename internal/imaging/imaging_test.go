package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{200, 30, 30, 255})
		}
	}
	return img
}

func encodeJPEG(w, h int) []byte {
	var buf bytes.Buffer
	jpeg.Encode(&buf, solid(w, h), &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func encodePNG(w, h int) []byte {
	var buf bytes.Buffer
	png.Encode(&buf, solid(w, h))
	return buf.Bytes()
}

func TestProcessCoverFormats(t *testing.T) {
	for name, data := range map[string][]byte{
		"jpeg": encodeJPEG(120, 180),
		"png":  encodePNG(120, 180),
	} {
		cover, err := ProcessCover(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if cover.MIME != "image/jpeg" {
			t.Errorf("%s: expected image/jpeg output, got %s", name, cover.MIME)
		}
		if cover.Width != 120 || cover.Height != 180 {
			t.Errorf("%s: small cover should not be resized, got %dx%d", name, cover.Width, cover.Height)
		}
	}
}

func TestProcessCoverFitsBox(t *testing.T) {
	tests := []struct {
		w, h         int
		wantW, wantH int
	}{
		{1200, 1800, 600, 900},
		{2000, 1000, 600, 300},
		{600, 3000, 180, 900},
	}

	for _, tt := range tests {
		cover, err := ProcessCover(bytes.NewReader(encodeJPEG(tt.w, tt.h)))
		if err != nil {
			t.Fatalf("%dx%d: %v", tt.w, tt.h, err)
		}
		img, _, err := image.Decode(bytes.NewReader(cover.Data))
		if err != nil {
			t.Fatalf("decoding result: %v", err)
		}
		b := img.Bounds()
		if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
			t.Errorf("%dx%d: got %dx%d, want %dx%d", tt.w, tt.h, b.Dx(), b.Dy(), tt.wantW, tt.wantH)
		}
	}
}

func TestProcessCoverRejectsOtherFormats(t *testing.T) {
	for _, data := range [][]byte{
		[]byte("not an image"),
		[]byte("GIF89a..."),
	} {
		_, err := ProcessCover(bytes.NewReader(data))
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("%q: expected ErrUnsupportedFormat, got %v", data, err)
		}
	}
}
