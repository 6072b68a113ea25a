package mime

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestIsFrameMime(t *testing.T) {
	for _, m := range []string{"", "application/octet-stream", "image/x-nv21", "image/x-nv12"} {
		if !IsFrameMime(m) {
			t.Errorf("expected %q to be a frame mime type", m)
		}
	}
	if IsFrameMime("image/png") {
		t.Error("image/png is not a raw frame")
	}
}

func TestIsImageAndVideoMime(t *testing.T) {
	if !IsImageMime("image/webp") || IsImageMime("video/mp4") {
		t.Error("unexpected image mime classification")
	}
	if !IsVideoMime("video/mp4") || IsVideoMime("image/jpeg") {
		t.Error("unexpected video mime classification")
	}
}

func TestLayoutHint(t *testing.T) {
	if got := LayoutHint("image/x-nv12"); got != "nv12" {
		t.Errorf("expected nv12, got %q", got)
	}
	if got := LayoutHint("application/octet-stream"); got != "" {
		t.Errorf("expected no hint, got %q", got)
	}
}

func TestDecodeImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	img, err := DecodeImage(bytes.NewReader(buf.Bytes()), "image/png")
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}

	if _, err := DecodeImage(bytes.NewReader(buf.Bytes()), "image/svg+xml"); err == nil {
		t.Error("expected an error for an unlisted image type")
	}
}

func TestImageMimeHasDecoder(t *testing.T) {
	for _, m := range []string{"image/jpeg", "image/png", "image/gif", "image/bmp", "image/tiff", "image/webp"} {
		if !IsImageMime(m) {
			t.Errorf("expected %q to be an image mime type", m)
		}
		if imageDecoders[m] == nil {
			t.Errorf("no decoder for %q", m)
		}
	}
}
