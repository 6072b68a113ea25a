package validation

import (
	"testing"

	"github.com/nfnt/resize"
)

func TestParsePathParams_FrameGeometry(t *testing.T) {
	params, err := ParsePathParams("w:640/h:480/fmt:NV12/t:secret")
	if err != nil {
		t.Fatalf("ParsePathParams failed: %v", err)
	}

	if params.Width != 640 || params.Height != 480 {
		t.Errorf("Expected 640x480, got %dx%d", params.Width, params.Height)
	}
	if params.Layout != "nv12" {
		t.Errorf("Expected layout 'nv12', got '%s'", params.Layout)
	}
	if params.Token != "secret" {
		t.Errorf("Expected token 'secret', got '%s'", params.Token)
	}
	if params.EncodedURL != "" {
		t.Errorf("Expected no encoded URL, got '%s'", params.EncodedURL)
	}
}

func TestParsePathParams_WithEncodedURL(t *testing.T) {
	pathParams := "w:320/h:240/sig:abc123/aHR0cHM6Ly9leGFtcGxlLmNvbS9mcmFtZS5udjIx"

	params, err := ParsePathParams(pathParams)
	if err != nil {
		t.Fatalf("ParsePathParams failed: %v", err)
	}

	if params.Signature != "abc123" {
		t.Errorf("Expected signature 'abc123', got '%s'", params.Signature)
	}
	if params.EncodedURL != "aHR0cHM6Ly9leGFtcGxlLmNvbS9mcmFtZS5udjIx" {
		t.Errorf("Unexpected encoded URL '%s'", params.EncodedURL)
	}
}

func TestParsePathParams_Preview(t *testing.T) {
	params, err := ParsePathParams("/w:320/h:240/q:75/rw:160/rh:120/s:0.5/i:1/webp/")
	if err != nil {
		t.Fatalf("ParsePathParams failed: %v", err)
	}

	if params.Quality != 75 {
		t.Errorf("Expected quality 75, got %d", params.Quality)
	}
	if params.ResizeWidth != 160 || params.ResizeHeight != 120 {
		t.Errorf("Expected resize 160x120, got %dx%d", params.ResizeWidth, params.ResizeHeight)
	}
	if params.Scale != 0.5 {
		t.Errorf("Expected scale 0.5, got %f", params.Scale)
	}
	if params.Interpolation != resize.Bilinear {
		t.Errorf("Expected bilinear interpolation, got %d", params.Interpolation)
	}
	if !params.Webp {
		t.Error("Expected webp to be true")
	}
}

func TestParsePathParams_Defaults(t *testing.T) {
	params, err := ParsePathParams("w:2/h:2/q:500/s:3")
	if err != nil {
		t.Fatalf("ParsePathParams failed: %v", err)
	}

	if params.Quality != 100 {
		t.Errorf("Out of range quality should keep default, got %d", params.Quality)
	}
	if params.Scale != 0 {
		t.Errorf("Out of range scale should be ignored, got %f", params.Scale)
	}
	if params.Interpolation != resize.Lanczos3 {
		t.Errorf("Expected Lanczos3 default, got %d", params.Interpolation)
	}
}

func TestParsePathParams_Errors(t *testing.T) {
	for _, p := range []string{"", "/", "w:abc/h:2", "w:2/h:x"} {
		if _, err := ParsePathParams(p); err == nil {
			t.Errorf("expected error for %q", p)
		}
	}
}
