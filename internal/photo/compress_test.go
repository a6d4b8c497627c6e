package photo

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func jpegDataURL(t *testing.T, width, height int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.RGBA{R: uint8(x % 256), A: 255})
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return EncodeDataURL("image/jpeg", buf.Bytes())
}

func pngDataURL(t *testing.T, width, height int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return EncodeDataURL("image/png", buf.Bytes())
}

func TestRecompressSkipsSmallJPEG(t *testing.T) {
	original := jpegDataURL(t, 640, 480)
	got, err := Recompress(original)
	if err != nil {
		t.Fatalf("Recompress: %v", err)
	}
	if got != original {
		t.Fatal("small JPEG should pass through byte-identical")
	}
}

func TestRecompressConvertsPNG(t *testing.T) {
	got, err := Recompress(pngDataURL(t, 100, 100))
	if err != nil {
		t.Fatalf("Recompress: %v", err)
	}
	if !strings.HasPrefix(got, "data:image/jpeg;base64,") {
		t.Fatalf("expected jpeg data URL, got prefix %q", got[:30])
	}
}

func TestRecompressScalesDownLargeImages(t *testing.T) {
	got, err := Recompress(jpegDataURL(t, 2400, 1200))
	if err != nil {
		t.Fatalf("Recompress: %v", err)
	}

	mime, data, err := DecodeDataURL(got)
	if err != nil {
		t.Fatalf("DecodeDataURL: %v", err)
	}
	if mime != TargetMIME {
		t.Fatalf("mime = %q, want %q", mime, TargetMIME)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if cfg.Width != MaxDimension || cfg.Height != MaxDimension/2 {
		t.Fatalf("scaled to %dx%d, want %dx%d", cfg.Width, cfg.Height, MaxDimension, MaxDimension/2)
	}
}

func TestRecompressRejectsBadInput(t *testing.T) {
	for _, input := range []string{
		"",
		"not a data url",
		"data:image/jpeg,plain-not-base64",
		"data:image/jpeg;base64,!!!!",
		EncodeDataURL("image/jpeg", []byte("not an image")),
	} {
		if _, err := Recompress(input); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}

func TestScaledDimensions(t *testing.T) {
	tests := []struct {
		w, h         int
		wantW, wantH int
	}{
		{800, 600, 800, 600},
		{1200, 1200, 1200, 1200},
		{2400, 1200, 1200, 600},
		{1200, 2400, 600, 1200},
		{3000, 1, 1200, 1},
	}
	for _, tt := range tests {
		gotW, gotH := scaledDimensions(tt.w, tt.h)
		if gotW != tt.wantW || gotH != tt.wantH {
			t.Errorf("scaledDimensions(%d, %d) = %d, %d; want %d, %d",
				tt.w, tt.h, gotW, gotH, tt.wantW, tt.wantH)
		}
	}
}

func TestDataURLRoundTrip(t *testing.T) {
	payload := []byte{0x00, 0x01, 0xFF, 0x7F}
	url := EncodeDataURL("application/octet-stream", payload)

	mime, data, err := DecodeDataURL(url)
	if err != nil {
		t.Fatalf("DecodeDataURL: %v", err)
	}
	if mime != "application/octet-stream" {
		t.Errorf("mime = %q", mime)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("payload = %v, want %v", data, payload)
	}
}
