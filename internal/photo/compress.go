package photo

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"

	"golang.org/x/image/draw"
)

const (
	// TargetMIME is the encoding every backed-up photo converges on.
	TargetMIME = "image/jpeg"
	// TargetQuality is the JPEG quality factor for recompressed photos.
	TargetQuality = 80
	// MaxDimension bounds the longest side of a backed-up photo.
	MaxDimension = 1200
)

// Recompress bounds a data-URL photo for backup: photos already JPEG and
// within MaxDimension pass through untouched, everything else is scaled
// down as needed and re-encoded. Callers fall back to the original on
// error, so a bad photo never blocks a backup.
func Recompress(dataURL string) (string, error) {
	mime, data, err := DecodeDataURL(dataURL)
	if err != nil {
		return "", err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image config: %w", err)
	}

	if mime == TargetMIME && cfg.Width <= MaxDimension && cfg.Height <= MaxDimension {
		return dataURL, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	width, height := scaledDimensions(cfg.Width, cfg.Height)
	if width != cfg.Width || height != cfg.Height {
		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Over, nil)
		img = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: TargetQuality}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}

	return EncodeDataURL(TargetMIME, buf.Bytes()), nil
}

// DecodeDataURL splits a base64 data URL into its MIME type and bytes.
func DecodeDataURL(dataURL string) (string, []byte, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return "", nil, fmt.Errorf("not a data URL")
	}
	rest := dataURL[len("data:"):]
	sep := strings.Index(rest, ",")
	if sep < 0 {
		return "", nil, fmt.Errorf("malformed data URL")
	}
	meta, payload := rest[:sep], rest[sep+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return "", nil, fmt.Errorf("unsupported data URL encoding")
	}
	mime := strings.TrimSuffix(meta, ";base64")

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode base64 payload: %w", err)
	}
	return mime, data, nil
}

// EncodeDataURL builds a base64 data URL from MIME type and bytes.
func EncodeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func scaledDimensions(width, height int) (int, int) {
	largest := width
	if height > largest {
		largest = height
	}
	if largest <= MaxDimension {
		return width, height
	}
	scale := float64(MaxDimension) / float64(largest)
	scaledW := int(float64(width)*scale + 0.5)
	scaledH := int(float64(height)*scale + 0.5)
	if scaledW < 1 {
		scaledW = 1
	}
	if scaledH < 1 {
		scaledH = 1
	}
	return scaledW, scaledH
}
