package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"strings"

	_ "golang.org/x/image/webp"
)

// ErrNotImage is returned when a file's declared media type is not an
// image type. The caller surfaces it and leaves all state untouched.
var ErrNotImage = fmt.Errorf("file is not an image")

const jpegQuality = 90

// NormalizeFile decodes a user-selected file into a normalized
// encoded-image string. The declared content type is checked before any
// bytes are read.
func NormalizeFile(r io.Reader, contentType string) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrNotImage
	}

	img, _, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	return EncodeDataURL(img)
}

// EncodeDataURL re-encodes a decoded image as a self-contained JPEG data
// URL, the single in-memory representation every downstream consumer
// (analysis client, history store, templates) works with.
func EncodeDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURL is the inverse of EncodeDataURL, used by the diagnose
// CLI and by tests.
func DecodeDataURL(dataURL string) (image.Image, error) {
	idx := strings.Index(dataURL, ",")
	if !strings.HasPrefix(dataURL, "data:image/") || idx < 0 {
		return nil, fmt.Errorf("not an image data URL")
	}

	raw, err := base64.StdEncoding.DecodeString(dataURL[idx+1:])
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 payload: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
