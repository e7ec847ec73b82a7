package canvas

import (
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/HugoSmits86/nativewebp"
)

// Snapshot formats understood by Encode.
const (
	FormatWebP = "webp"
	FormatPNG  = "png"
)

// ContentType returns the MIME type of a snapshot format.
func ContentType(format string) string {
	if format == FormatPNG {
		return "image/png"
	}
	return "image/webp"
}

// Encode writes img in the requested format. WebP is the default.
func Encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case "", FormatWebP:
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("encode webp: %w", err)
		}
	case FormatPNG:
		if err := png.Encode(w, img); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
	default:
		return fmt.Errorf("unsupported snapshot format %q", format)
	}
	return nil
}
