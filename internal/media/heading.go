package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif" // decoder registration
	"image/jpeg"
	_ "image/png" // decoder registration
	"os"

	"github.com/jonesrussell/site-builder/infrastructure/logger"
	_ "golang.org/x/image/bmp"  // decoder registration
	_ "golang.org/x/image/webp" // decoder registration
)

const headingJPEGQuality = 90

// ResolveHeading writes the heading background to dest as an RGB JPEG.
// Undecodable images are copied byte for byte; an unresolved ref falls back
// to the file at fallback when it exists. It reports whether dest was written.
func (r *Resolver) ResolveHeading(ctx context.Context, ref, dest, fallback string) bool {
	path, ok := r.Resolve(ctx, ref, dest)
	if !ok {
		if fallback == "" {
			return false
		}
		if _, err := os.Stat(fallback); err != nil {
			return false
		}
		if err := copyFile(fallback, dest); err != nil {
			r.log.Warn("Default heading copy failed", logger.String("src", fallback), logger.Error(err))
			return false
		}
		return true
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		r.log.Warn("Heading image unreadable", logger.String("path", path), logger.Error(err))
		return false
	}

	encoded, err := toRGBJPEG(raw)
	if err != nil {
		r.log.Debug("Heading image kept as-is", logger.String("path", path), logger.Error(err))
		encoded = raw
	}
	if err = os.WriteFile(dest, encoded, 0o644); err != nil {
		r.log.Warn("Heading image write failed", logger.String("dest", dest), logger.Error(err))
		return false
	}
	return true
}

func toRGBJPEG(raw []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	rgb := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgb, rgb.Bounds(), src, b.Min, draw.Src)
	for i := 3; i < len(rgb.Pix); i += 4 {
		rgb.Pix[i] = 0xff
	}

	var buf bytes.Buffer
	if err = jpeg.Encode(&buf, rgb, &jpeg.Options{Quality: headingJPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
