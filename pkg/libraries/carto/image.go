package carto

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/natefinch/atomic"
	"image"
	"image/color/palette"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"strconv"
	"strings"
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

// Image is a rendered map.
type Image struct {
	img image.Image
}

func (i *Image) Image() image.Image {
	return i.img
}

func (i *Image) Width() int {
	return i.img.Bounds().Dx()
}

func (i *Image) Height() int {
	return i.img.Bounds().Dy()
}

// Encode writes the image in the given format: "png" or "png32" for full
// colour PNG, "png8" for a paletted PNG, "jpeg" or "jpegNN" with NN the
// quality.
func (i *Image) Encode(w io.Writer, format string) error {
	format = strings.ToLower(strings.TrimSpace(format))

	switch {
	case format == "" || format == "png" || format == "png32":
		return png.Encode(w, i.img)
	case format == "png8":
		bounds := i.img.Bounds()
		paletted := image.NewPaletted(bounds, palette.WebSafe)
		draw.FloydSteinberg.Draw(paletted, bounds, i.img, bounds.Min)
		return png.Encode(w, paletted)
	case strings.HasPrefix(format, "jpeg") || strings.HasPrefix(format, "jpg"):
		quality := jpeg.DefaultQuality
		suffix := strings.TrimPrefix(strings.TrimPrefix(format, "jpeg"), "jpg")
		if suffix != "" {
			q, err := strconv.Atoi(suffix)
			if err != nil || q < 1 || q > 100 {
				return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
			}
			quality = q
		}
		return jpeg.Encode(w, i.img, &jpeg.Options{Quality: quality})
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func (i *Image) Bytes(format string) ([]byte, error) {
	var buf bytes.Buffer
	if err := i.Encode(&buf, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ContentType returns the MIME type produced by Encode for format.
func ContentType(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if strings.HasPrefix(format, "jpeg") || strings.HasPrefix(format, "jpg") {
		return "image/jpeg"
	}
	return "image/png"
}

// RenderToFile renders the map and atomically replaces path with the result.
func RenderToFile(ctx context.Context, m *Map, path, format string) error {
	img, err := Render(ctx, m)
	if err != nil {
		return err
	}

	data, err := img.Bytes(format)
	if err != nil {
		return fmt.Errorf("failed to encode map: %w", err)
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write map to %s: %w", path, err)
	}

	return nil
}
