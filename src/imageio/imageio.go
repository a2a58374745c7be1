// Package imageio writes captures to disk in the format implied by the file
// name.
package imageio

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"finalshot/src/logutil"
)

type Format int

const (
	PNG Format = iota
	JPEG
	BMP
	TIFF
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 70

func (f Format) String() string {
	switch f {
	case PNG:
		return "png"
	case JPEG:
		return "jpeg"
	case BMP:
		return "bmp"
	case TIFF:
		return "tiff"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// HasAlpha reports whether the container keeps transparent pixels.
func (f Format) HasAlpha() bool { return f == PNG || f == TIFF }

// FormatFor maps a file suffix to a format. Unknown suffixes report PNG and
// false.
func FormatFor(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return JPEG, true
	case ".png":
		return PNG, true
	case ".bmp":
		return BMP, true
	case ".tif", ".tiff":
		return TIFF, true
	}
	return PNG, false
}

// ClampQuality limits q to 0..100.
func ClampQuality(q int) int {
	return min(max(q, 0), 100)
}

// Encode writes img to w. quality only affects JPEG. Formats without alpha
// get transparent pixels flattened onto opaque black.
func Encode(w io.Writer, img image.Image, f Format, quality int) error {
	if !f.HasAlpha() {
		img = Flatten(img, color.Black)
	}
	switch f {
	case JPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: ClampQuality(quality)})
	case BMP:
		return bmp.Encode(w, img)
	case TIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		return png.Encode(w, img)
	}
}

// Save creates the parent directory if needed and writes img to path. It
// returns the format actually used.
func Save(path string, img image.Image, quality int) (Format, error) {
	log := logutil.WithComponent("imageio")
	if strings.TrimSpace(path) == "" {
		return PNG, fmt.Errorf("save: empty path")
	}
	f, ok := FormatFor(path)
	if !ok {
		log.Warn().Str("path", path).Str("suffix", filepath.Ext(path)).Msg("unrecognized image suffix; falling back to png")
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return f, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return f, fmt.Errorf("create %s: %w", path, err)
	}
	bw := bufio.NewWriter(file)
	err = Encode(bw, img, f, quality)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return f, fmt.Errorf("encode %s as %s: %w", path, f, err)
	}
	log.Info().Str("path", path).Stringer("format", f).Int("width", img.Bounds().Dx()).Int("height", img.Bounds().Dy()).Msg("image saved")
	return f, nil
}

// Flatten composites img over an opaque background.
func Flatten(img image.Image, bg color.Color) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Over)
	return out
}
