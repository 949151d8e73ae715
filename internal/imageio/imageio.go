// Package imageio reads and writes image files as upscaler images.
// Input formats are detected from file content, output formats from the
// file extension.
package imageio

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/born-ml/upscale/internal/upscaler"
	"github.com/h2non/filetype"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// ErrUnknownFormat is returned for content or extensions that are not a
// supported image format.
var ErrUnknownFormat = errors.New("unknown image format")

// Format is an image file format.
type Format int

// Supported formats. WebP can be decoded but not encoded.
const (
	Unknown Format = iota
	PNG
	JPEG
	GIF
	BMP
	TIFF
	WebP
)

var formatNames = [...]string{"unknown", "png", "jpeg", "gif", "bmp", "tiff", "webp"}

// String returns the lower-case format name.
func (f Format) String() string {
	if f < 0 || int(f) >= len(formatNames) {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formatNames[f]
}

// CanEncode reports whether Encode supports f.
func (f Format) CanEncode() bool {
	return f >= PNG && f <= TIFF
}

// sniffLen is the header size filetype needs to recognise every format.
const sniffLen = 262

// Sniff detects the format of an image from its first bytes.
func Sniff(header []byte) (Format, error) {
	kind, err := filetype.Match(header)
	if err != nil {
		return Unknown, err
	}
	switch kind.Extension {
	case "png":
		return PNG, nil
	case "jpg":
		return JPEG, nil
	case "gif":
		return GIF, nil
	case "bmp":
		return BMP, nil
	case "tif":
		return TIFF, nil
	case "webp":
		return WebP, nil
	}
	if kind == filetype.Unknown {
		return Unknown, ErrUnknownFormat
	}
	return Unknown, fmt.Errorf("%w: %s", ErrUnknownFormat, kind.MIME.Value)
}

// FormatFromPath returns the format named by a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	case "gif":
		return GIF, nil
	case "bmp":
		return BMP, nil
	case "tif", "tiff":
		return TIFF, nil
	case "webp":
		return WebP, nil
	}
	return Unknown, fmt.Errorf("%w: extension %q", ErrUnknownFormat, ext)
}

// Decode reads an image, detecting its format from the content.
func Decode(r io.Reader) (*upscaler.Image, Format, error) {
	br := bufio.NewReaderSize(r, 4096)
	header, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, Unknown, err
	}
	format, err := Sniff(header)
	if err != nil {
		return nil, Unknown, err
	}

	var img image.Image
	switch format {
	case PNG:
		img, err = png.Decode(br)
	case JPEG:
		img, err = jpeg.Decode(br)
	case GIF:
		img, err = gif.Decode(br)
	case BMP:
		img, err = bmp.Decode(br)
	case TIFF:
		img, err = tiff.Decode(br)
	case WebP:
		img, err = webp.Decode(br)
	}
	if err != nil {
		return nil, format, fmt.Errorf("decode %s: %w", format, err)
	}
	return upscaler.FromImage(img), format, nil
}

// Read decodes the image file at path.
func Read(path string) (*upscaler.Image, Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Unknown, err
	}
	defer f.Close()
	return Decode(f)
}

// Options controls encoding.
type Options struct {
	// JPEGQuality is the JPEG quality from 1 to 100. Zero means 90.
	JPEGQuality int
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img *upscaler.Image, format Format, opts *Options) error {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.JPEGQuality == 0 {
		o.JPEGQuality = 90
	}

	std := img.ToNRGBA()
	switch format {
	case PNG:
		return png.Encode(w, std)
	case JPEG:
		return jpeg.Encode(w, std, &jpeg.Options{Quality: o.JPEGQuality})
	case GIF:
		return gif.Encode(w, std, nil)
	case BMP:
		return bmp.Encode(w, std)
	case TIFF:
		return tiff.Encode(w, std, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("%w: cannot encode %s", ErrUnknownFormat, format)
}

// Write encodes img to path in the format named by its extension.
func Write(path string, img *upscaler.Image, opts *Options) (err error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if !format.CanEncode() {
		return fmt.Errorf("%w: cannot encode %s", ErrUnknownFormat, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	bw := bufio.NewWriter(f)
	if err := Encode(bw, img, format, opts); err != nil {
		return err
	}
	return bw.Flush()
}
