package upscaler

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Layout is the channel layout of an Image.
type Layout int

// Supported layouts, 8 bits per channel.
const (
	RGB Layout = iota
	RGBA
)

// Channels returns the number of interleaved channels per pixel.
func (l Layout) Channels() int {
	if l == RGB {
		return 3
	}
	return 4
}

// String returns the layout name.
func (l Layout) String() string {
	switch l {
	case RGB:
		return "RGB"
	case RGBA:
		return "RGBA"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// Image is an owned, tightly packed 8-bit pixel buffer.
// Rows are Width*Layout.Channels() bytes long with no padding.
type Image struct {
	Width  int
	Height int
	Layout Layout
	Pix    []uint8
}

// NewImage allocates a zeroed (black, transparent for RGBA) image.
func NewImage(width, height int, layout Layout) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Layout: layout,
		Pix:    make([]uint8, width*height*layout.Channels()),
	}
}

// FromPix wraps pix as an image of the given dimensions.
// It fails with ErrMalformedOutput if len(pix) is not exactly width*height*channels.
func FromPix(width, height int, layout Layout, pix []uint8) (*Image, error) {
	want := width * height * layout.Channels()
	if width <= 0 || height <= 0 || len(pix) != want {
		return nil, fmt.Errorf("%w: %dx%d %s needs %d bytes, got %d",
			ErrMalformedOutput, width, height, layout, want, len(pix))
	}
	return &Image{Width: width, Height: height, Layout: layout, Pix: pix}, nil
}

// FromImage converts a standard library image. Images that report themselves
// as opaque become RGB, everything else RGBA with straight alpha.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	nrgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), src, b.Min, draw.Src)

	img := &Image{Width: b.Dx(), Height: b.Dy(), Layout: RGBA, Pix: nrgba.Pix}
	if o, ok := src.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img.ToRGB()
	}
	return img
}

// IsSquare reports whether width equals height.
func (m *Image) IsSquare() bool {
	return m.Width == m.Height
}

// CheckSquare returns ErrUnsquareImage for nil or non-square images.
func (m *Image) CheckSquare() error {
	if m == nil {
		return fmt.Errorf("%w: nil image", ErrUnsquareImage)
	}
	if !m.IsSquare() {
		return fmt.Errorf("%w: %dx%d", ErrUnsquareImage, m.Width, m.Height)
	}
	return nil
}

// Stride returns the row length in bytes.
func (m *Image) Stride() int {
	return m.Width * m.Layout.Channels()
}

// Clone returns a deep copy.
func (m *Image) Clone() *Image {
	pix := make([]uint8, len(m.Pix))
	copy(pix, m.Pix)
	return &Image{Width: m.Width, Height: m.Height, Layout: m.Layout, Pix: pix}
}

// At returns the pixel at (x, y) as straight-alpha RGBA.
func (m *Image) At(x, y int) color.NRGBA {
	c := m.Layout.Channels()
	i := y*m.Stride() + x*c
	p := m.Pix[i : i+c : i+c]
	if m.Layout == RGB {
		return color.NRGBA{R: p[0], G: p[1], B: p[2], A: 0xff}
	}
	return color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}

// ToRGBA returns the image in RGBA layout, adding an opaque alpha channel
// to RGB images. RGBA images are returned as-is.
func (m *Image) ToRGBA() *Image {
	if m.Layout == RGBA {
		return m
	}
	out := NewImage(m.Width, m.Height, RGBA)
	for i, j := 0, 0; i < len(m.Pix); i, j = i+3, j+4 {
		out.Pix[j] = m.Pix[i]
		out.Pix[j+1] = m.Pix[i+1]
		out.Pix[j+2] = m.Pix[i+2]
		out.Pix[j+3] = 0xff
	}
	return out
}

// ToRGB returns the image in RGB layout, dropping alpha.
// RGB images are returned as-is.
func (m *Image) ToRGB() *Image {
	if m.Layout == RGB {
		return m
	}
	out := NewImage(m.Width, m.Height, RGB)
	for i, j := 0, 0; i < len(m.Pix); i, j = i+4, j+3 {
		out.Pix[j] = m.Pix[i]
		out.Pix[j+1] = m.Pix[i+1]
		out.Pix[j+2] = m.Pix[i+2]
	}
	return out
}

// ToLayout converts to the requested layout.
func (m *Image) ToLayout(l Layout) *Image {
	if l == RGB {
		return m.ToRGB()
	}
	return m.ToRGBA()
}

// ToNRGBA returns a standard library view of the image. The pixel buffer is
// shared when the image is already RGBA.
func (m *Image) ToNRGBA() *image.NRGBA {
	rgba := m.ToRGBA()
	return &image.NRGBA{
		Pix:    rgba.Pix,
		Stride: rgba.Stride(),
		Rect:   image.Rect(0, 0, rgba.Width, rgba.Height),
	}
}

// ToStd returns the image as a standard library image.RGBA, premultiplying
// alpha. Resampling libraries operate on this representation.
func (m *Image) ToStd() *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	if m.Layout == RGB || isOpaque(m) {
		rgba := m.ToRGBA()
		copy(dst.Pix, rgba.Pix)
		return dst
	}
	draw.Draw(dst, dst.Bounds(), m.ToNRGBA(), image.Point{}, draw.Src)
	return dst
}

func isOpaque(m *Image) bool {
	if m.Layout == RGB {
		return true
	}
	for i := 3; i < len(m.Pix); i += 4 {
		if m.Pix[i] != 0xff {
			return false
		}
	}
	return true
}
