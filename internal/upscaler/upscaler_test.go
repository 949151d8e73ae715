package upscaler

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetResolution(t *testing.T) {
	tests := []struct {
		side   int
		factor float32
		want   int
	}{
		{512, 2.0, 1024},
		{512, 1.5, 768},
		{3, 1.5, 4},
		{7, 0.5, 3},
		{100, 1.0 / 3.0, 33},
		{1, 4, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TargetResolution(tt.side, tt.factor), "side=%d factor=%v", tt.side, tt.factor)
	}
}

func TestCheckFactor(t *testing.T) {
	target, err := CheckFactor(512, 2)
	require.NoError(t, err)
	assert.Equal(t, 1024, target)

	for _, f := range []float32{0, -1, float32(math.NaN()), float32(math.Inf(1))} {
		_, err := CheckFactor(512, f)
		assert.ErrorIs(t, err, ErrInvalidScaleFactor, "factor %v", f)
	}

	// 2 * 0.4 truncates to 0.
	_, err = CheckFactor(2, 0.4)
	assert.ErrorIs(t, err, ErrInvalidScaleFactor)
}

func TestFromPix(t *testing.T) {
	img, err := FromPix(2, 2, RGBA, make([]uint8, 16))
	require.NoError(t, err)
	assert.True(t, img.IsSquare())

	_, err = FromPix(2, 2, RGBA, make([]uint8, 15))
	assert.ErrorIs(t, err, ErrMalformedOutput)

	_, err = FromPix(2, 2, RGB, make([]uint8, 16))
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestCheckSquare(t *testing.T) {
	assert.NoError(t, NewImage(4, 4, RGB).CheckSquare())
	assert.ErrorIs(t, NewImage(4, 3, RGB).CheckSquare(), ErrUnsquareImage)

	var nilImg *Image
	assert.ErrorIs(t, nilImg.CheckSquare(), ErrUnsquareImage)
}

func TestLayoutConversion(t *testing.T) {
	rgb := &Image{Width: 1, Height: 2, Layout: RGB, Pix: []uint8{1, 2, 3, 4, 5, 6}}

	rgba := rgb.ToRGBA()
	assert.Equal(t, RGBA, rgba.Layout)
	assert.Equal(t, []uint8{1, 2, 3, 255, 4, 5, 6, 255}, rgba.Pix)

	back := rgba.ToRGB()
	assert.Equal(t, rgb.Pix, back.Pix)

	assert.Same(t, rgb, rgb.ToRGB())
	assert.Same(t, rgba, rgba.ToRGBA())
	assert.Equal(t, color.NRGBA{R: 4, G: 5, B: 6, A: 255}, rgb.At(0, 1))
}

func TestFromImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 10, 12, 12))
	src.Set(10, 10, color.RGBA{R: 255, A: 255})
	src.Set(11, 10, color.RGBA{G: 255, A: 255})
	src.Set(10, 11, color.RGBA{B: 255, A: 255})
	src.Set(11, 11, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	img := FromImage(src)
	assert.Equal(t, RGB, img.Layout, "opaque images become RGB")
	assert.Equal(t, 2, img.Width)
	assert.Equal(t, color.NRGBA{G: 255, A: 255}, img.At(1, 0))

	src.Set(10, 10, color.NRGBA{R: 255, A: 128})
	img = FromImage(src)
	assert.Equal(t, RGBA, img.Layout)
}

func TestToStdRoundTrip(t *testing.T) {
	img := &Image{Width: 2, Height: 1, Layout: RGB, Pix: []uint8{10, 20, 30, 40, 50, 60}}
	std := img.ToStd()
	assert.Equal(t, []uint8{10, 20, 30, 255, 40, 50, 60, 255}, std.Pix)
	assert.Equal(t, img.Pix, FromImage(std).Pix)
}

func TestCloneIsDeep(t *testing.T) {
	img := NewImage(2, 2, RGB)
	c := img.Clone()
	c.Pix[0] = 9
	assert.Equal(t, uint8(0), img.Pix[0])
}

type countingUpscaler struct {
	calls int
	fail  int
	out   *Image
}

func (c *countingUpscaler) UpscaleInPlace() (*Image, error) {
	c.calls++
	if c.calls == c.fail {
		return nil, errors.New("boom")
	}
	c.out = NewImage(c.calls, c.calls, RGB)
	return c.out, nil
}

func TestRepeat(t *testing.T) {
	c := &countingUpscaler{}
	out, err := Repeat(c, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, c.calls)
	assert.Same(t, c.out, out)

	current := NewImage(1, 1, RGB)
	out, err = Repeat(c, 0, current)
	require.NoError(t, err)
	assert.Same(t, current, out)
	assert.Equal(t, 3, c.calls)

	failing := &countingUpscaler{fail: 2}
	_, err = Repeat(failing, 5, nil)
	require.Error(t, err)
	assert.Equal(t, 2, failing.calls, "repeat stops at the first failure")
}

func TestShapeError(t *testing.T) {
	err := error(&ShapeError{Tensor: "input", Name: "x", Dims: []int64{1, 4, 8, 8}, Kind: ErrIncompatibleModel, Reason: "channels must be 3"})
	assert.ErrorIs(t, err, ErrIncompatibleModel)
	assert.Contains(t, err.Error(), `input "x"`)
	assert.Contains(t, err.Error(), "channels must be 3")
}
