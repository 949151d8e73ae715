package cpu

import (
	"math/rand"
	"testing"

	"github.com/born-ml/upscale/internal/upscaler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomImage(side int, layout upscaler.Layout, seed int64) *upscaler.Image {
	img := upscaler.NewImage(side, side, layout)
	r := rand.New(rand.NewSource(seed))
	for i := range img.Pix {
		img.Pix[i] = uint8(r.Intn(256))
	}
	if layout == upscaler.RGBA {
		for i := 3; i < len(img.Pix); i += 4 {
			img.Pix[i] = 0xff
		}
	}
	return img
}

func TestNewDefaults(t *testing.T) {
	b := NewDefault()
	assert.Equal(t, DefaultResolution, b.OriginalResolution())
	assert.Equal(t, float32(2), b.Factor())
	assert.Equal(t, 1024, b.UpscaledResolution())
	assert.Equal(t, Nearest, b.Filter())
	assert.Equal(t, "CPU (nearest)", b.Name())
}

func TestNewRejectsBadFactor(t *testing.T) {
	_, err := New(0, Linear)
	assert.ErrorIs(t, err, upscaler.ErrInvalidScaleFactor)

	_, err = New(-2, Linear)
	assert.ErrorIs(t, err, upscaler.ErrInvalidScaleFactor)

	_, err = New(2, Filter(99))
	assert.Error(t, err)
}

func TestLoadRejectsUnsquare(t *testing.T) {
	b := NewDefault()
	err := b.Load(upscaler.NewImage(4, 3, upscaler.RGB))
	assert.ErrorIs(t, err, upscaler.ErrUnsquareImage)
	assert.Equal(t, DefaultResolution, b.OriginalResolution(), "failed load keeps previous image")
}

func TestUpscaledResolutionIsTruncated(t *testing.T) {
	for _, tt := range []struct {
		side   int
		factor float32
	}{{3, 1.5}, {5, 2.2}, {7, 0.5}, {10, 1.01}} {
		b, err := New(tt.factor, Linear)
		require.NoError(t, err)
		require.NoError(t, b.Load(randomImage(tt.side, upscaler.RGB, 1)))

		want := int(float32(tt.side) * tt.factor)
		assert.Equal(t, want, b.UpscaledResolution())

		out, err := b.Upscale()
		require.NoError(t, err)
		assert.Equal(t, want, out.Width)
		assert.Equal(t, want, out.Height)
	}
}

// 2x2 [[R,G],[B,W]] at factor 2 with nearest gives four uniform 2x2 blocks.
func TestNearestQuadrants(t *testing.T) {
	red := []uint8{255, 0, 0}
	green := []uint8{0, 255, 0}
	blue := []uint8{0, 0, 255}
	white := []uint8{255, 255, 255}

	var pix []uint8
	pix = append(pix, red...)
	pix = append(pix, green...)
	pix = append(pix, blue...)
	pix = append(pix, white...)
	src, err := upscaler.FromPix(2, 2, upscaler.RGB, pix)
	require.NoError(t, err)

	b, err := New(2.0, Nearest)
	require.NoError(t, err)
	require.NoError(t, b.Load(src))

	out, err := b.Upscale()
	require.NoError(t, err)
	require.Equal(t, 4, out.Width)
	require.Equal(t, upscaler.RGB, out.Layout)

	quadrant := func(x, y int) []uint8 {
		switch {
		case x < 2 && y < 2:
			return red
		case y < 2:
			return green
		case x < 2:
			return blue
		default:
			return white
		}
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			i := (y*4 + x) * 3
			assert.Equal(t, quadrant(x, y), out.Pix[i:i+3], "pixel (%d,%d)", x, y)
		}
	}
}

func TestUpscale512To1024(t *testing.T) {
	b, err := New(2.0, Lanczos)
	require.NoError(t, err)
	require.NoError(t, b.Load(randomImage(512, upscaler.RGB, 7)))

	out, err := b.Upscale()
	require.NoError(t, err)
	assert.Equal(t, 1024, out.Width)
	assert.Equal(t, 1024, out.Height)
	assert.Len(t, out.Pix, 1024*1024*3)
}

func TestUpscaleKeepsLayout(t *testing.T) {
	b, err := New(2.0, Linear)
	require.NoError(t, err)
	require.NoError(t, b.Load(randomImage(8, upscaler.RGBA, 3)))

	out, err := b.Upscale()
	require.NoError(t, err)
	assert.Equal(t, upscaler.RGBA, out.Layout)
	assert.Len(t, out.Pix, 16*16*4)
}

func TestUpscaleIsPure(t *testing.T) {
	b, err := New(2.0, CatmullRom)
	require.NoError(t, err)
	src := randomImage(16, upscaler.RGB, 11)
	require.NoError(t, b.Load(src))

	before := b.Upscaled()
	_, err = b.Upscale()
	require.NoError(t, err)
	assert.Same(t, before, b.Upscaled(), "Upscale must not touch the output slot")

	src.Pix[0]++
	out1, err := b.Upscale()
	require.NoError(t, err)
	src.Pix[0]--
	out2, err := b.Upscale()
	require.NoError(t, err)
	assert.Equal(t, out1.Pix, out2.Pix, "Load copies the caller's image")
}

func TestUpscaleRepeatIsIdempotent(t *testing.T) {
	for _, f := range []Filter{Nearest, Linear, Gaussian, CatmullRom, Lanczos} {
		b, err := New(2.0, f)
		require.NoError(t, err)
		require.NoError(t, b.Load(randomImage(16, upscaler.RGB, 5)))

		first, err := b.UpscaleInPlace()
		require.NoError(t, err)
		firstPix := append([]uint8(nil), first.Pix...)

		last, err := b.UpscaleRepeat(4)
		require.NoError(t, err)
		assert.Equal(t, 32, last.Width, "repeat re-upscales the original, not its own output")
		assert.Equal(t, firstPix, last.Pix, "filter %s", f)
		assert.Same(t, last, b.Upscaled())
	}
}

func TestUpscaleRepeatZero(t *testing.T) {
	b := NewDefault()
	initial := b.Upscaled()
	out, err := b.UpscaleRepeat(0)
	require.NoError(t, err)
	assert.Same(t, initial, out)
}

func TestParseFilter(t *testing.T) {
	for name, want := range map[string]Filter{
		"nearest":    Nearest,
		"Triangle":   Linear,
		"bilinear":   Linear,
		"catmullrom": CatmullRom,
		"LANCZOS3":   Lanczos,
		" gaussian ": Gaussian,
		"mitchell":   MitchellNetravali,
		"box":        Box,
	} {
		got, err := ParseFilter(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseFilter("sinc")
	assert.Error(t, err)
}

func BenchmarkFilters(b *testing.B) {
	for _, f := range []Filter{Lanczos, CatmullRom, Gaussian, Linear, Nearest} {
		b.Run(f.String(), func(b *testing.B) {
			up, err := New(2.0, f)
			require.NoError(b, err)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := up.Upscale(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
