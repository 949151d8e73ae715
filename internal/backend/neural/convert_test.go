package neural

import (
	"testing"

	"github.com/born-ml/upscale/internal/tensor"
	"github.com/born-ml/upscale/internal/upscaler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackChannelOrder(t *testing.T) {
	img := upscaler.NewImage(2, 2, upscaler.RGB)
	copy(img.Pix[0:3], []uint8{10, 20, 30})

	dst := tensor.Zeros(1, 3, 2, 2)
	pack(dst, img, BGR, 0, 255)
	assert.Equal(t, float32(30), dst.At(0, 0, 0, 0))
	assert.Equal(t, float32(20), dst.At(0, 1, 0, 0))
	assert.Equal(t, float32(10), dst.At(0, 2, 0, 0))

	pack(dst, img, RGB, 0, 255)
	assert.Equal(t, float32(10), dst.At(0, 0, 0, 0))
	assert.Equal(t, float32(30), dst.At(0, 2, 0, 0))

	pack(dst, img, RGB, -1, 1)
	assert.Equal(t, float32(-1), dst.At(0, 0, 1, 1))
}

func TestUnpackClampsAndTruncates(t *testing.T) {
	out := tensor.Zeros(1, 3, 2, 2)
	data := out.Data()
	data[0] = 1.5   // R of pixel 0, above range
	data[1] = -0.25 // R of pixel 1, below range
	data[4] = 0.5   // G of pixel 0
	data[8] = 0.999 // B of pixel 0

	img, err := unpack(out, 2, RGB, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), img.Pix[0])
	assert.Equal(t, uint8(0), img.Pix[3])
	assert.Equal(t, uint8(127), img.Pix[1])
	assert.Equal(t, uint8(254), img.Pix[2])

	bgr, err := unpack(out, 2, BGR, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), bgr.Pix[2])
	assert.Equal(t, uint8(254), bgr.Pix[0])
}

func TestUnpackShape(t *testing.T) {
	_, err := unpack(tensor.Zeros(1, 3, 2, 2), 4, RGB, 0, 1)
	require.ErrorIs(t, err, upscaler.ErrMalformedOutput)
	_, err = unpack(tensor.Zeros(1, 4, 2, 2), 2, RGB, 0, 1)
	require.ErrorIs(t, err, upscaler.ErrMalformedOutput)
}

func TestParseChannelOrder(t *testing.T) {
	o, err := ParseChannelOrder("rgb")
	require.NoError(t, err)
	assert.Equal(t, RGB, o)
	o, err = ParseChannelOrder("")
	require.NoError(t, err)
	assert.Equal(t, BGR, o)
	_, err = ParseChannelOrder("hsv")
	require.Error(t, err)
	assert.Equal(t, "bgr", BGR.String())
}
