package neural

import (
	"fmt"

	"github.com/born-ml/upscale/internal/tensor"
	"github.com/born-ml/upscale/internal/upscaler"
	"github.com/chewxy/math32"
)

// plane returns the pixel channel stored in tensor plane c.
func (o ChannelOrder) plane(c int) int {
	if o == BGR {
		return 2 - c
	}
	return c
}

// pack writes img into dst, a [1,3,S,S] tensor, as planar values in [lo, hi].
func pack(dst *tensor.Tensor, img *upscaler.Image, order ChannelOrder, lo, hi float32) {
	side := img.Width
	n := side * side
	ch := img.Layout.Channels()
	scale := (hi - lo) / 255
	data := dst.Data()
	for c := 0; c < imageChannels; c++ {
		out := data[c*n : (c+1)*n]
		src := order.plane(c)
		for i := range out {
			out[i] = float32(img.Pix[i*ch+src])*scale + lo
		}
	}
}

// unpack converts a [1,3,S,S] output tensor to an RGB image. Values are
// mapped from [lo, hi] to [0, 255], clamped and truncated.
func unpack(t *tensor.Tensor, side int, order ChannelOrder, lo, hi float32) (*upscaler.Image, error) {
	want := tensor.Shape{1, imageChannels, side, side}
	if !t.Shape().Equal(want) {
		return nil, fmt.Errorf("neural: %w: model produced %v, want %v",
			upscaler.ErrMalformedOutput, t.Shape(), want)
	}
	n := side * side
	img := upscaler.NewImage(side, side, upscaler.RGB)
	scale := 255 / (hi - lo)
	data := t.Data()
	for c := 0; c < imageChannels; c++ {
		in := data[c*n : (c+1)*n]
		dst := order.plane(c)
		for i, v := range in {
			p := (v - lo) * scale
			if math32.IsNaN(p) {
				p = 0
			}
			img.Pix[i*3+dst] = uint8(math32.Min(math32.Max(p, 0), 255))
		}
	}
	return img, nil
}
