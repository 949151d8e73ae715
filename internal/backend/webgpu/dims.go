package webgpu

import "github.com/cogentcore/webgpu/wgpu"

// bytesPerPixel of the RGBA8Unorm textures this backend renders with.
const bytesPerPixel = 4

// bufferDims describes a texture copied into a linear buffer whose rows must
// start on wgpu.CopyBytesPerRowAlignment boundaries.
type bufferDims struct {
	width               int
	height              int
	unpaddedBytesPerRow int
	paddedBytesPerRow   int
}

func newBufferDims(width, height int) bufferDims {
	unpadded := width * bytesPerPixel
	align := int(wgpu.CopyBytesPerRowAlignment)
	padded := (unpadded + align - 1) / align * align
	return bufferDims{
		width:               width,
		height:              height,
		unpaddedBytesPerRow: unpadded,
		paddedBytesPerRow:   padded,
	}
}

// size is the staging buffer length in bytes.
func (d bufferDims) size() uint64 {
	return uint64(d.paddedBytesPerRow) * uint64(d.height)
}

// imageSize is the tightly packed pixel length in bytes.
func (d bufferDims) imageSize() int {
	return d.unpaddedBytesPerRow * d.height
}

func (d bufferDims) padded() bool {
	return d.paddedBytesPerRow != d.unpaddedBytesPerRow
}

func (d bufferDims) extent() wgpu.Extent3D {
	return wgpu.Extent3D{
		Width:              uint32(d.width),
		Height:             uint32(d.height),
		DepthOrArrayLayers: 1,
	}
}

func (d bufferDims) layout() wgpu.TextureDataLayout {
	return wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(d.paddedBytesPerRow),
		RowsPerImage: uint32(d.height),
	}
}
