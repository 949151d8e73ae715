package webgpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferDims(t *testing.T) {
	tests := []struct {
		side     int
		unpadded int
		padded   int
	}{
		{side: 1024, unpadded: 4096, padded: 4096},
		{side: 64, unpadded: 256, padded: 256},
		{side: 3, unpadded: 12, padded: 256},
		{side: 65, unpadded: 260, padded: 512},
		{side: 750, unpadded: 3000, padded: 3072},
	}
	for _, tt := range tests {
		d := newBufferDims(tt.side, tt.side)
		assert.Equal(t, tt.unpadded, d.unpaddedBytesPerRow, "side %d", tt.side)
		assert.Equal(t, tt.padded, d.paddedBytesPerRow, "side %d", tt.side)
		assert.Equal(t, uint64(tt.padded*tt.side), d.size())
		assert.Equal(t, tt.unpadded*tt.side, d.imageSize())
		assert.Equal(t, tt.padded != tt.unpadded, d.padded())
	}
}

func TestBufferDimsAlignedSizeIsImageSize(t *testing.T) {
	d := newBufferDims(1024, 1024)
	assert.Equal(t, uint64(1024*1024*4), d.size())

	ext := d.extent()
	assert.Equal(t, uint32(1024), ext.Width)
	assert.Equal(t, uint32(1024), ext.Height)
	assert.Equal(t, uint32(1), ext.DepthOrArrayLayers)

	l := d.layout()
	assert.Equal(t, uint32(4096), l.BytesPerRow)
	assert.Equal(t, uint32(1024), l.RowsPerImage)
}
