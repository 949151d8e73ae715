package webgpu

import (
	"fmt"

	"github.com/born-ml/upscale/internal/logging"
	"github.com/born-ml/upscale/internal/upscaler"
	"github.com/cogentcore/webgpu/wgpu"
)

// pendingReadback hands the map callback's status to the blocked caller.
// It is created per readback and fulfilled exactly once.
type pendingReadback struct {
	done chan wgpu.BufferMapAsyncStatus
}

func newPendingReadback() *pendingReadback {
	return &pendingReadback{done: make(chan wgpu.BufferMapAsyncStatus, 1)}
}

// fulfil records status. Calls after the first are ignored.
func (p *pendingReadback) fulfil(status wgpu.BufferMapAsyncStatus) {
	select {
	case p.done <- status:
	default:
	}
}

// wait calls poll until the callback has fired and returns its status.
// poll is expected to block on the device.
func (p *pendingReadback) wait(poll func()) wgpu.BufferMapAsyncStatus {
	for {
		select {
		case status := <-p.done:
			return status
		default:
			poll()
		}
	}
}

// readback maps the staging buffer, copies the rendered rows out and unmaps.
func (b *Backend) readback() (*upscaler.Image, error) {
	b.setState(stateReading)
	defer b.setState(stateReady)

	dims := b.out.dims
	size := dims.size()
	pending := newPendingReadback()
	if err := b.out.staging.MapAsync(wgpu.MapModeRead, 0, size, pending.fulfil); err != nil {
		return nil, fmt.Errorf("webgpu: %w: %v", upscaler.ErrBufferMap, err)
	}
	status := pending.wait(func() { b.gpu.device.Poll(true, nil) })
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("webgpu: %w: %s", upscaler.ErrBufferMap, status.String())
	}

	raw, err := copyMapped(b.out.staging, size)
	if err != nil {
		return nil, err
	}

	logging.L().Debug("webgpu readback", "bytes", len(raw), "row_pitch", dims.paddedBytesPerRow)
	return decodeReadback(raw, dims)
}

// mappedBuffer is the part of *wgpu.Buffer used after a successful map.
type mappedBuffer interface {
	GetMappedRange(offset, size uint) []byte
	Unmap() error
}

// copyMapped copies size mapped bytes out of buf and unmaps it.
func copyMapped(buf mappedBuffer, size uint64) ([]byte, error) {
	mapped := buf.GetMappedRange(0, uint(size))
	raw := make([]byte, len(mapped))
	copy(raw, mapped)
	if err := buf.Unmap(); err != nil {
		return nil, fmt.Errorf("webgpu: %w: unmap: %v", upscaler.ErrBufferMap, err)
	}
	return raw, nil
}

// decodeReadback strips row padding from raw and wraps the pixels as an
// RGBA image. The result must hold exactly width*height*4 bytes.
func decodeReadback(raw []byte, dims bufferDims) (*upscaler.Image, error) {
	if uint64(len(raw)) != dims.size() {
		return nil, fmt.Errorf("webgpu: %w: staging buffer holds %d bytes, want %d",
			upscaler.ErrMalformedOutput, len(raw), dims.size())
	}
	pix := raw
	if dims.padded() {
		pix = make([]byte, 0, dims.imageSize())
		for y := 0; y < dims.height; y++ {
			row := y * dims.paddedBytesPerRow
			pix = append(pix, raw[row:row+dims.unpaddedBytesPerRow]...)
		}
	}
	return upscaler.FromPix(dims.width, dims.height, upscaler.RGBA, pix)
}
