package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// encodeAndSubmit records one full-screen draw into the output texture and
// the copy of that texture into the staging buffer, then submits both.
func (b *Backend) encodeAndSubmit() error {
	b.setState(stateRendering)

	encoder, err := b.gpu.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{
		Label: b.label + " encoder",
	})
	if err != nil {
		return fmt.Errorf("webgpu: create command encoder: %w", err)
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: b.label + " render pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       b.out.view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: b.clear,
		}},
	})
	pass.SetPipeline(b.pipe.render)
	pass.SetBindGroup(0, b.in.group, nil)
	pass.Draw(3, 1, 0, 0)
	err = pass.End()
	pass.Release()
	if err != nil {
		return fmt.Errorf("webgpu: end render pass: %w", err)
	}

	dims := b.out.dims
	extent := dims.extent()
	err = encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  b.out.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: b.out.staging,
			Layout: dims.layout(),
		},
		&extent,
	)
	if err != nil {
		return fmt.Errorf("webgpu: copy output texture: %w", err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("webgpu: finish commands: %w", err)
	}
	defer cmd.Release()
	b.gpu.queue.Submit(cmd)
	return nil
}
