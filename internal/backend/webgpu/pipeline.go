package webgpu

import (
	"fmt"

	"github.com/born-ml/upscale/internal/upscaler"
	"github.com/cogentcore/webgpu/wgpu"
)

// textureFormat is used for both textures. It is linear so that hardware
// filtering matches CPU bilinear resampling of the stored bytes.
const textureFormat = wgpu.TextureFormatRGBA8Unorm

// pipeline is the immutable part of the render setup.
type pipeline struct {
	vertex   *wgpu.ShaderModule
	fragment *wgpu.ShaderModule
	sampler  *wgpu.Sampler
	layout   *wgpu.BindGroupLayout
	pipeLay  *wgpu.PipelineLayout
	render   *wgpu.RenderPipeline
}

func newPipeline(device *wgpu.Device, label, fragmentWGSL string) (p *pipeline, err error) {
	p = &pipeline{}
	defer func() {
		if err != nil {
			p.release()
			p = nil
		}
	}()

	if p.vertex, err = createShader(device, label+" vertex", vertexShader); err != nil {
		return p, err
	}
	if p.fragment, err = createShader(device, label+" fragment", fragmentWGSL); err != nil {
		return p, err
	}

	p.sampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label + " sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeNearest,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return p, fmt.Errorf("webgpu: create sampler: %w", err)
	}

	p.layout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: label + " bind group layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		return p, fmt.Errorf("webgpu: create bind group layout: %w", err)
	}

	p.pipeLay, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label + " pipeline layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.layout},
	})
	if err != nil {
		return p, fmt.Errorf("webgpu: create pipeline layout: %w", err)
	}

	p.render, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  label + " render pipeline",
		Layout: p.pipeLay,
		Vertex: wgpu.VertexState{
			Module:     p.vertex,
			EntryPoint: vertexEntryPoint,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		Fragment: &wgpu.FragmentState{
			Module:     p.fragment,
			EntryPoint: fragmentEntryPoint,
			Targets: []wgpu.ColorTargetState{{
				Format:    textureFormat,
				Blend:     &wgpu.BlendStateReplace,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
	})
	if err != nil {
		return p, fmt.Errorf("webgpu: %w: create render pipeline: %v", upscaler.ErrShaderCompile, err)
	}
	return p, nil
}

func createShader(device *wgpu.Device, label, src string) (*wgpu.ShaderModule, error) {
	m, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: src},
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: %w: %s: %v", upscaler.ErrShaderCompile, label, err)
	}
	return m, nil
}

func (p *pipeline) release() {
	if p == nil {
		return
	}
	if p.render != nil {
		p.render.Release()
	}
	if p.pipeLay != nil {
		p.pipeLay.Release()
	}
	if p.layout != nil {
		p.layout.Release()
	}
	if p.sampler != nil {
		p.sampler.Release()
	}
	if p.fragment != nil {
		p.fragment.Release()
	}
	if p.vertex != nil {
		p.vertex.Release()
	}
}

// inputSet is the texture the loaded image lives in, recreated by every Load.
type inputSet struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	group   *wgpu.BindGroup
	side    int
}

func newInputSet(device *wgpu.Device, queue *wgpu.Queue, p *pipeline, label string, img *upscaler.Image) (in *inputSet, err error) {
	in = &inputSet{side: img.Width}
	defer func() {
		if err != nil {
			in.release()
			in = nil
		}
	}()

	dims := newBufferDims(img.Width, img.Height)
	extent := dims.extent()
	in.texture, err = device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label + " input",
		Usage:         wgpu.TextureUsageCopyDst | wgpu.TextureUsageTextureBinding,
		Dimension:     wgpu.TextureDimension2D,
		Size:          extent,
		Format:        textureFormat,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return in, fmt.Errorf("webgpu: create input texture: %w", err)
	}
	if in.view, err = in.texture.CreateView(nil); err != nil {
		return in, fmt.Errorf("webgpu: create input view: %w", err)
	}
	in.group, err = device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  label + " bind group",
		Layout: p.layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: in.view},
			{Binding: 1, Sampler: p.sampler},
		},
	})
	if err != nil {
		return in, fmt.Errorf("webgpu: create bind group: %w", err)
	}

	// WriteTexture has no row alignment requirement.
	err = queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  in.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		img.ToRGBA().Pix,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(dims.unpaddedBytesPerRow),
			RowsPerImage: uint32(dims.height),
		},
		&extent,
	)
	if err != nil {
		return in, fmt.Errorf("webgpu: upload input: %w", err)
	}
	return in, nil
}

func (in *inputSet) release() {
	if in == nil {
		return
	}
	if in.group != nil {
		in.group.Release()
	}
	if in.view != nil {
		in.view.Release()
	}
	if in.texture != nil {
		in.texture.Release()
	}
}

// outputSet is the render target and the buffer it is copied into. It is
// reused until a Load changes the target resolution.
type outputSet struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	staging *wgpu.Buffer
	dims    bufferDims
}

func newOutputSet(device *wgpu.Device, label string, side int) (out *outputSet, err error) {
	out = &outputSet{dims: newBufferDims(side, side)}
	defer func() {
		if err != nil {
			out.release()
			out = nil
		}
	}()

	out.texture, err = device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label + " output",
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
		Dimension:     wgpu.TextureDimension2D,
		Size:          out.dims.extent(),
		Format:        textureFormat,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return out, fmt.Errorf("webgpu: create output texture: %w", err)
	}
	if out.view, err = out.texture.CreateView(nil); err != nil {
		return out, fmt.Errorf("webgpu: create output view: %w", err)
	}
	out.staging, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " staging",
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  out.dims.size(),
	})
	if err != nil {
		return out, fmt.Errorf("webgpu: create staging buffer: %w", err)
	}
	return out, nil
}

func (out *outputSet) release() {
	if out == nil {
		return
	}
	if out.staging != nil {
		out.staging.Release()
	}
	if out.view != nil {
		out.view.Release()
	}
	if out.texture != nil {
		out.texture.Release()
	}
}
