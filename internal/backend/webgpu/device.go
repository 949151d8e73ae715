package webgpu

import (
	"fmt"
	"strings"
	"sync"

	"github.com/born-ml/upscale/internal/upscaler"
	"github.com/cogentcore/webgpu/wgpu"
)

// shared is the process-wide instance every backend requests adapters
// from. It is never released: on GLES/EGL releasing an instance tears down
// the display used by the devices of every other live backend.
var shared struct {
	once     sync.Once
	instance *wgpu.Instance
	err      error
}

// sharedInstance creates the process-wide instance on first use.
// A missing native library panics inside the binding; it is recovered and
// reported as ErrDeviceUnavailable, and every later call sees that error.
func sharedInstance() (*wgpu.Instance, error) {
	shared.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				shared.instance = nil
				shared.err = fmt.Errorf("webgpu: %w: native library not available: %v", upscaler.ErrDeviceUnavailable, r)
			}
		}()
		shared.instance = wgpu.CreateInstance(nil)
		if shared.instance == nil {
			shared.err = fmt.Errorf("webgpu: %w: no instance", upscaler.ErrDeviceUnavailable)
		}
	})
	return shared.instance, shared.err
}

// gpu holds the objects that live as long as the backend.
type gpu struct {
	adapter *wgpu.Adapter
	device  *wgpu.Device
	queue   *wgpu.Queue
	info    wgpu.AdapterInfo
}

// acquire requests an adapter, a device and its queue from the shared
// instance. Panics inside the binding are reported as ErrDeviceUnavailable.
func acquire(power wgpu.PowerPreference) (g *gpu, err error) {
	defer func() {
		if r := recover(); r != nil {
			g = nil
			err = fmt.Errorf("webgpu: %w: %v", upscaler.ErrDeviceUnavailable, r)
		}
	}()

	instance, err := sharedInstance()
	if err != nil {
		return nil, err
	}
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: power,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: %w: request adapter: %v", upscaler.ErrDeviceUnavailable, err)
	}

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		return nil, fmt.Errorf("webgpu: %w: request device: %v", upscaler.ErrDeviceUnavailable, err)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		return nil, fmt.Errorf("webgpu: %w: device has no queue", upscaler.ErrDeviceUnavailable)
	}

	return &gpu{
		adapter: adapter,
		device:  device,
		queue:   queue,
		info:    adapter.GetInfo(),
	}, nil
}

// name formats the adapter for logs, e.g. "NVIDIA GeForce RTX 4070 (nvidia)".
func (g *gpu) name() string {
	name := strings.TrimSpace(g.info.Name)
	if name == "" {
		name = "unknown adapter"
	}
	if vendor := strings.TrimSpace(g.info.VendorName); vendor != "" {
		return name + " (" + vendor + ")"
	}
	return name
}

func (g *gpu) release() {
	g.queue.Release()
	g.device.Release()
	g.adapter.Release()
}

// IsAvailable reports whether a WebGPU device can be acquired on this
// system. It is safe to call while other backends are alive.
func IsAvailable() bool {
	g, err := acquire(wgpu.PowerPreferenceHighPerformance)
	if err != nil {
		return false
	}
	g.release()
	return true
}
