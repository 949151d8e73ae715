package webgpu

import (
	"fmt"

	"github.com/born-ml/upscale/internal/logging"
)

type state int

const (
	stateUninitialized state = iota
	stateReady
	stateRendering
	stateReading
	stateReleased
)

func (s state) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateReady:
		return "ready"
	case stateRendering:
		return "rendering"
	case stateReading:
		return "reading"
	case stateReleased:
		return "released"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (b *Backend) setState(s state) {
	if b.state == s {
		return
	}
	logging.L().Debug("webgpu state", "label", b.label, "from", b.state.String(), "to", s.String())
	b.state = s
}
