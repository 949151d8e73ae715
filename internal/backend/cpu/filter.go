package cpu

import (
	"fmt"
	"strings"

	"github.com/anthonynsimon/bild/transform"
)

// Filter selects the resampling kernel used by the CPU backend.
type Filter int

// Resampling kernels, from cheapest to most expensive.
const (
	Nearest Filter = iota
	Box
	Linear // a.k.a. triangle, bilinear
	Gaussian
	MitchellNetravali
	CatmullRom
	Lanczos
)

var filterNames = map[Filter]string{
	Nearest:           "nearest",
	Box:               "box",
	Linear:            "linear",
	Gaussian:          "gaussian",
	MitchellNetravali: "mitchell",
	CatmullRom:        "catmullrom",
	Lanczos:           "lanczos",
}

// aliases accepted by ParseFilter in addition to the canonical names.
var filterAliases = map[string]Filter{
	"nn":                 Nearest,
	"triangle":           Linear,
	"bilinear":           Linear,
	"bicubic":            CatmullRom,
	"cubic":              CatmullRom,
	"lanczos3":           Lanczos,
	"mitchell-netravali": MitchellNetravali,
}

// String returns the canonical filter name.
func (f Filter) String() string {
	if s, ok := filterNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Filter(%d)", int(f))
}

// ParseFilter parses a filter name, case-insensitively.
func ParseFilter(name string) (Filter, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for f, s := range filterNames {
		if s == n {
			return f, nil
		}
	}
	if f, ok := filterAliases[n]; ok {
		return f, nil
	}
	return 0, fmt.Errorf("cpu: unknown filter %q", name)
}

// kernel returns the bild resampling filter for f.
func (f Filter) kernel() (transform.ResampleFilter, error) {
	switch f {
	case Nearest:
		return transform.NearestNeighbor, nil
	case Box:
		return transform.Box, nil
	case Linear:
		return transform.Linear, nil
	case Gaussian:
		return transform.Gaussian, nil
	case MitchellNetravali:
		return transform.MitchellNetravali, nil
	case CatmullRom:
		return transform.CatmullRom, nil
	case Lanczos:
		return transform.Lanczos, nil
	default:
		return transform.ResampleFilter{}, fmt.Errorf("cpu: unknown filter %d", int(f))
	}
}
