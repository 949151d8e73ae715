// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package shaders embeds the WGSL fragment shaders shipped with upscale.
//
// Every shader defines `@fragment fn main`, samples the texture bound at
// @group(0) @binding(0) and may use the sampler at @binding(1).
package shaders

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.wgsl
var files embed.FS

// Shipped shader names.
const (
	Passthrough = "passthrough"
	Nearest     = "nearest"
	CatmullRom  = "catmullrom"
)

// Source returns the WGSL source of the named shader. The ".wgsl" suffix
// is optional.
func Source(name string) (string, error) {
	name = strings.TrimSuffix(name, ".wgsl")
	b, err := files.ReadFile(name + ".wgsl")
	if err != nil {
		return "", fmt.Errorf("shaders: unknown shader %q (have %s)", name, strings.Join(Names(), ", "))
	}
	return string(b), nil
}

// MustSource is like Source but panics on unknown names.
func MustSource(name string) string {
	s, err := Source(name)
	if err != nil {
		panic(err)
	}
	return s
}

// Names lists the shipped shaders in sorted order, without suffix.
func Names() []string {
	entries, err := fs.Glob(files, "*.wgsl")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e, ".wgsl"))
	}
	sort.Strings(names)
	return names
}
