// Package shaders stores the full-screen WGSL sources of the shadow passes
// together with the effect layouts and software fragment programs that
// mirror them.
package shaders

import (
	_ "embed"

	"golang.org/x/exp/slices"
)

//go:embed postprocess.wgsl
var PostprocessWGSL string

//go:embed ibl_shadow_compose.wgsl
var ComposeWGSL string

//go:embed ibl_shadow_debug.wgsl
var DebugWGSL string

// Shader store keys.
const (
	Postprocess   = "postprocess"
	ShadowCompose = "iblShadowCompose"
	ShadowDebug   = "iblShadowDebug"
)

// Entry points every fragment and vertex source declares.
const (
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
)

var store = map[string]string{
	Postprocess:   PostprocessWGSL,
	ShadowCompose: ComposeWGSL,
	ShadowDebug:   DebugWGSL,
}

// WGSL returns the source registered under name.
func WGSL(name string) (string, bool) {
	src, ok := store[name]
	return src, ok
}

// Names lists the registered shaders in sorted order.
func Names() []string {
	names := make([]string, 0, len(store))
	for n := range store {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
