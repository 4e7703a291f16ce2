package iblshadows

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfiler(t *testing.T) {
	p := NewProfiler()
	p.BeginScope("voxelize")
	p.EndScope("voxelize")
	p.BeginScope("compose")
	p.EndScope("compose")
	p.BeginScope("voxelize")
	p.EndScope("voxelize")
	p.SetCount("resolved", 6)
	p.SetCount("occupied", 120)

	_, ok := p.Scope("voxelize")
	assert.True(t, ok)
	_, ok = p.Scope("debug")
	assert.False(t, ok)
	p.EndScope("debug")

	out := p.String()
	assert.Less(t, strings.Index(out, "voxelize"), strings.Index(out, "compose"), "first use order")
	assert.Less(t, strings.Index(out, "occupied"), strings.Index(out, "resolved"), "counts sorted")
	assert.Equal(t, 1, strings.Count(out, "voxelize"))

	p.Reset()
	d, _ := p.Scope("compose")
	assert.Zero(t, d)
	assert.Equal(t, 6, p.Count("resolved"))
}

func TestProfiler_Nil(t *testing.T) {
	var p *Profiler
	assert.NotPanics(t, func() {
		p.BeginScope("x")
		p.EndScope("x")
		p.SetCount("x", 1)
		p.Reset()
	})
	assert.Zero(t, p.Count("x"))
	assert.Empty(t, p.String())
}
