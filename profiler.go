package iblshadows

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/slices"
)

// Profiler records the last duration of named CPU scopes and named counts.
// A nil Profiler records nothing.
type Profiler struct {
	scopes map[string]time.Duration
	starts map[string]time.Time
	counts map[string]int
	order  []string
}

func NewProfiler() *Profiler {
	return &Profiler{
		scopes: make(map[string]time.Duration),
		starts: make(map[string]time.Time),
		counts: make(map[string]int),
	}
}

func (p *Profiler) BeginScope(name string) {
	if p == nil {
		return
	}
	p.starts[name] = time.Now()
	if !slices.Contains(p.order, name) {
		p.order = append(p.order, name)
	}
}

func (p *Profiler) EndScope(name string) {
	if p == nil {
		return
	}
	if start, ok := p.starts[name]; ok {
		p.scopes[name] = time.Since(start)
		delete(p.starts, name)
	}
}

func (p *Profiler) SetCount(name string, count int) {
	if p == nil {
		return
	}
	p.counts[name] = count
}

// Scope returns the last recorded duration of name.
func (p *Profiler) Scope(name string) (time.Duration, bool) {
	if p == nil {
		return 0, false
	}
	d, ok := p.scopes[name]
	return d, ok
}

func (p *Profiler) Count(name string) int {
	if p == nil {
		return 0
	}
	return p.counts[name]
}

// Reset zeroes the timings and keeps scope order and counts.
func (p *Profiler) Reset() {
	if p == nil {
		return
	}
	for k := range p.scopes {
		p.scopes[k] = 0
	}
}

func (p *Profiler) String() string {
	if p == nil {
		return ""
	}
	var sb strings.Builder

	sb.WriteString("Timings (CPU):\n")
	for _, name := range p.order {
		ms := float64(p.scopes[name].Microseconds()) / 1000.0
		fmt.Fprintf(&sb, "  %-15s: %.2f ms\n", name, ms)
	}

	sb.WriteString("\nStats:\n")
	keys := make([]string, 0, len(p.counts))
	for k := range p.counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %-15s: %d\n", k, p.counts[k])
	}
	return sb.String()
}
