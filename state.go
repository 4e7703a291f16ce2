package iblshadows

import "fmt"

// Readiness is the outcome of a readiness check.
type Readiness uint8

const (
	ReadinessReady Readiness = iota
	// ReadinessDisabled: the pre-pass could not be enabled at construction.
	ReadinessDisabled
	ReadinessDisposed
	// ReadinessMissingVolume: no voxelization has been uploaded yet.
	ReadinessMissingVolume
	// ReadinessMissingPrePass: the host has no pre-pass renderer this frame.
	ReadinessMissingPrePass
)

func (r Readiness) String() string {
	switch r {
	case ReadinessReady:
		return "ready"
	case ReadinessDisabled:
		return "disabled"
	case ReadinessDisposed:
		return "disposed"
	case ReadinessMissingVolume:
		return "missing volume"
	case ReadinessMissingPrePass:
		return "missing pre-pass"
	}
	return fmt.Sprintf("Readiness(%d)", uint8(r))
}

// State is the lifecycle state of a Renderer.
type State uint8

const (
	StateDisabled State = iota
	StateDirty
	StateClean
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateDirty:
		return "dirty"
	case StateClean:
		return "clean"
	case StateDisposed:
		return "disposed"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}
