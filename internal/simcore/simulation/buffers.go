// Package simulation is the driver of spec §4.14: it owns every table
// config.Resolve builds, runs the strictly-ordered per-tick pipeline of
// spec §5, and exposes the six shared buffers external controllers read
// and write.
package simulation

import "mettagrid/internal/simcore/simerrors"

// Buffers is the caller's memory, per spec §3 "Ownership": the simulation
// writes observations/rewards/terminals/truncations each step and reads
// actions/vibe_actions once per step; masks is advisory and never written
// by the simulation itself. The caller owns allocation and must not resize
// any slice while the simulation holds it (spec §5's shared-resource
// policy); New's bind step checks lengths only once, at construction.
type Buffers struct {
	Observations [][]byte // [N][NumTokens*3], row-major (loc, feature, value) triplets
	Actions      []int32  // [N], caller-write before Step
	VibeActions  []int32  // [N], caller-write before Step
	Rewards      []float32
	Terminals    []bool
	Truncations  []bool
	Masks        []bool
}

// NewBuffers allocates a zero-valued Buffers of the right shape for
// numAgents agents and numTokens observation tokens per agent, for callers
// (the control API, tests) that don't already own buffer memory to bind.
func NewBuffers(numAgents, numTokens int) *Buffers {
	obs := make([][]byte, numAgents)
	for i := range obs {
		obs[i] = make([]byte, numTokens*3)
	}
	return &Buffers{
		Observations: obs,
		Actions:      make([]int32, numAgents),
		VibeActions:  make([]int32, numAgents),
		Rewards:      make([]float32, numAgents),
		Terminals:    make([]bool, numAgents),
		Truncations:  make([]bool, numAgents),
		Masks:        make([]bool, numAgents),
	}
}

// bind validates buf's shapes against the simulation's fixed N/NumTokens,
// per spec §7's BufferMismatch kind (fatal at bind time).
func (b *Buffers) bind(numAgents, numTokens int) error {
	check := func(name string, got int) error {
		if got != numAgents {
			return &simerrors.BufferMismatchError{Buffer: name, Expected: numAgents, Got: got}
		}
		return nil
	}
	if err := check("observations", len(b.Observations)); err != nil {
		return err
	}
	for _, row := range b.Observations {
		if len(row) != numTokens*3 {
			return &simerrors.BufferMismatchError{Buffer: "observations[i]", Expected: numTokens * 3, Got: len(row)}
		}
	}
	if err := check("actions", len(b.Actions)); err != nil {
		return err
	}
	if err := check("vibe_actions", len(b.VibeActions)); err != nil {
		return err
	}
	if err := check("rewards", len(b.Rewards)); err != nil {
		return err
	}
	if err := check("terminals", len(b.Terminals)); err != nil {
		return err
	}
	if err := check("truncations", len(b.Truncations)); err != nil {
		return err
	}
	if err := check("masks", len(b.Masks)); err != nil {
		return err
	}
	return nil
}
