package cqasm

import (
	"fmt"

	"github.com/qinspire-team/qinspire-engine/sdkapp/core"
)

// ValidateNoGatesAfterMeasure reports whether any qubit is operated on after
// it was measured. Full-state projection reads the state once at the end of
// the program, so a circuit that fails this check cannot run with it and
// must fall back to explicit measure instructions.
func ValidateNoGatesAfterMeasure(instructions []core.Instruction) error {
	measured := map[int]bool{}
	for _, inst := range instructions {
		for _, q := range inst.Qubits {
			if inst.Name == "measure" {
				measured[q] = true
			} else if measured[q] {
				return fmt.Errorf("operation on qubit %d after measurement", q)
			}
		}
	}
	return nil
}

// AllowsFullStateProjection decides whether a program can use the backend's
// full-state projection mode: no conditional gates and no operations after a
// measurement.
func AllowsFullStateProjection(instructions []core.Instruction) bool {
	for _, inst := range instructions {
		if inst.IsConditional() {
			return false
		}
	}
	return ValidateNoGatesAfterMeasure(instructions) == nil
}
