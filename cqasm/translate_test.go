//go:build unit
// +build unit

package cqasm

import (
	"math"
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/stretchr/testify/assert"

	"github.com/qinspire-team/qinspire-engine/sdkapp/core"
	"github.com/qinspire-team/qinspire-engine/sdkapp/measurement"
)

func identityMeasurements(t *testing.T, qubitCount, clbitCount int) *measurement.Measurements {
	t.Helper()
	m, err := measurement.FromInstructions(nil, qubitCount, clbitCount)
	assert.Nil(t, err)
	return m
}

func condRef(register int) *int {
	return &register
}

func TestTranslateSimpleGates(t *testing.T) {
	instructions := []core.Instruction{
		{Name: "h", Qubits: []int{0}},
		{Name: "cx", Qubits: []int{0, 1}},
		{Name: "sdg", Qubits: []int{1}},
		{Name: "rx", Qubits: []int{0}, Params: []float64{math.Pi / 2}},
		{Name: "ccx", Qubits: []int{0, 1, 2}},
		{Name: "swap", Qubits: []int{1, 2}},
		{Name: "barrier", Qubits: []int{0, 1, 2}},
		{Name: "reset", Qubits: []int{2}},
		{Name: "delay", Qubits: []int{0}, Params: []float64{3.7}},
		{Name: "measure", Qubits: []int{0}, Memory: []int{0}},
	}
	translator := NewTranslator(nil, identityMeasurements(t, 3, 3), false)
	got, err := translator.Translate(instructions, nil)
	assert.Nil(t, err)
	assert.Equal(t, heredoc.Doc(`
		version 1.0
		qubits 3
		H q[0]
		CNOT q[0], q[1]
		Sdag q[1]
		Rx q[0], 1.570796
		Toffoli q[0], q[1], q[2]
		SWAP q[1], q[2]
		barrier q[0,1,2]
		prep_z q[2]
		wait q[0], 3
		measure q[0]
	`), got)
}

func TestTranslateIsDeterministic(t *testing.T) {
	instructions := []core.Instruction{
		{Name: "h", Qubits: []int{0}},
		{Name: "x", Qubits: []int{1}, Conditional: condRef(0)},
	}
	conditions := []core.Condition{
		{Mask: "0x1", Value: "0x1", Relation: "==", Register: 0},
	}
	translator := NewTranslator(nil, identityMeasurements(t, 2, 2), false)
	first, err := translator.Translate(instructions, conditions)
	assert.Nil(t, err)
	second, err := translator.Translate(instructions, conditions)
	assert.Nil(t, err)
	assert.Equal(t, first, second)
}

func TestTranslateMeasureUnderFullStateProjection(t *testing.T) {
	instructions := []core.Instruction{
		{Name: "h", Qubits: []int{0}},
		{Name: "measure", Qubits: []int{0}, Memory: []int{0}},
	}
	measurements, err := measurement.FromInstructions(instructions, 1, 1)
	assert.Nil(t, err)
	translator := NewTranslator(nil, measurements, true)
	got, err := translator.Translate(instructions, nil)
	assert.Nil(t, err)
	assert.Equal(t, "version 1.0\nqubits 1\nH q[0]\n", got)
}

func TestTranslateU3Decomposition(t *testing.T) {
	tests := []struct {
		name        string
		instruction core.Instruction
		want        string
	}{
		{
			name:        "all angles nonzero",
			instruction: core.Instruction{Name: "u", Qubits: []int{0}, Params: []float64{1, 2, 3}},
			want:        "Rz q[0], 3.000000\nRy q[0], 1.000000\nRz q[0], 2.000000\n",
		},
		{
			name:        "zero angles are omitted",
			instruction: core.Instruction{Name: "u3", Qubits: []int{1}, Params: []float64{math.Pi / 2, 0, 0}},
			want:        "Ry q[1], 1.570796\n",
		},
		{
			name:        "all angles zero emits nothing",
			instruction: core.Instruction{Name: "u", Qubits: []int{0}, Params: []float64{0, 0, 0}},
			want:        "",
		},
		{
			name:        "u1 is a pure phase rotation",
			instruction: core.Instruction{Name: "u1", Qubits: []int{0}, Params: []float64{0.5}},
			want:        "Rz q[0], 0.500000\n",
		},
		{
			name:        "p is an alias of u1",
			instruction: core.Instruction{Name: "p", Qubits: []int{2}, Params: []float64{-0.25}},
			want:        "Rz q[2], -0.250000\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			translator := NewTranslator(nil, identityMeasurements(t, 3, 3), false)
			got, err := translator.Translate([]core.Instruction{tt.instruction}, nil)
			assert.Nil(t, err)
			assert.Equal(t, "version 1.0\nqubits 3\n"+tt.want, got)
		})
	}
}

func TestTranslateU1ParametersUntouched(t *testing.T) {
	instruction := core.Instruction{Name: "u1", Qubits: []int{0}, Params: []float64{0.5}}
	translator := NewTranslator(nil, identityMeasurements(t, 1, 1), false)
	_, err := translator.Translate([]core.Instruction{instruction}, nil)
	assert.Nil(t, err)
	assert.Equal(t, []float64{0.5}, instruction.Params)
}

func TestTranslateConditional(t *testing.T) {
	tests := []struct {
		name        string
		instruction core.Instruction
		condition   core.Condition
		want        string
	}{
		{
			name:        "value matches the whole mask",
			instruction: core.Instruction{Name: "x", Qubits: []int{0}, Conditional: condRef(0)},
			condition:   core.Condition{Mask: "0x3", Value: "0x3", Relation: "==", Register: 0},
			want:        "C-X b[0,1], q[0]\n",
		},
		{
			name:        "zero value-bits are inverted around the gate",
			instruction: core.Instruction{Name: "rz", Qubits: []int{0}, Params: []float64{math.Pi / 2}, Conditional: condRef(0)},
			condition:   core.Condition{Mask: "0xf", Value: "0x3", Relation: "==", Register: 0},
			want:        "not b[2,3]\nC-Rz b[0,1,2,3], q[0], 1.570796\nnot b[2,3]\n",
		},
		{
			name:        "single zero bit",
			instruction: core.Instruction{Name: "x", Qubits: []int{1}, Conditional: condRef(0)},
			condition:   core.Condition{Mask: "0xf", Value: "0xe", Relation: "==", Register: 0},
			want:        "not b[0]\nC-X b[0,1,2,3], q[1]\nnot b[0]\n",
		},
		{
			name:        "mask offset from bit zero",
			instruction: core.Instruction{Name: "h", Qubits: []int{0}, Conditional: condRef(0)},
			condition:   core.Condition{Mask: "0xc", Value: "0x4", Relation: "==", Register: 0},
			want:        "not b[3]\nC-H b[2,3], q[0]\nnot b[3]\n",
		},
		{
			name:        "two-qubit gate",
			instruction: core.Instruction{Name: "cx", Qubits: []int{0, 1}, Conditional: condRef(0)},
			condition:   core.Condition{Mask: "0x1", Value: "0x1", Relation: "==", Register: 0},
			want:        "C-CNOT b[0], q[0], q[1]\n",
		},
		{
			name:        "conditional barrier emits nothing",
			instruction: core.Instruction{Name: "barrier", Qubits: []int{0, 1}, Conditional: condRef(0)},
			condition:   core.Condition{Mask: "0x3", Value: "0x1", Relation: "==", Register: 0},
			want:        "",
		},
		{
			name:        "empty gate body suppresses the inversion lines",
			instruction: core.Instruction{Name: "p", Qubits: []int{0}, Params: []float64{0}, Conditional: condRef(0)},
			condition:   core.Condition{Mask: "0xf", Value: "0x3", Relation: "==", Register: 0},
			want:        "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			translator := NewTranslator(nil, identityMeasurements(t, 4, 4), false)
			got, err := translator.Translate([]core.Instruction{tt.instruction}, []core.Condition{tt.condition})
			assert.Nil(t, err)
			assert.Equal(t, "version 1.0\nqubits 4\n"+tt.want, got)
		})
	}
}

func TestTranslateConditionalMappedBits(t *testing.T) {
	// classical bit 0 was filled from qubit 1, so the bit control must
	// reference that qubit
	instructions := []core.Instruction{
		{Name: "measure", Qubits: []int{1}, Memory: []int{0}},
		{Name: "measure", Qubits: []int{0}, Memory: []int{1}},
		{Name: "x", Qubits: []int{0}, Conditional: condRef(0)},
	}
	conditions := []core.Condition{
		{Mask: "0x1", Value: "0x0", Relation: "==", Register: 0},
	}
	measurements, err := measurement.FromInstructions(instructions, 2, 2)
	assert.Nil(t, err)
	translator := NewTranslator(nil, measurements, false)
	got, err := translator.Translate(instructions, conditions)
	assert.Nil(t, err)
	assert.Equal(t, heredoc.Doc(`
		version 1.0
		qubits 2
		measure q[1]
		measure q[0]
		not b[1]
		C-X b[1], q[0]
		not b[1]
	`), got)
}

func TestTranslateErrors(t *testing.T) {
	tests := []struct {
		name         string
		basisGates   []string
		instructions []core.Instruction
		conditions   []core.Condition
		wantError    error
	}{
		{
			name:         "unsupported gate name",
			instructions: []core.Instruction{{Name: "foo", Qubits: []int{0}}},
			wantError:    ErrUnsupportedGate,
		},
		{
			name:         "u2 has no lowering",
			instructions: []core.Instruction{{Name: "u2", Qubits: []int{0}, Params: []float64{1, 2}}},
			wantError:    ErrUnsupportedGate,
		},
		{
			name:         "gate outside the basis",
			basisGates:   []string{"x"},
			instructions: []core.Instruction{{Name: "y", Qubits: []int{0}}},
			wantError:    ErrUnsupportedGate,
		},
		{
			name:       "conditional gate outside the basis",
			basisGates: []string{"x"},
			instructions: []core.Instruction{
				{Name: "y", Qubits: []int{0}, Conditional: condRef(0)},
			},
			conditions: []core.Condition{{Mask: "0x1", Value: "0x1", Relation: "==", Register: 0}},
			wantError:  ErrUnsupportedConditionalGate,
		},
		{
			name: "condition declaration missing",
			instructions: []core.Instruction{
				{Name: "x", Qubits: []int{0}, Conditional: condRef(7)},
			},
			wantError: ErrConditionNotFound,
		},
		{
			name: "unsupported relation",
			instructions: []core.Instruction{
				{Name: "x", Qubits: []int{0}, Conditional: condRef(0)},
			},
			conditions: []core.Condition{{Mask: "0x1", Value: "0x1", Relation: "<", Register: 0}},
			wantError:  ErrUnsupportedRelation,
		},
		{
			name: "empty mask",
			instructions: []core.Instruction{
				{Name: "x", Qubits: []int{0}, Conditional: condRef(0)},
			},
			conditions: []core.Condition{{Mask: "0x0", Value: "0x0", Relation: "==", Register: 0}},
			wantError:  ErrEmptyConditionMask,
		},
		{
			name: "non-contiguous mask",
			instructions: []core.Instruction{
				{Name: "x", Qubits: []int{0}, Conditional: condRef(0)},
			},
			conditions: []core.Condition{{Mask: "0x5", Value: "0x5", Relation: "==", Register: 0}},
			wantError:  ErrNonContiguousMask,
		},
		{
			name: "conditional reset",
			instructions: []core.Instruction{
				{Name: "reset", Qubits: []int{0}, Conditional: condRef(0)},
			},
			conditions: []core.Condition{{Mask: "0x1", Value: "0x1", Relation: "==", Register: 0}},
			wantError:  ErrUnsupportedConditionalGate,
		},
		{
			name: "conditional measure",
			instructions: []core.Instruction{
				{Name: "measure", Qubits: []int{0}, Memory: []int{0}, Conditional: condRef(0)},
			},
			conditions: []core.Condition{{Mask: "0x1", Value: "0x1", Relation: "==", Register: 0}},
			wantError:  ErrUnsupportedConditionalGate,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			translator := NewTranslator(tt.basisGates, identityMeasurements(t, 2, 2), false)
			got, gotError := translator.Translate(tt.instructions, tt.conditions)
			assert.ErrorIs(t, gotError, tt.wantError)
			assert.Equal(t, "", got)
		})
	}
}

func TestTranslateBadConditionField(t *testing.T) {
	instructions := []core.Instruction{
		{Name: "x", Qubits: []int{0}, Conditional: condRef(0)},
	}
	translator := NewTranslator(nil, identityMeasurements(t, 2, 2), false)

	_, err := translator.Translate(instructions, []core.Condition{
		{Mask: "zz", Value: "0x1", Relation: "==", Register: 0},
	})
	assert.Error(t, err)

	_, err = translator.Translate(instructions, []core.Condition{
		{Mask: "0x1", Value: "zz", Relation: "==", Register: 0},
	})
	assert.Error(t, err)
}

func TestTranslateAmbiguousConditionBit(t *testing.T) {
	// qubit 1 is measured into classical bit 0, so a condition on classical
	// bit 1 has no source qubit
	instructions := []core.Instruction{
		{Name: "measure", Qubits: []int{1}, Memory: []int{0}},
		{Name: "x", Qubits: []int{0}, Conditional: condRef(0)},
	}
	conditions := []core.Condition{
		{Mask: "0x2", Value: "0x2", Relation: "==", Register: 0},
	}
	measurements, err := measurement.FromInstructions(instructions, 2, 2)
	assert.Nil(t, err)
	translator := NewTranslator(nil, measurements, true)
	_, err = translator.Translate(instructions, conditions)
	assert.ErrorIs(t, err, measurement.ErrAmbiguousConditionSource)
}

func TestTranslateConditionalClbitLimit(t *testing.T) {
	instructions := []core.Instruction{
		{Name: "x", Qubits: []int{0}, Conditional: condRef(0)},
	}
	conditions := []core.Condition{
		{Mask: "0x1", Value: "0x1", Relation: "==", Register: 0},
	}

	translator := NewTranslator(nil, identityMeasurements(t, 2, 3), true)
	_, err := translator.Translate(instructions, conditions)
	assert.Error(t, err)

	// without conditionals the wider classical register is fine
	translator = NewTranslator(nil, identityMeasurements(t, 2, 3), true)
	_, err = translator.Translate([]core.Instruction{{Name: "x", Qubits: []int{0}}}, nil)
	assert.Nil(t, err)
}

func TestTranslateNonExclusiveMeasurements(t *testing.T) {
	instructions := []core.Instruction{
		{Name: "measure", Qubits: []int{0}, Memory: []int{0}},
		{Name: "measure", Qubits: []int{0}, Memory: []int{1}},
	}
	measurements, err := measurement.FromInstructions(instructions, 2, 2)
	assert.Nil(t, err)

	translator := NewTranslator(nil, measurements, false)
	_, err = translator.Translate(instructions, nil)
	assert.ErrorIs(t, err, measurement.ErrUnsupportedMeasurement)

	// full-state projection reads every qubit directly and skips the check
	translator = NewTranslator(nil, measurements, true)
	_, err = translator.Translate(instructions, nil)
	assert.Nil(t, err)
}
