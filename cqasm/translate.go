package cqasm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/qinspire-team/qinspire-engine/sdkapp/core"
	"github.com/qinspire-team/qinspire-engine/sdkapp/measurement"
)

var (
	ErrUnsupportedGate            = errors.New("gate not supported")
	ErrUnsupportedConditionalGate = errors.New("conditional gate not supported")
	ErrConditionNotFound          = errors.New("classical condition not found")
	ErrUnsupportedRelation        = errors.New("conditional relation not supported")
	ErrEmptyConditionMask         = errors.New("conditional statement without a mask")
	ErrNonContiguousMask          = errors.New("condition mask is not a contiguous run of 1-bits")
)

// pendingConditions is the work queue of classical-condition declarations
// not yet consumed by a conditional instruction. It is owned by a single
// Translate call and never shared.
type pendingConditions struct {
	conds []core.Condition
}

func newPendingConditions(conds []core.Condition) *pendingConditions {
	p := &pendingConditions{conds: make([]core.Condition, len(conds))}
	copy(p.conds, conds)
	return p
}

// take removes and returns the pending condition declared for the given
// register index.
func (p *pendingConditions) take(register int) (core.Condition, bool) {
	for i, c := range p.conds {
		if c.Register == register {
			p.conds = append(p.conds[:i], p.conds[i+1:]...)
			return c, true
		}
	}
	return core.Condition{}, false
}

// Translator converts an ordered instruction sequence into cQASM source
// text. One Translator serves one program; concurrent programs each get
// their own.
type Translator struct {
	basisGates          map[string]struct{}
	measurements        *measurement.Measurements
	fullStateProjection bool
}

// NewTranslator builds a translator for one program. An empty basisGates
// list disables the basis-gate restriction. The measure directive is always
// an acceptable name, as the backend configuration never lists it.
func NewTranslator(basisGates []string, m *measurement.Measurements, fullStateProjection bool) *Translator {
	basis := make(map[string]struct{}, len(basisGates))
	for _, g := range basisGates {
		basis[strings.ToLower(g)] = struct{}{}
	}
	if len(basis) > 0 {
		basis["measure"] = struct{}{}
	}
	return &Translator{
		basisGates:          basis,
		measurements:        m,
		fullStateProjection: fullStateProjection,
	}
}

// Translate emits the cQASM program for the instruction sequence. The
// two-line header is fixed by the backend wire format. On any error no
// partial output is returned.
func (t *Translator) Translate(instructions []core.Instruction, conditions []core.Condition) (string, error) {
	if err := t.validateConditionalClbits(instructions); err != nil {
		zap.L().Info(err.Error())
		return "", err
	}
	if !t.fullStateProjection {
		if err := t.measurements.ValidateExclusive(); err != nil {
			zap.L().Info(err.Error())
			return "", err
		}
	}
	pending := newPendingConditions(conditions)
	var sb strings.Builder
	sb.WriteString("version 1.0\n")
	fmt.Fprintf(&sb, "qubits %d\n", t.measurements.QubitCount)
	for i, inst := range instructions {
		if err := t.writeInstruction(&sb, inst, pending); err != nil {
			return "", errors.Wrapf(err, "instruction %d (%s)", i, inst.Name)
		}
	}
	return sb.String(), nil
}

func (t *Translator) validateConditionalClbits(instructions []core.Instruction) error {
	if t.measurements.ClbitCount <= t.measurements.QubitCount {
		return nil
	}
	for _, inst := range instructions {
		if inst.IsConditional() {
			return fmt.Errorf("number of classical bits must be less than or equal to the " +
				"number of qubits when using conditional gate operations")
		}
	}
	return nil
}

func (t *Translator) writeInstruction(sb *strings.Builder, inst core.Instruction, pending *pendingConditions) error {
	if len(t.basisGates) > 0 {
		if _, ok := t.basisGates[strings.ToLower(inst.Name)]; !ok {
			return t.unsupported(inst)
		}
	}
	if inst.IsConditional() {
		return t.writeConditional(sb, inst, pending)
	}
	return t.writeGate(sb, inst, "")
}

func (t *Translator) unsupported(inst core.Instruction) error {
	if inst.IsConditional() {
		return errors.Wrapf(ErrUnsupportedConditionalGate, "c-%s", strings.ToLower(inst.Name))
	}
	return errors.Wrap(ErrUnsupportedGate, strings.ToLower(inst.Name))
}

// maskData decomposes a condition mask into its lowest set bit and the
// length of the run of 1-bits starting there.
func maskData(mask uint64) (lowestBit, length int) {
	if mask == 0 {
		return -1, 0
	}
	for mask&1 == 0 {
		mask >>= 1
		lowestBit++
	}
	for mask&1 == 1 {
		mask >>= 1
		length++
	}
	return lowestBit, length
}

func parseHexField(field string) (uint64, error) {
	s := strings.TrimPrefix(strings.TrimPrefix(field, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}

// writeConditional expands a binary-controlled gate. The backend reads
// bit controls as "all listed bits are 1", so the classical bits whose
// comparison-value bit is 0 are inverted with a not-line before the gate and
// restored with an identical line after it. An empty gate body suppresses
// the whole expansion.
func (t *Translator) writeConditional(sb *strings.Builder, inst core.Instruction, pending *pendingConditions) error {
	cond, ok := pending.take(*inst.Conditional)
	if !ok {
		return errors.Wrapf(ErrConditionNotFound, "register index %d", *inst.Conditional)
	}
	if cond.Relation != "==" {
		return errors.Wrapf(ErrUnsupportedRelation, "relation %s", cond.Relation)
	}
	mask, err := parseHexField(cond.Mask)
	if err != nil {
		return fmt.Errorf("failed to parse condition mask %s: %w", cond.Mask, err)
	}
	if mask == 0 {
		return errors.Wrap(ErrEmptyConditionMask, strings.ToLower(inst.Name))
	}
	lowestBit, maskLength := maskData(mask)
	if mask>>(lowestBit+maskLength) != 0 {
		return errors.Wrapf(ErrNonContiguousMask, "mask %s", cond.Mask)
	}
	val, err := parseHexField(cond.Value)
	if err != nil {
		return fmt.Errorf("failed to parse condition value %s: %w", cond.Value, err)
	}
	maskedVal := mask & val

	// bits of the register that must read 0 for the condition to hold
	negateZeroesLine := ""
	if maskedVal != mask {
		bits := []string{}
		for i := lowestBit; i < lowestBit+maskLength; i++ {
			if maskedVal&(1<<uint(i)) != 0 {
				continue
			}
			q, err := t.measurements.QubitForConditionBit(i)
			if err != nil {
				return err
			}
			bits = append(bits, strconv.Itoa(q))
		}
		negateZeroesLine = "not b[" + strings.Join(bits, ",") + "]\n"
	}

	controlBits := []string{}
	for i := lowestBit; i < lowestBit+maskLength; i++ {
		q, err := t.measurements.QubitForConditionBit(i)
		if err != nil {
			return err
		}
		controlBits = append(controlBits, strconv.Itoa(q))
	}
	binaryControl := "b[" + strings.Join(controlBits, ",") + "], "

	var body strings.Builder
	if err := t.writeGate(&body, inst, binaryControl); err != nil {
		return err
	}
	if body.Len() == 0 {
		return nil
	}
	sb.WriteString(negateZeroesLine)
	sb.WriteString(body.String())
	sb.WriteString(negateZeroesLine)
	return nil
}

// writeGate lowers one instruction. An empty binaryControl means the
// unconditional form; otherwise the opcode gets the C- prefix and the bit
// operand list.
func (t *Translator) writeGate(sb *strings.Builder, inst core.Instruction, binaryControl string) error {
	conditional := binaryControl != ""
	prefix := ""
	if conditional {
		prefix = "C-"
	}
	switch g := GateFromName(inst.Name); g {
	case GateID, GateX, GateY, GateZ, GateH, GateS, GateSdg, GateT, GateTdg:
		fmt.Fprintf(sb, "%s%s %sq[%d]\n", prefix, g.Opcode(), binaryControl, inst.Qubits[0])
	case GateCX, GateCZ, GateSwap:
		fmt.Fprintf(sb, "%s%s %sq[%d], q[%d]\n", prefix, g.Opcode(), binaryControl, inst.Qubits[0], inst.Qubits[1])
	case GateCCX:
		fmt.Fprintf(sb, "%s%s %sq[%d], q[%d], q[%d]\n",
			prefix, g.Opcode(), binaryControl, inst.Qubits[0], inst.Qubits[1], inst.Qubits[2])
	case GateRx, GateRy, GateRz:
		fmt.Fprintf(sb, "%s%s %sq[%d], %.6f\n", prefix, g.Opcode(), binaryControl, inst.Qubits[0], inst.Params[0])
	case GateU, GateU3:
		t.writeU3(sb, inst, binaryControl)
	case GateU1, GateP:
		// u1(lambda) is u3(0, 0, lambda); shift the parameters on a copy so
		// the caller's instruction stays untouched
		shifted := inst.Clone()
		shifted.Params = append([]float64{0, 0}, shifted.Params...)
		t.writeU3(sb, shifted, binaryControl)
	case GateBarrier:
		if conditional {
			return nil
		}
		qubits := make([]string, len(inst.Qubits))
		for i, q := range inst.Qubits {
			qubits[i] = strconv.Itoa(q)
		}
		fmt.Fprintf(sb, "barrier q[%s]\n", strings.Join(qubits, ","))
	case GateReset:
		if conditional {
			return t.unsupported(inst)
		}
		fmt.Fprintf(sb, "prep_z q[%d]\n", inst.Qubits[0])
	case GateDelay:
		if conditional {
			return t.unsupported(inst)
		}
		// cQASM wait takes integer hardware cycles; fractional durations
		// truncate toward zero, unit conversion happened upstream
		fmt.Fprintf(sb, "wait q[%d], %d\n", inst.Qubits[0], int(inst.Params[0]))
	case GateMeasure:
		if conditional {
			return t.unsupported(inst)
		}
		// under full-state projection the backend returns the complete
		// state and no read-out instruction is needed
		if !t.fullStateProjection {
			fmt.Fprintf(sb, "measure q[%d]\n", inst.Qubits[0])
		}
	default:
		return t.unsupported(inst)
	}
	return nil
}

// writeU3 decomposes u3(theta, phi, lambda) into Rz(lambda), Ry(theta),
// Rz(phi). The matrix product is Rz(phi)Ry(theta)Rz(lambda), composed right
// to left, so the physical gate order is the reverse. Zero rotations are
// left out entirely, which may make the whole emission empty.
func (t *Translator) writeU3(sb *strings.Builder, inst core.Instruction, binaryControl string) {
	prefix := ""
	if binaryControl != "" {
		prefix = "C-"
	}
	gates := []string{"Rz", "Ry", "Rz"}
	angles := []float64{inst.Params[2], inst.Params[0], inst.Params[1]}
	for i, gate := range gates {
		if angles[i] == 0 {
			continue
		}
		fmt.Fprintf(sb, "%s%s %sq[%d], %.6f\n", prefix, gate, binaryControl, inst.Qubits[0], angles[i])
	}
}
