package measurement

import (
	"fmt"
	"strconv"

	"github.com/go-faster/errors"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/qinspire-team/qinspire-engine/sdkapp/core"
)

var jsonIter = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrInvalidClassicalBitCount = errors.New("invalid classical bit count")
	ErrUnsupportedMeasurement   = errors.New("unsupported measurement")
	ErrAmbiguousConditionSource = errors.New("ambiguous condition source")
)

// Pair couples a qubit index with the classical bit its measurement is
// stored in. It marshals as a two-element array so the user_data attached to
// a submitted job stays compatible with the platform's layout.
type Pair struct {
	Qubit int
	Clbit int
}

func (p Pair) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("[%d,%d]", p.Qubit, p.Clbit)), nil
}

func (p *Pair) UnmarshalJSON(data []byte) error {
	var raw [2]int
	if err := jsonIter.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Qubit = raw[0]
	p.Clbit = raw[1]
	return nil
}

// Measurements registers which qubit is measured into which classical bit
// for one program. Register holds the pairs in declaration order; State
// holds the same pairs re-expressed as positions in the backend's raw state
// strings, which are bit-significance-reversed relative to declaration
// order. A Measurements is built once per program and not modified after.
type Measurements struct {
	QubitCount int    `json:"number_of_qubits"`
	ClbitCount int    `json:"number_of_clbits"`
	Register   []Pair `json:"measurements_reg"`
	State      []Pair `json:"measurements_state"`
}

// FromInstructions scans the instruction list for measure directives and
// builds the register and state views. Without any explicit measurement the
// identity mapping qubit i -> classical bit i is used, the backend's
// full-state convention.
func FromInstructions(instructions []core.Instruction, qubitCount, clbitCount int) (*Measurements, error) {
	m := &Measurements{
		QubitCount: qubitCount,
		ClbitCount: clbitCount,
		Register:   []Pair{},
		State:      []Pair{},
	}
	for _, inst := range instructions {
		if inst.Name != "measure" {
			continue
		}
		if len(inst.Qubits) == 0 || len(inst.Memory) == 0 {
			return nil, fmt.Errorf("measure instruction without qubit or classical bit")
		}
		m.Register = append(m.Register, Pair{Qubit: inst.Qubits[0], Clbit: inst.Memory[0]})
		m.State = append(m.State, Pair{
			Qubit: qubitCount - 1 - inst.Qubits[0],
			Clbit: clbitCount - 1 - inst.Memory[0],
		})
	}
	if len(m.Register) == 0 {
		for i := 0; i < qubitCount; i++ {
			m.Register = append(m.Register, Pair{Qubit: i, Clbit: i})
		}
		m.State = m.Register
	}
	if err := m.validateClbitCount(); err != nil {
		zap.L().Info(err.Error())
		return nil, err
	}
	return m, nil
}

// MaxClbitIndex returns the highest classical bit used as measurement
// storage.
func (m *Measurements) MaxClbitIndex() int {
	max := 0
	for _, p := range m.Register {
		if p.Clbit > max {
			max = p.Clbit
		}
	}
	return max
}

func (m *Measurements) validateClbitCount() error {
	if m.ClbitCount < 1 {
		return errors.Wrapf(ErrInvalidClassicalBitCount, "number of classical bits is %d", m.ClbitCount)
	}
	if m.MaxClbitIndex() >= m.ClbitCount {
		return errors.Wrapf(ErrInvalidClassicalBitCount,
			"number of classical bits (%d) is not sufficient for storing the outcomes", m.ClbitCount)
	}
	return nil
}

// ValidateExclusive applies the strict one-to-one mapping check: no qubit
// measured into two classical bits, no classical bit fed by two qubits.
// The check is deliberately not part of FromInstructions because full-state
// projection runs read out every qubit directly and tolerate fan-in/fan-out
// mappings.
func (m *Measurements) ValidateExclusive() error {
	var merr error
	for i, a := range m.Register {
		for _, b := range m.Register[i+1:] {
			if a.Qubit == b.Qubit && a.Clbit != b.Clbit {
				merr = multierr.Append(merr, errors.Wrapf(ErrUnsupportedMeasurement,
					"measurement of qubit %d to different classical bits", a.Qubit))
			}
			if a.Qubit != b.Qubit && a.Clbit == b.Clbit {
				merr = multierr.Append(merr, errors.Wrapf(ErrUnsupportedMeasurement,
					"measurement of different qubits to the same classical bit %d", a.Clbit))
			}
		}
	}
	return merr
}

// QubitForConditionBit returns the qubit whose measurement feeds the given
// classical bit, for expanding binary-controlled gates. When the bit is not
// an explicit measurement target the same index is assumed, unless that
// qubit is measured elsewhere, which has no valid bit-control encoding.
func (m *Measurements) QubitForConditionBit(clbit int) (int, error) {
	for _, p := range m.Register {
		if p.Clbit == clbit {
			return p.Qubit, nil
		}
	}
	for _, p := range m.Register {
		if p.Qubit == clbit {
			return 0, errors.Wrapf(ErrAmbiguousConditionSource,
				"classical bit %d is not measured and the equivalent qubit %d is measured to classical bit %d",
				clbit, p.Qubit, p.Clbit)
		}
	}
	return clbit, nil
}

// QubitStateToClassicalHex converts a raw qubit-register reading into the
// hexadecimal classical-register value. Each state pair copies one bit of
// the raw state string into the classical string; classical bits without a
// measurement stay 0.
func (m *Measurements) QubitStateToClassicalHex(rawState uint64) (string, error) {
	qubitState := fmt.Sprintf("%0*b", m.QubitCount, rawState)
	classicalState := make([]byte, m.ClbitCount)
	for i := range classicalState {
		classicalState[i] = '0'
	}
	for _, p := range m.State {
		if p.Qubit < 0 || p.Qubit >= len(qubitState) || p.Clbit < 0 || p.Clbit >= len(classicalState) {
			return "", fmt.Errorf("state pair (%d,%d) is out of range for %d qubits and %d classical bits",
				p.Qubit, p.Clbit, m.QubitCount, m.ClbitCount)
		}
		classicalState[p.Clbit] = qubitState[p.Qubit]
	}
	val, err := strconv.ParseUint(string(classicalState), 2, 64)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("0x%x", val), nil
}

// ToUserData serializes the mapping to the JSON blob stored alongside a
// submitted job, so results can be decoded later without replaying
// translation.
func (m *Measurements) ToUserData() (string, error) {
	b, err := jsonIter.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func FromUserData(userData string) (*Measurements, error) {
	m := &Measurements{}
	if err := jsonIter.Unmarshal([]byte(userData), m); err != nil {
		zap.L().Error(fmt.Sprintf("failed to unmarshal measurements from user data/reason:%s", err))
		return nil, err
	}
	return m, nil
}
