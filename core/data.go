package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/mohae/deepcopy"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"
)

type Counts map[string]uint32
type Probabilities map[string]float64
type Memory []string

var jsonIter = jsoniter.ConfigCompatibleWithStandardLibrary

func (c Counts) String() string {
	st, err := jsonIter.Marshal(c)
	if err != nil {
		zap.L().Error("Failed to marshal core.Counts")
		return ""
	}
	return string(st)
}

// SortedStates returns the classical-hex keys in ascending numeric order.
// Keys that fail to parse sort lexicographically after the numeric ones.
func (c Counts) SortedStates() []string {
	states := make([]string, 0, len(c))
	for s := range c {
		states = append(states, s)
	}
	sort.Slice(states, func(i, j int) bool {
		vi, erri := parseClassicalHex(states[i])
		vj, errj := parseClassicalHex(states[j])
		if erri != nil || errj != nil {
			if (erri == nil) != (errj == nil) {
				return erri == nil
			}
			return states[i] < states[j]
		}
		return vi < vj
	})
	return states
}

func parseClassicalHex(s string) (uint64, error) {
	return strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"), 16, 64)
}

func (p Probabilities) String() string {
	st, err := jsonIter.Marshal(p)
	if err != nil {
		zap.L().Error("Failed to marshal core.Probabilities")
		return ""
	}
	return string(st)
}

// Instruction is one gate or directive of a source program, as handed over
// by the circuit front end. Instructions are consumed in original order and
// are not modified by this package; use Clone before rewriting parameters.
type Instruction struct {
	Name        string    `json:"name"`
	Qubits      []int     `json:"qubits"`
	Params      []float64 `json:"params,omitempty"`
	Memory      []int     `json:"memory,omitempty"` // classical bits of a measure
	Conditional *int      `json:"conditional,omitempty"`
}

func (i Instruction) IsConditional() bool {
	return i.Conditional != nil
}

func (i Instruction) Clone() Instruction {
	return deepcopy.Copy(i).(Instruction)
}

// Condition is a classical-condition declaration gating one subsequent
// instruction. Mask and Value are hexadecimal strings as delivered by the
// front end. Only the "==" relation is supported.
type Condition struct {
	Mask     string `json:"mask"`
	Value    string `json:"val"`
	Relation string `json:"relation"`
	Register int    `json:"register"`
}

// HistogramEntry is one raw-state/probability pair of a backend histogram.
type HistogramEntry struct {
	State       string
	Probability float64
}

// Histogram keeps the backend's probability entries in the order they were
// delivered. The single-shot decoding path walks this order cumulatively, so
// it must survive a JSON round trip unchanged, which a Go map cannot do.
type Histogram []HistogramEntry

func (h Histogram) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range h {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.State)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(e.Probability)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (h *Histogram) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("histogram is not a JSON object")
	}
	entries := Histogram{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("histogram key is not a string")
		}
		var prob float64
		if err := dec.Decode(&prob); err != nil {
			return fmt.Errorf("histogram value of state %s: %w", key, err)
		}
		entries = append(entries, HistogramEntry{State: key, Probability: prob})
	}
	*h = entries
	return nil
}

// RawResult is the payload returned by the execution backend for one job.
// Exactly one of Histograms/RawData carries the measured shots: RawData is
// empty when a single shot was requested, the backend's convention for the
// degenerate case.
type RawResult struct {
	Histograms []Histogram `json:"histogram"`
	RawData    [][][]*int  `json:"raw_data,omitempty"` // block -> shot -> qubit readings, nil entry = not measured
	QubitCount int         `json:"number_of_qubits"`
	Shots      int         `json:"number_of_shots"`
	RawText    string      `json:"raw_text,omitempty"`
}

func (r *RawResult) BlockCount() int {
	return len(r.Histograms)
}

// ExperimentResult is one measurement block decoded into the
// classical-register basis.
type ExperimentResult struct {
	Counts        Counts        `json:"counts"`
	Memory        Memory        `json:"memory"`
	Probabilities Probabilities `json:"probabilities"`
	Shots         int           `json:"shots"`
}

func (e *ExperimentResult) String() string {
	st, err := jsonIter.Marshal(e)
	if err != nil {
		zap.L().Error("Failed to marshal core.ExperimentResult")
		return ""
	}
	st = pretty.Pretty(st)
	return string(st)
}

// RunResult is the decoded outcome of a whole job, one ExperimentResult per
// measurement block in backend order.
type RunResult struct {
	Results []*ExperimentResult `json:"results"`
	Shots   int                 `json:"shots"`
}

// First returns the primary (block 0) result.
func (r *RunResult) First() *ExperimentResult {
	if len(r.Results) == 0 {
		return nil
	}
	return r.Results[0]
}

func (r *RunResult) String() string {
	st, err := jsonIter.Marshal(r)
	if err != nil {
		zap.L().Error("Failed to marshal core.RunResult")
		return ""
	}
	st = pretty.Pretty(st)
	return string(st)
}
