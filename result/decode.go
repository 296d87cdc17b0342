package result

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/qinspire-team/qinspire-engine/sdkapp/core"
	"github.com/qinspire-team/qinspire-engine/sdkapp/measurement"
)

// ErrEmptyResult is returned when the backend delivered no measurement data
// for a block. The wrapped message carries the backend's raw_text verbatim
// so a backend failure can be told apart from a decoder bug.
var ErrEmptyResult = errors.New("result contains no measurement data")

// RandFunc yields a uniform value in [0,1). The decoder takes it as an
// injectable source so the single-shot path is seedable in tests.
type RandFunc func() float64

// Decoder reconstructs classical-register results from a backend payload
// using the measurement mapping serialized alongside the job.
type Decoder struct {
	measurements *measurement.Measurements
	rand         RandFunc
}

// NewDecoder builds a decoder for one measurement mapping. A nil rnd falls
// back to a time-seeded generator.
func NewDecoder(m *measurement.Measurements, rnd RandFunc) *Decoder {
	if rnd == nil {
		r := rand.New(rand.NewSource(time.Now().UnixNano()))
		rnd = r.Float64
	}
	return &Decoder{
		measurements: m,
		rand:         rnd,
	}
}

// Decode reconstructs per-shot and aggregate results for every measurement
// block of the payload. Per-shot raw readings select the multi-shot path;
// their absence is the backend's convention for exactly one requested shot,
// decoded by sampling the probability histogram. The same uniform draw is
// shared by every block of one call so correlated blocks stay consistent.
func (d *Decoder) Decode(raw *core.RawResult) (*core.RunResult, error) {
	if raw.BlockCount() == 0 {
		return nil, errors.Wrapf(ErrEmptyResult, "raw_text: %s", raw.RawText)
	}
	multiShot := len(raw.RawData) > 0
	var draw float64
	if !multiShot {
		draw = d.rand()
	}
	results := make([]*core.ExperimentResult, 0, raw.BlockCount())
	for b, hist := range raw.Histograms {
		if len(hist) == 0 {
			return nil, errors.Wrapf(ErrEmptyResult, "block %d, raw_text: %s", b, raw.RawText)
		}
		var (
			counts core.Counts
			memory core.Memory
			err    error
		)
		if multiShot {
			counts, memory, err = d.decodeRawBlock(raw, b)
		} else {
			counts, memory, err = d.decodeSingleShot(hist, draw)
		}
		if err != nil {
			return nil, err
		}
		probabilities, err := d.convertProbabilities(hist)
		if err != nil {
			return nil, err
		}
		results = append(results, &core.ExperimentResult{
			Counts:        counts,
			Memory:        memory,
			Probabilities: probabilities,
			Shots:         raw.Shots,
		})
	}
	zap.L().Debug(fmt.Sprintf("decoded %d measurement block(s) of %d shot(s)", len(results), raw.Shots))
	return &core.RunResult{Results: results, Shots: raw.Shots}, nil
}

// decodeRawBlock packs the per-shot qubit readings of one block into
// classical values. A nil reading means the qubit was not measured at that
// point and contributes 0 without invalidating the shot.
func (d *Decoder) decodeRawBlock(raw *core.RawResult, block int) (core.Counts, core.Memory, error) {
	if block >= len(raw.RawData) || len(raw.RawData[block]) == 0 {
		return nil, nil, errors.Wrapf(ErrEmptyResult, "no raw shots for block %d, raw_text: %s", block, raw.RawText)
	}
	counts := make(core.Counts)
	memory := make(core.Memory, 0, len(raw.RawData[block]))
	for _, readings := range raw.RawData[block] {
		var state uint64
		for i, reading := range readings {
			if i >= raw.QubitCount {
				break
			}
			if reading != nil && *reading == 1 {
				state |= 1 << uint(i)
			}
		}
		hex, err := d.measurements.QubitStateToClassicalHex(state)
		if err != nil {
			return nil, nil, err
		}
		counts[hex]++
		memory = append(memory, hex)
	}
	return counts, memory, nil
}

// decodeSingleShot picks one representative outcome from the probability
// histogram, reproducing the backend's own sampling for a single requested
// shot: the first entry whose cumulative probability exceeds the draw wins.
func (d *Decoder) decodeSingleShot(hist core.Histogram, draw float64) (core.Counts, core.Memory, error) {
	chosen := hist[len(hist)-1]
	sum := 0.0
	for _, entry := range hist {
		sum += entry.Probability
		if sum > draw {
			chosen = entry
			break
		}
	}
	hex, err := d.stateToClassicalHex(chosen.State)
	if err != nil {
		return nil, nil, err
	}
	return core.Counts{hex: 1}, core.Memory{hex}, nil
}

// convertProbabilities re-keys the backend histogram into the classical
// basis. Distinct raw states mapping onto one classical value have their
// probabilities summed.
func (d *Decoder) convertProbabilities(hist core.Histogram) (core.Probabilities, error) {
	probabilities := make(core.Probabilities)
	for _, entry := range hist {
		hex, err := d.stateToClassicalHex(entry.State)
		if err != nil {
			return nil, err
		}
		probabilities[hex] += entry.Probability
	}
	return probabilities, nil
}

func (d *Decoder) stateToClassicalHex(state string) (string, error) {
	rawState, err := strconv.ParseUint(state, 10, 64)
	if err != nil {
		return "", fmt.Errorf("failed to parse raw state %q: %w", state, err)
	}
	return d.measurements.QubitStateToClassicalHex(rawState)
}
