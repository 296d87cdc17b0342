package job

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"

	"github.com/qinspire-team/qinspire-engine/sdkapp/core"
	"github.com/qinspire-team/qinspire-engine/sdkapp/cqasm"
	"github.com/qinspire-team/qinspire-engine/sdkapp/measurement"
)

var jsonIter = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrInvalidShots = errors.New("invalid number of shots")

// Program is one circuit as delivered by the front end: the ordered
// instruction list plus the classical-condition declarations referenced by
// conditional instructions.
type Program struct {
	Name         string             `json:"name"`
	Instructions []core.Instruction `json:"instructions"`
	Conditions   []core.Condition   `json:"conditions,omitempty"`
	QubitCount   int                `json:"number_of_qubits"`
	ClbitCount   int                `json:"number_of_clbits"`
}

// Payload is everything the transport layer needs to submit one program:
// the generated cQASM, the shot count, and the serialized measurement
// mapping (user_data) the result decoder reads back later.
type Payload struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	CQASM               string          `json:"qasm"`
	Shots               int             `json:"number_of_shots"`
	UserData            string          `json:"user_data"`
	FullStateProjection bool            `json:"full_state_projection"`
	Created             strfmt.DateTime `json:"created"`
}

func (p *Payload) String() string {
	st, err := jsonIter.Marshal(p)
	if err != nil {
		zap.L().Error("Failed to marshal job.Payload")
		return ""
	}
	st = pretty.Pretty(st)
	return string(st)
}

// Builder assembles submission payloads with one backend configuration.
type Builder struct {
	BasisGates []string
	MaxShots   int
	AllowFSP   bool
}

func NewBuilder(basisGates []string, maxShots int, allowFSP bool) *Builder {
	return &Builder{
		BasisGates: basisGates,
		MaxShots:   maxShots,
		AllowFSP:   allowFSP,
	}
}

// Assemble validates the program, builds its measurement mapping, translates
// it to cQASM, and wraps everything into a submission payload with a fresh
// job id.
func (b *Builder) Assemble(program *Program, shots int) (*Payload, error) {
	if err := b.validateShots(shots); err != nil {
		zap.L().Info(err.Error())
		return nil, err
	}
	measurements, err := measurement.FromInstructions(program.Instructions, program.QubitCount, program.ClbitCount)
	if err != nil {
		return nil, err
	}
	fsp := b.AllowFSP && cqasm.AllowsFullStateProjection(program.Instructions)
	translator := cqasm.NewTranslator(b.BasisGates, measurements, fsp)
	compiled, err := translator.Translate(program.Instructions, program.Conditions)
	if err != nil {
		zap.L().Info(fmt.Sprintf("failed to translate program(%s)/reason:%s", program.Name, err))
		return nil, err
	}
	userData, err := measurements.ToUserData()
	if err != nil {
		return nil, err
	}
	payload := &Payload{
		ID:                  fmt.Sprintf("qi-sdk-job-%s", uuid.New()),
		Name:                program.Name,
		CQASM:               compiled,
		Shots:               shots,
		UserData:            userData,
		FullStateProjection: fsp,
		Created:             strfmt.DateTime(time.Now()),
	}
	zap.L().Debug(fmt.Sprintf("assembled job(%s) for program(%s)/fsp:%t", payload.ID, program.Name, fsp))
	return payload, nil
}

func (b *Builder) validateShots(shots int) error {
	if shots < 1 {
		return errors.Wrapf(ErrInvalidShots, "number_of_shots=%d", shots)
	}
	if b.MaxShots > 0 && shots > b.MaxShots {
		return errors.Wrapf(ErrInvalidShots, "number_of_shots=%d is over the limit(%d)", shots, b.MaxShots)
	}
	return nil
}
