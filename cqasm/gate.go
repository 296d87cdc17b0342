package cqasm

import "strings"

// Gate is the closed set of front-end instruction names the translator
// understands. Names are resolved once with GateFromName; everything else is
// GateUnsupported so the emission switch stays exhaustive.
type Gate int

const (
	GateUnsupported Gate = iota
	GateID
	GateX
	GateY
	GateZ
	GateH
	GateS
	GateSdg
	GateT
	GateTdg
	GateRx
	GateRy
	GateRz
	GateCX
	GateCZ
	GateSwap
	GateCCX
	GateU
	GateU1
	GateU2
	GateU3
	GateP
	GateReset
	GateDelay
	GateBarrier
	GateMeasure
)

func GateFromName(name string) Gate {
	switch strings.ToLower(name) {
	case "id":
		return GateID
	case "x":
		return GateX
	case "y":
		return GateY
	case "z":
		return GateZ
	case "h":
		return GateH
	case "s":
		return GateS
	case "sdg":
		return GateSdg
	case "t":
		return GateT
	case "tdg":
		return GateTdg
	case "rx":
		return GateRx
	case "ry":
		return GateRy
	case "rz":
		return GateRz
	case "cx":
		return GateCX
	case "cz":
		return GateCZ
	case "swap":
		return GateSwap
	case "ccx":
		return GateCCX
	case "u":
		return GateU
	case "u1":
		return GateU1
	case "u2":
		return GateU2
	case "u3":
		return GateU3
	case "p":
		return GateP
	case "reset":
		return GateReset
	case "delay":
		return GateDelay
	case "barrier":
		return GateBarrier
	case "measure":
		return GateMeasure
	default:
		return GateUnsupported
	}
}

// Opcode returns the cQASM opcode for gates with a fixed one-line lowering.
func (g Gate) Opcode() string {
	switch g {
	case GateID:
		return "I"
	case GateX:
		return "X"
	case GateY:
		return "Y"
	case GateZ:
		return "Z"
	case GateH:
		return "H"
	case GateS:
		return "S"
	case GateSdg:
		return "Sdag"
	case GateT:
		return "T"
	case GateTdg:
		return "Tdag"
	case GateRx:
		return "Rx"
	case GateRy:
		return "Ry"
	case GateRz:
		return "Rz"
	case GateCX:
		return "CNOT"
	case GateCZ:
		return "CZ"
	case GateSwap:
		return "SWAP"
	case GateCCX:
		return "Toffoli"
	default:
		return ""
	}
}
