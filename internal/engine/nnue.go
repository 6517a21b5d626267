package engine

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/ABDO10DZ/Hugine/internal/board"
)

// Network dimensions: one input per (piece, square) pair.
const netInputs = 12 * 64

// Clipped-ReLU ceiling and the final output scale to centipawns.
const (
	netReluMax = 127
	netScale   = 64 * 16
)

// NetworkEvaluator is a small learned evaluator: a 768-feature one-hot
// input layer, one hidden layer with clipped ReLU, and a single output
// neuron scaled to centipawns from white's perspective. It recomputes
// the accumulator from scratch on every call, trading speed for a
// stateless, trivially thread-safe evaluator.
type NetworkEvaluator struct {
	hidden       int
	inputWeights []int16 // [netInputs][hidden]
	inputBias    []int16 // [hidden]
	outputWeight []int16 // [hidden]
	outputBias   int32
}

// LoadNetwork reads a network file. Layout, all little-endian:
// 4-byte magic "HGN1", uint32 hidden size, then int16 input weights
// (input-major), int16 hidden biases, int16 output weights, and an
// int32 output bias.
func LoadNetwork(path string) (*NetworkEvaluator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read network: %w", err)
	}
	if len(data) < 8 || string(data[:4]) != "HGN1" {
		return nil, fmt.Errorf("network %s: bad magic", path)
	}
	hidden := int(binary.LittleEndian.Uint32(data[4:8]))
	if hidden <= 0 || hidden > 4096 {
		return nil, fmt.Errorf("network %s: implausible hidden size %d", path, hidden)
	}

	need := 8 + 2*(netInputs*hidden+hidden+hidden) + 4
	if len(data) < need {
		return nil, fmt.Errorf("network %s: truncated, have %d bytes want %d", path, len(data), need)
	}

	off := 8
	readInt16s := func(n int) []int16 {
		out := make([]int16, n)
		for i := range out {
			out[i] = int16(binary.LittleEndian.Uint16(data[off:]))
			off += 2
		}
		return out
	}

	net := &NetworkEvaluator{hidden: hidden}
	net.inputWeights = readInt16s(netInputs * hidden)
	net.inputBias = readInt16s(hidden)
	net.outputWeight = readInt16s(hidden)
	net.outputBias = int32(binary.LittleEndian.Uint32(data[off:]))
	return net, nil
}

// featureIndex maps a piece on a square to its input slot.
func featureIndex(pc board.Piece, sq board.Square) int {
	return int(pc)*64 + int(sq)
}

// Evaluate runs the forward pass. Trivial draws score zero, matching
// the classical evaluator's contract.
func (n *NetworkEvaluator) Evaluate(pos *board.Position) int {
	if pos.HalfMoveClock >= 100 || pos.IsInsufficientMaterial() || pos.IsRepetition(2) {
		return 0
	}

	acc := make([]int32, n.hidden)
	for i := range acc {
		acc[i] = int32(n.inputBias[i])
	}
	for sq := board.A1; sq <= board.H8; sq++ {
		pc := pos.Board[sq]
		if pc == board.NoPiece {
			continue
		}
		col := n.inputWeights[featureIndex(pc, sq)*n.hidden:]
		for i := 0; i < n.hidden; i++ {
			acc[i] += int32(col[i])
		}
	}

	sum := n.outputBias
	for i := 0; i < n.hidden; i++ {
		v := acc[i]
		if v < 0 {
			v = 0
		} else if v > netReluMax {
			v = netReluMax
		}
		sum += v * int32(n.outputWeight[i])
	}

	score := int(sum) * 100 / netScale
	if pos.SideToMove == board.Black {
		score = -score
	}
	return score
}
