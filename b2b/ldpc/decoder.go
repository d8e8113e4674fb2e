// The ldpc package decodes the forward-error-correction applied to
// PPP-B2b navigation pages.  The code is a non-binary LDPC(162,81) over
// GF(64): the page is 162 six-bit symbols, 81 of which are parity.  The
// decoder runs belief propagation with the Extended Min-Sum
// approximation, keeping only the four most likely field elements per
// message, and stops as soon as the hard decision satisfies every
// parity check.
//
// The usual entry point is DecodeNavBits, which takes the hex rendering
// of a raw navigation page (see the navpage package), strips the parts
// that are not code symbols and returns the decoded message bytes.
package ldpc

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"sort"

	"github.com/goblimey/go-b2b/b2b/utils"
)

// symbolBits is the number of bits per GF(64) symbol.
const symbolBits = 6

// fieldSize is the number of elements of GF(64).
const fieldSize = 64

// numRows is the number of parity checks - the number of rows of H.
const numRows = 81

// NumSymbols is the codeword length in symbols - the number of columns
// of H.
const NumSymbols = 162

// MaxIterations is the iteration cap on the belief propagation loop.
// A page that has not converged by then is reported as unconverged.
const MaxIterations = 15

// nmEMS is the number of field elements kept per message by the
// Extended Min-Sum approximation.
const nmEMS = 4

// errProb is the assumed channel bit error probability, which sets the
// scale of the a-priori log-likelihood ratios.
const errProb = 1e-5

// navHexDropTail is the number of trailing hex characters of a raw
// navigation page that are not part of the codeword.
const navHexDropTail = 2

// navBitsDropHead is the number of leading bits of a raw navigation
// page that are not part of the codeword.
const navBitsDropHead = 12

// ErrUnconverged reports that the belief propagation loop hit the
// iteration cap without satisfying the parity checks.  The hard
// decision at that point is returned alongside it.
var ErrUnconverged = errors.New("LDPC decoding did not converge")

// edge is one non-zero entry of H.
type edge struct {
	row  int
	col  int
	coef uint8
}

// The edge list and the per-row and per-column edge indexes, built once
// at start-up from the H tables.
var (
	edges    []edge
	rowEdges [numRows][]int
	colEdges [NumSymbols][]int
)

func init() {
	for i := 0; i < numRows; i++ {
		for j := range hIdx[i] {
			e := len(edges)
			edges = append(edges, edge{row: i, col: hIdx[i][j], coef: hEle[i][j]})
			rowEdges[i] = append(rowEdges[i], e)
			colEdges[hIdx[i][j]] = append(colEdges[hIdx[i][j]], e)
		}
	}
}

// DecodeNavBits runs the full decoding pipeline on the hex rendering of
// a raw navigation page (248 characters for a full page).  The trailing
// two hex characters and the leading twelve bits are not code symbols
// and are dropped; the rest is decoded and the message is returned as
// bytes.  If the decoder fails to converge the hard decision is
// returned along with ErrUnconverged.
func DecodeNavBits(navHex string) ([]byte, error) {

	if len(navHex) <= navHexDropTail {
		em := fmt.Sprintf("navigation page too short - %d hex characters", len(navHex))
		return nil, errors.New(em)
	}
	navHex = navHex[:len(navHex)-navHexDropTail]

	bitStream, err := utils.ReadHexBits(navHex)
	if err != nil {
		return nil, err
	}

	if len(bitStream) <= navBitsDropHead {
		em := fmt.Sprintf("navigation page too short - %d bits", len(bitStream))
		return nil, errors.New(em)
	}
	bitStream = bitStream[navBitsDropHead:]

	decodedBits, _, decodeError := DecodeSymbolBits(bitStream)

	// Whatever happened, turn the bits back into bytes.  The bit count
	// may not be a whole number of hex digits or bytes - the conversion
	// pads on the right, as the receiver side expects.
	decodedBytes, hexError := utils.HexToBytes(utils.HexStringFromBits(decodedBits))
	if hexError != nil {
		return nil, hexError
	}

	return decodedBytes, decodeError
}

// DecodeSymbolBits decodes a serialised codeword - six bits per GF(64)
// symbol, most significant bit first.  Trailing bits that don't make a
// whole symbol are ignored.  It returns the corrected bits, the number
// of belief propagation iterations used and, if the iteration cap was
// hit, ErrUnconverged.
func DecodeSymbolBits(bitStream []uint8) ([]uint8, int, error) {

	nvars := len(bitStream) / symbolBits
	if nvars == 0 {
		return nil, 0, errors.New("no symbols to decode")
	}

	// Pack the bits into GF(64) symbols.
	code := make([]uint8, nvars)
	for i := 0; i < nvars; i++ {
		var v uint8
		for j := 0; j < symbolBits; j++ {
			v = v<<1 | (bitStream[i*symbolBits+j] & 1)
		}
		code[i] = v
	}

	iterations, err := decodeSymbols(code)

	return symbolsToBits(code), iterations, err
}

// symbolsToBits serialises GF(64) symbols to bits, six per symbol, most
// significant bit first.
func symbolsToBits(code []uint8) []uint8 {
	bitStream := make([]uint8, 0, len(code)*symbolBits)
	for _, v := range code {
		for shift := symbolBits - 1; shift >= 0; shift-- {
			bitStream = append(bitStream, (v>>uint(shift))&1)
		}
	}
	return bitStream
}

// decodeSymbols runs Extended Min-Sum belief propagation on the symbol
// slice in place.  It returns the number of iterations used and
// ErrUnconverged if the cap was hit.  Symbols beyond the columns of H
// (if any) are left alone - they take no part in any parity check.
func decodeSymbols(code []uint8) (int, error) {

	nvars := len(code)

	// The a-priori cost of deciding symbol i is element j: the number
	// of bit flips away from the received symbol, scaled by the channel
	// error probability.  Costs are negative log likelihoods, so lower
	// is more likely.
	scale := -math.Log(errProb)
	prior := make([][fieldSize]float64, nvars)
	for i := 0; i < nvars; i++ {
		for j := 0; j < fieldSize; j++ {
			prior[i][j] = scale * float64(bits.OnesCount8(code[i]^uint8(j)))
		}
	}

	// Messages along each edge, in both directions.  The variable to
	// check messages are stored permuted by the edge coefficient, so
	// that the check node sees costs indexed by the term it adds into
	// the parity sum.
	v2c := make([][fieldSize]float64, len(edges))
	c2v := make([][fieldSize]float64, len(edges))
	for e, ed := range edges {
		if ed.col >= nvars {
			continue
		}
		for x := 0; x < fieldSize; x++ {
			v2c[e][gfMul(ed.coef, uint8(x))] = prior[ed.col][x]
		}
	}

	for iteration := 0; iteration < MaxIterations; iteration++ {

		if parityHolds(code) {
			return iteration, nil
		}

		// Check-node update: the message to each edge combines the
		// incoming messages on all of the other edges of the row using
		// the Extended Min-Sum operator, then is de-permuted by the
		// edge coefficient.
		for e, ed := range edges {
			var combined []float64
			for _, other := range rowEdges[ed.row] {
				if other == e {
					continue
				}
				combined = extMinSum(combined, v2c[other][:])
			}
			normalise(combined)
			for x := 0; x < fieldSize; x++ {
				c2v[e][x] = combined[gfMul(ed.coef, uint8(x))]
			}
		}

		// Variable-node update: the message to each edge is the prior
		// plus the incoming messages on all of the other edges of the
		// column, re-permuted by the edge coefficient.
		for e, ed := range edges {
			if ed.col >= nvars {
				continue
			}
			total := prior[ed.col]
			for _, other := range colEdges[ed.col] {
				if other == e {
					continue
				}
				for x := 0; x < fieldSize; x++ {
					total[x] += c2v[other][x]
				}
			}
			normalise(total[:])
			for x := 0; x < fieldSize; x++ {
				v2c[e][gfMul(ed.coef, uint8(x))] = total[x]
			}
		}

		// Hard decision: each symbol becomes the element with the
		// lowest total cost.
		for i := 0; i < nvars && i < NumSymbols; i++ {
			total := prior[i]
			for _, e := range colEdges[i] {
				for x := 0; x < fieldSize; x++ {
					total[x] += c2v[e][x]
				}
			}
			best := 0
			for x := 1; x < fieldSize; x++ {
				if total[x] < total[best] {
					best = x
				}
			}
			code[i] = uint8(best)
		}
	}

	if parityHolds(code) {
		return MaxIterations, nil
	}

	return MaxIterations, ErrUnconverged
}

// parityHolds computes the GF(64) syndrome and reports whether every
// parity check is satisfied.
func parityHolds(code []uint8) bool {
	var syndrome [numRows]uint8
	for _, ed := range edges {
		if ed.col >= len(code) {
			// A short codeword - treat the missing symbols as zero.
			continue
		}
		syndrome[ed.row] ^= gfMul(ed.coef, code[ed.col])
	}
	for _, s := range syndrome {
		if s != 0 {
			return false
		}
	}
	return true
}

// extMinSum combines two cost vectors with the Extended Min-Sum
// operator: the cost of element k is the least cost of any pair (a, b)
// with a XOR b == k, considering only the nmEMS cheapest elements of
// each operand.  Elements outside that truncated support are set to the
// tail maximum.  A nil first operand acts as the identity.
func extMinSum(a, b []float64) []float64 {
	if a == nil {
		combined := make([]float64, fieldSize)
		copy(combined, b)
		return combined
	}

	idxA := cheapestIndexes(a)
	idxB := cheapestIndexes(b)

	tailMax := a[idxA[nmEMS-1]] + b[idxB[nmEMS-1]]
	combined := make([]float64, fieldSize)
	for k := range combined {
		combined[k] = tailMax
	}

	for _, ia := range idxA[:nmEMS] {
		for _, ib := range idxB[:nmEMS] {
			k := ia ^ ib
			if cost := a[ia] + b[ib]; cost < combined[k] {
				combined[k] = cost
			}
		}
	}

	return combined
}

// cheapestIndexes returns the element indexes of the cost vector in
// ascending order of cost.
func cheapestIndexes(costs []float64) []int {
	indexes := make([]int, fieldSize)
	for i := range indexes {
		indexes[i] = i
	}
	sort.Slice(indexes, func(x, y int) bool {
		return costs[indexes[x]] < costs[indexes[y]]
	})
	return indexes
}

// normalise shifts a cost vector so that its minimum is zero.  This
// keeps the costs from growing without bound across iterations.
func normalise(costs []float64) {
	if len(costs) == 0 {
		return
	}
	minimum := costs[0]
	for _, v := range costs[1:] {
		if v < minimum {
			minimum = v
		}
	}
	for i := range costs {
		costs[i] -= minimum
	}
}
