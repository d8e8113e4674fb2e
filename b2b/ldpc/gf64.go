package ldpc

// Arithmetic over the Galois field GF(64) used by the B2b LDPC code.
// The field is defined by its generator: gfVec lists the powers of the
// generator element in order, and gfPow is the inverse table giving the
// exponent for each non-zero field element.  Both tables are part of the
// wire specification and must be reproduced exactly.

// gfVec[k] is the generator raised to the power k.
var gfVec = [63]uint8{
	1, 2, 4, 8, 16, 32, 3, 6, 12, 24, 48, 35, 5, 10, 20, 40,
	19, 38, 15, 30, 60, 59, 53, 41, 17, 34, 7, 14, 28, 56, 51, 37,
	9, 18, 36, 11, 22, 44, 27, 54, 47, 29, 58, 55, 45, 25, 50, 39,
	13, 26, 52, 43, 21, 42, 23, 46, 31, 62, 63, 61, 57, 49, 33,
}

// gfPow[v] is the exponent k such that gfVec[k] == v, for v > 1.
// gfPow[0] and gfPow[1] are both zero - the zero element has no
// logarithm and the unit element has logarithm zero.
var gfPow = [64]uint8{
	0, 0, 1, 6, 2, 12, 7, 26, 3, 32, 13, 35, 8, 48, 27, 18,
	4, 24, 33, 16, 14, 52, 36, 54, 9, 45, 49, 38, 28, 41, 19, 56,
	5, 62, 25, 11, 34, 31, 17, 47, 15, 23, 53, 51, 37, 44, 55, 40,
	10, 61, 46, 30, 50, 22, 39, 43, 29, 60, 42, 21, 20, 59, 57, 58,
}

// gfMulTable is the full multiplication table, built once at start-up
// from the generator tables.  Multiplication by zero gives zero.
var gfMulTable [fieldSize][fieldSize]uint8

func init() {
	for i := 1; i < fieldSize; i++ {
		for j := 1; j < fieldSize; j++ {
			gfMulTable[i][j] =
				gfVec[(int(gfPow[i])+int(gfPow[j]))%(fieldSize-1)]
		}
	}
}

// gfMul multiplies two GF(64) elements.
func gfMul(a, b uint8) uint8 {
	return gfMulTable[a][b]
}
