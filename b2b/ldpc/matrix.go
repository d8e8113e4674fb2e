package ldpc

// The parity-check matrix H of the LDPC(162,81) code over GF(64), in
// sparse form.  Row i of H has exactly four non-zero entries: hIdx[i]
// gives their column numbers and hEle[i] the GF(64) coefficients.  Both
// tables are part of the wire specification and must be reproduced
// exactly.

// hIdx[i] lists the symbol columns with non-zero coefficients in row i.
var hIdx = [numRows][4]int{
	{19, 67, 109, 130}, {27, 71, 85, 161}, {31, 78, 96, 122}, {2, 44, 83, 125},
	{26, 71, 104, 132}, {30, 39, 93, 154}, {4, 46, 85, 127}, {21, 62, 111, 127},
	{13, 42, 101, 146}, {18, 66, 108, 129}, {27, 72, 100, 153}, {29, 70, 84, 160},
	{23, 61, 113, 126}, {8, 50, 89, 131}, {34, 74, 111, 157}, {12, 44, 100, 145},
	{22, 60, 112, 128}, {0, 49, 115, 151}, {6, 47, 106, 144}, {33, 53, 82, 140},
	{3, 45, 84, 126}, {38, 80, 109, 147}, {9, 60, 96, 141}, {1, 43, 82, 124},
	{20, 77, 88, 158}, {37, 54, 122, 159}, {3, 65, 104, 149}, {5, 47, 86, 128},
	{0, 42, 81, 123}, {32, 79, 97, 120}, {35, 72, 112, 158}, {15, 57, 93, 138},
	{22, 75, 107, 143}, {24, 69, 102, 133}, {1, 50, 116, 152}, {24, 57, 119, 135},
	{17, 59, 95, 140}, {7, 45, 107, 145}, {34, 51, 83, 138}, {14, 43, 99, 144},
	{21, 77, 106, 142}, {16, 58, 94, 139}, {20, 68, 110, 131}, {2, 48, 114, 150},
	{10, 52, 91, 133}, {25, 70, 103, 134}, {32, 41, 95, 153}, {14, 56, 91, 137},
	{33, 73, 113, 156}, {28, 73, 101, 154}, {4, 63, 102, 147}, {6, 48, 87, 129},
	{8, 46, 105, 146}, {30, 80, 98, 121}, {41, 68, 119, 150}, {35, 52, 81, 139},
	{16, 63, 114, 124}, {13, 55, 90, 136}, {31, 40, 94, 155}, {10, 61, 97, 142},
	{36, 56, 121, 161}, {29, 74, 99, 155}, {5, 64, 103, 148}, {18, 75, 89, 156},
	{36, 78, 110, 148}, {19, 76, 87, 157}, {15, 65, 116, 123}, {11, 53, 92, 134},
	{25, 58, 117, 136}, {39, 66, 117, 151}, {11, 62, 98, 143}, {9, 51, 90, 132},
	{38, 55, 120, 160}, {7, 49, 88, 130}, {17, 64, 115, 125},
	{28, 69, 86, 159}, {23, 76, 105, 141}, {12, 54, 92, 135},
	{40, 67, 118, 152}, {37, 79, 108, 149}, {26, 59, 118, 137},
}

// hEle[i] lists the GF(64) coefficients matching hIdx[i].
var hEle = [numRows][4]uint8{
	{46, 45, 44, 15}, {15, 24, 50, 37}, {24, 50, 37, 15}, {15, 32, 18, 61},
	{58, 56, 60, 62}, {37, 53, 61, 29}, {46, 58, 18, 6}, {36, 19, 3, 57},
	{54, 7, 38, 23}, {51, 59, 63, 47}, {9, 3, 43, 29}, {56, 8, 46, 13},
	{26, 22, 14, 2}, {63, 26, 41, 12}, {17, 32, 58, 37}, {38, 23, 55, 22},
	{35, 1, 31, 44}, {44, 51, 35, 13}, {30, 1, 44, 7}, {27, 5, 2, 62},
	{16, 63, 20, 9}, {27, 56, 8, 43}, {1, 44, 30, 24}, {5, 26, 27, 37},
	{42, 47, 37, 32}, {38, 12, 25, 51}, {43, 34, 48, 57}, {39, 9, 30, 48},
	{63, 13, 54, 10}, {2, 46, 56, 35}, {47, 20, 33, 26}, {62, 54, 56, 60},
	{1, 21, 25, 7}, {43, 58, 19, 49}, {28, 4, 52, 44}, {46, 44, 14, 15},
	{41, 48, 2, 27}, {49, 21, 7, 35}, {40, 21, 44, 17}, {24, 23, 45, 11},
	{46, 25, 22, 48}, {13, 29, 53, 61}, {52, 17, 24, 61}, {29, 41, 10, 16},
	{60, 24, 4, 50}, {32, 49, 58, 19}, {43, 34, 48, 57}, {29, 7, 10, 16},
	{25, 11, 7, 1}, {32, 49, 58, 19}, {42, 14, 24, 33}, {39, 56, 30, 48},
	{13, 27, 56, 8}, {53, 40, 61, 18}, {8, 43, 27, 56}, {18, 40, 32, 61},
	{60, 48, 2, 27}, {50, 54, 60, 62}, {58, 19, 32, 49}, {9, 3, 63, 43},
	{53, 35, 16, 13}, {23, 25, 30, 16}, {18, 6, 61, 21}, {15, 1, 42, 45},
	{20, 16, 63, 9}, {27, 37, 5, 26}, {29, 7, 10, 16}, {11, 60, 6, 49},
	{43, 47, 18, 20}, {42, 14, 24, 33}, {43, 22, 41, 20}, {22, 15, 12, 33},
	{9, 41, 57, 58}, {5, 31, 51, 30}, {9, 3, 63, 43},
	{37, 53, 61, 29}, {6, 45, 56, 19}, {33, 45, 36, 34},
	{19, 24, 42, 14}, {1, 45, 15, 6}, {8, 43, 27, 56},
}
