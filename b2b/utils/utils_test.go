package utils

import (
	"testing"

	"github.com/goblimey/go-crc24q/crc24q"
)

// TestGetBitsAsUint64 checks that bits are extracted big-endian with bit
// zero being the top bit of the first byte.
func TestGetBitsAsUint64(t *testing.T) {
	bitStream := []byte{0xab, 0xcd, 0xef, 0x01}

	var testData = []struct {
		description string
		pos         uint
		length      uint
		want        uint64
	}{
		{"first nibble", 0, 4, 0xa},
		{"first byte", 0, 8, 0xab},
		{"straddling bytes", 4, 8, 0xbc},
		{"single bit set", 0, 1, 1},
		{"third bit", 2, 1, 1},
		{"three bytes", 0, 24, 0xabcdef},
		{"unaligned tail", 20, 12, 0xf01},
	}

	for _, td := range testData {
		got := GetBitsAsUint64(bitStream, td.pos, td.length)
		if got != td.want {
			t.Errorf("%s: want 0x%x got 0x%x", td.description, td.want, got)
		}
	}
}

// TestGetBitsAsInt64 checks the sign extension of twos-complement fields.
func TestGetBitsAsInt64(t *testing.T) {
	var testData = []struct {
		description string
		bitStream   []byte
		pos         uint
		length      uint
		want        int64
	}{
		{"positive", []byte{0x35}, 0, 8, 53},
		{"minus one", []byte{0xff}, 0, 8, -1},
		{"most negative", []byte{0x80}, 0, 8, -128},
		{"four bit minus two", []byte{0xe0}, 0, 4, -2},
		{"fifteen bit field", []byte{0x7f, 0xfe}, 0, 15, 16383},
		{"fifteen bit negative", []byte{0xff, 0xfe}, 0, 15, -1},
	}

	for _, td := range testData {
		got := GetBitsAsInt64(td.bitStream, td.pos, td.length)
		if got != td.want {
			t.Errorf("%s: want %d got %d", td.description, td.want, got)
		}
	}
}

// TestReadHexBits checks the nibble-wise hex to bit conversion, including
// the handling of whitespace and illegal characters.
func TestReadHexBits(t *testing.T) {
	got, err := ReadHexBits("a5")
	if err != nil {
		t.Fatal(err)
	}
	want := []uint8{1, 0, 1, 0, 0, 1, 0, 1}
	if len(got) != len(want) {
		t.Fatalf("want %d bits got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bit %d: want %d got %d", i, want[i], got[i])
		}
	}

	// Whitespace is ignored.
	got, err = ReadHexBits(" a\t5\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 8 {
		t.Errorf("want 8 bits got %d", len(got))
	}

	// A non-hex character is rejected.
	_, err = ReadHexBits("a5g")
	if err == nil {
		t.Error("expected an error for a non-hex character")
	}
}

// TestHexStringFromBits checks the bit to hex conversion, including the
// left shift of a final partial nibble.
func TestHexStringFromBits(t *testing.T) {
	var testData = []struct {
		description string
		bits        []uint8
		want        string
	}{
		{"one nibble", []uint8{1, 0, 1, 0}, "A"},
		{"one byte", []uint8{1, 1, 1, 1, 0, 0, 0, 0}, "F0"},
		{"partial nibble shifted left", []uint8{1, 1}, "C"},
		{"six bits", []uint8{1, 0, 1, 0, 1, 1}, "AC"},
		{"empty", []uint8{}, ""},
	}

	for _, td := range testData {
		got := HexStringFromBits(td.bits)
		if got != td.want {
			t.Errorf("%s: want %s got %s", td.description, td.want, got)
		}
	}
}

// TestHexRoundTrip checks that hex to bits and back reproduces the
// original text.
func TestHexRoundTrip(t *testing.T) {
	const hex = "0123456789ABCDEF"
	bits, err := ReadHexBits(hex)
	if err != nil {
		t.Fatal(err)
	}
	got := HexStringFromBits(bits)
	if got != hex {
		t.Errorf("want %s got %s", hex, got)
	}
}

// TestHexToBytes checks byte packing, including odd-length padding.
func TestHexToBytes(t *testing.T) {
	got, err := HexToBytes("24400a")
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x24, 0x40, 0x0a}
	if len(got) != len(want) {
		t.Fatalf("want %d bytes got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d: want 0x%x got 0x%x", i, want[i], got[i])
		}
	}

	// An odd-length string is padded with a zero nibble.
	got, err = HexToBytes("abc")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != 0xab || got[1] != 0xc0 {
		t.Errorf("want ab c0 got % x", got)
	}
}

// TestSbfChecksum checks the CRC-16-CCIT against the standard check
// value: the CRC of the ASCII digits "123456789" is 0x31c3.
func TestSbfChecksum(t *testing.T) {
	if got := SbfChecksum([]byte("123456789")); got != 0x31c3 {
		t.Errorf("want 0x31c3 got 0x%x", got)
	}

	if got := SbfChecksum(nil); got != 0 {
		t.Errorf("CRC of no data: want 0 got 0x%x", got)
	}
}

// TestCRC24QBits checks the bit-level CRC-24Q against the byte-oriented
// crc24q package for byte-aligned input.
func TestCRC24QBits(t *testing.T) {
	var testData = []struct {
		description string
		data        []byte
	}{
		{"digits", []byte("123456789")},
		{"single byte", []byte{0xd3}},
		{"several bytes", []byte{0xd3, 0x00, 0x8a, 0x43, 0x20, 0x00}},
	}

	for _, td := range testData {
		want := crc24q.Hash(td.data)
		got := CRC24QBits(td.data, 0, uint(len(td.data)*8))
		if got != want {
			t.Errorf("%s: want 0x%06x got 0x%06x", td.description, want, got)
		}
	}

	// An offset, non-aligned run: CRC of bits 8..24 of {x, a, b} is the
	// CRC of bytes {a, b}.
	data := []byte{0x99, 0x12, 0x34}
	want := crc24q.Hash(data[1:])
	got := CRC24QBits(data, 8, 16)
	if got != want {
		t.Errorf("offset run: want 0x%06x got 0x%06x", want, got)
	}
}

// TestSvid2PRN checks the receiver SVID to PRN mapping over all of the
// range boundaries.
func TestSvid2PRN(t *testing.T) {
	var testData = []struct {
		svid uint16
		want string
	}{
		{1, "G01"},
		{37, "G37"},
		{38, "R01"},
		{61, "R24"},
		{62, "R??"},
		{63, "R25"},
		{68, "R30"},
		{69, "UNK_69"},
		{71, "E01"},
		{106, "E36"},
		{120, "S20"},
		{140, "S40"},
		{141, "C01"},
		{180, "C40"},
		{181, "J01"},
		{190, "J10"},
		{191, "I01"},
		{197, "I07"},
		{198, "S041"},
		{215, "S058"},
		{216, "I08"},
		{222, "I14"},
		{223, "C41"},
		{245, "C63"},
		{246, "UNK_246"},
		{0, "UNK_0"},
	}

	for _, td := range testData {
		got := Svid2PRN(td.svid)
		if got != td.want {
			t.Errorf("svid %d: want %s got %s", td.svid, td.want, got)
		}
	}
}

// TestSlotMapping checks the satellite slot to constellation mapping.
func TestSlotMapping(t *testing.T) {
	var testData = []struct {
		slot       int
		wantSystem byte
		wantNumber int
	}{
		{1, 'C', 1},
		{63, 'C', 63},
		{64, 'G', 1},
		{100, 'G', 37},
		{101, 'E', 1},
		{137, 'E', 37},
		{138, 'R', 1},
		{174, 'R', 37},
		{175, 0, -1},
		{0, 0, -1},
	}

	for _, td := range testData {
		if got := SystemForSlot(td.slot); got != td.wantSystem {
			t.Errorf("slot %d: want system %c got %c", td.slot, td.wantSystem, got)
		}
		if got := NumberForSlot(td.slot); got != td.wantNumber {
			t.Errorf("slot %d: want number %d got %d", td.slot, td.wantNumber, got)
		}
	}
}

// TestBitsBytesRoundTrip checks that bytes to bits and back reproduces
// the original data.
func TestBitsBytesRoundTrip(t *testing.T) {
	data := []byte{0x24, 0x40, 0xff, 0x00, 0x5a}
	bits := BytesToBits(data)
	if len(bits) != len(data)*8 {
		t.Fatalf("want %d bits got %d", len(data)*8, len(bits))
	}
	back := BitsToBytes(bits)
	for i := range data {
		if back[i] != data[i] {
			t.Errorf("byte %d: want 0x%x got 0x%x", i, data[i], back[i])
		}
	}
}
