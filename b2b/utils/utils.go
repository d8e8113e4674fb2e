// The utils package contains general-purpose functions and constants for
// the B2b decoder: big-endian bit extraction, nibble-wise hex and bit
// conversion, the two CRCs used on the wire, and the satellite numbering
// tables shared by the other packages.
package utils

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"

	"github.com/goblimey/go-tools/dailylogger"
)

// StartOfFrameByte1 is the first SBF sync byte - '$'.
const StartOfFrameByte1 byte = 0x24

// StartOfFrameByte2 is the second SBF sync byte - '@'.
const StartOfFrameByte2 byte = 0x40

// SBFHeaderLengthBytes is the length of the fixed SBF block header:
// two sync bytes, a two-byte CRC, a two-byte ID and a two-byte length.
const SBFHeaderLengthBytes = 8

// BlockTypeBDSRawB2b is the SBF block number of a BDS Raw B2b navigation
// page.  It's the only block type that the decoder digs into.  (The block
// ID field also carries a three-bit revision number in the top bits -
// see the sbf package.)
const BlockTypeBDSRawB2b = 4242

// PRNB2bService is the BeiDou name of the GEO satellite broadcasting
// the PPP-B2b correction service that we decode.  Pages from any other
// satellite are counted and skipped.
const PRNB2bService = "C59"

// NavWordsPerPage is the number of 32-bit navigation words in a BDS Raw
// B2b page.
const NavWordsPerPage = 31

// MaxSatSlot is the number of satellite slots in the PPP-B2b mask -
// the mask is one bit per slot.
const MaxSatSlot = 255

// Satellite slot ranges.  The PPP-B2b mask and the orbit sub-records
// identify satellites by a slot number.  Slots 1-63 are BeiDou satellites,
// 64-100 are GPS, 101-137 are Galileo and 138-174 are Glonass.  Slots
// above 174 are reserved.
const (
	FirstBeidouSlot  = 1
	LastBeidouSlot   = 63
	FirstGPSSlot     = 64
	LastGPSSlot      = 100
	FirstGalileoSlot = 101
	LastGalileoSlot  = 137
	FirstGlonassSlot = 138
	LastGlonassSlot  = 174
)

// SpeedOfLightMS is the speed of light in metres per second.  It's used
// to convert a clock correction in metres to seconds.
const SpeedOfLightMS = 299792458.0

// ClockUnavailableMetres is the clock correction magnitude that the
// control segment sends when the correction for a satellite is not
// available.  A C0 value within ClockUnavailableTolerance of plus or
// minus this value must not be used.
const ClockUnavailableMetres = 26.2128

// ClockUnavailableTolerance is the tolerance on the unavailable-clock
// check, in metres.
const ClockUnavailableTolerance = 0.01

// SystemForSlot returns the constellation letter for a satellite slot -
// 'C', 'G', 'E' or 'R' - or 0 if the slot is reserved.
func SystemForSlot(slot int) byte {
	switch {
	case FirstBeidouSlot <= slot && slot <= LastBeidouSlot:
		return 'C'
	case FirstGPSSlot <= slot && slot <= LastGPSSlot:
		return 'G'
	case FirstGalileoSlot <= slot && slot <= LastGalileoSlot:
		return 'E'
	case FirstGlonassSlot <= slot && slot <= LastGlonassSlot:
		return 'R'
	default:
		return 0
	}
}

// NumberForSlot returns the satellite number within its constellation for
// a satellite slot, or -1 if the slot is reserved.  For example slot 64
// is G01 so the result is 1.
func NumberForSlot(slot int) int {
	switch {
	case FirstBeidouSlot <= slot && slot <= LastBeidouSlot:
		return slot
	case FirstGPSSlot <= slot && slot <= LastGPSSlot:
		return slot - (FirstGPSSlot - 1)
	case FirstGalileoSlot <= slot && slot <= LastGalileoSlot:
		return slot - (FirstGalileoSlot - 1)
	case FirstGlonassSlot <= slot && slot <= LastGlonassSlot:
		return slot - (FirstGlonassSlot - 1)
	default:
		return -1
	}
}

// Svid2PRN converts a satellite identifier in the receiver's numbering
// scheme to the standard GNSS name, for example 25 to "G25" and 143 to
// "C03".  The receiver packs all of the constellations that it can track
// into one number range, so the mapping is a set of offsets, one per
// range.  An identifier outside all of the ranges produces "UNK_n".
func Svid2PRN(svid uint16) string {
	switch {
	case svid >= 1 && svid <= 37:
		return fmt.Sprintf("G%02d", svid)
	case svid >= 38 && svid <= 61:
		return fmt.Sprintf("R%02d", svid-37)
	case svid == 62:
		// A Glonass satellite with an unknown slot number.
		return "R??"
	case svid >= 63 && svid <= 68:
		return fmt.Sprintf("R%02d", svid-38)
	case svid >= 71 && svid <= 106:
		return fmt.Sprintf("E%02d", svid-70)
	case svid >= 120 && svid <= 140:
		return fmt.Sprintf("S%02d", svid-100)
	case svid >= 141 && svid <= 180:
		return fmt.Sprintf("C%02d", svid-140)
	case svid >= 181 && svid <= 190:
		return fmt.Sprintf("J%02d", svid-180)
	case svid >= 191 && svid <= 197:
		return fmt.Sprintf("I%02d", svid-190)
	case svid >= 198 && svid <= 215:
		return fmt.Sprintf("S%03d", svid-157)
	case svid >= 216 && svid <= 222:
		return fmt.Sprintf("I%02d", svid-208)
	case svid >= 223 && svid <= 245:
		return fmt.Sprintf("C%02d", svid-182)
	default:
		return fmt.Sprintf("UNK_%d", svid)
	}
}

// GetBitsAsUint64 extracts len bits from a slice of bytes, starting
// at bit position pos and returns them as a uint64.  Bit 0 is the top
// bit of the first byte.  See RTKLIB's getbitu.
func GetBitsAsUint64(buff []byte, pos uint, len uint) uint64 {
	const u64One uint64 = 1
	var result uint64 = 0
	for i := pos; i < pos+len; i++ {
		byteNumber := i / 8
		// Work on a 64-bit copy of the byte contents.
		var byteContents uint64 = uint64(buff[byteNumber])
		var shiftBy uint = 7 - i%8
		// Shift the contents down to put the desired bit at the bottom.
		b := byteContents >> shiftBy
		// Extract the bottom bit.
		bit := b & u64One
		// Shift the result up one bit and glue in the extracted bit.
		result = (result << 1) | uint64(bit)
	}
	return result
}

// GetBitsAsInt64 extracts len bits from a slice of bytes, starting at bit
// position pos, interprets the bits as a twos-complement integer and
// returns the result as a 64-bit signed int.  See RTKLIB's getbits.
func GetBitsAsInt64(buff []byte, pos uint, len uint) int64 {
	// If the first bit is a 1, the result is negative.
	negative := GetBitsAsUint64(buff, pos, 1) == 1
	// Get the whole bit string.
	uval := GetBitsAsUint64(buff, pos, len)
	if negative {
		// It's negative: subtract the weight of the top bit.
		var mask uint64 = 2 << (len - 2)
		weightOfTopBit := int64(uval & mask)
		weightOfLowerBits := int64(uval & ^mask)
		return (-1 * weightOfTopBit) + weightOfLowerBits
	}

	return int64(uval)
}

// hexNibble converts one hex character to its value, or returns false if
// the character is not a hex digit.
func hexNibble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// isSpace is true for the whitespace characters that may legally appear
// in a hex string.
func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// ReadHexBits converts a string of hex characters to a bit slice, four
// bits per character, most significant bit first.  Whitespace is ignored.
// Any other non-hex character produces an error.
func ReadHexBits(s string) ([]uint8, error) {
	bits := make([]uint8, 0, len(s)*4)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isSpace(c) {
			continue
		}
		nibble, ok := hexNibble(c)
		if !ok {
			em := fmt.Sprintf("illegal hex character %q at position %d", c, i)
			return nil, errors.New(em)
		}
		for shift := 3; shift >= 0; shift-- {
			bits = append(bits, (nibble>>uint(shift))&1)
		}
	}
	return bits, nil
}

// HexStringFromBits packs a bit slice into a hex string, four bits per
// character, most significant bit first.  If the number of bits is not a
// multiple of four, the final group is shifted left to occupy the high
// bits of the last character.
func HexStringFromBits(bits []uint8) string {
	const digits = "0123456789ABCDEF"
	result := make([]byte, 0, (len(bits)+3)/4)
	nibble := 0
	for i, bit := range bits {
		nibble = (nibble << 1) | int(bit&1)
		if i%4 == 3 {
			result = append(result, digits[nibble])
			nibble = 0
		}
	}
	if rem := len(bits) % 4; rem != 0 {
		nibble <<= uint(4 - rem)
		result = append(result, digits[nibble])
	}
	return string(result)
}

// HexToBytes converts a hex string to bytes, ignoring whitespace and
// padding an odd-length string with a trailing zero nibble.  A non-hex
// character produces an error.
func HexToBytes(s string) ([]byte, error) {
	nibbles := make([]uint8, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isSpace(c) {
			continue
		}
		nibble, ok := hexNibble(c)
		if !ok {
			em := fmt.Sprintf("illegal hex character %q at position %d", c, i)
			return nil, errors.New(em)
		}
		nibbles = append(nibbles, nibble)
	}
	if len(nibbles)%2 == 1 {
		nibbles = append(nibbles, 0)
	}
	result := make([]byte, len(nibbles)/2)
	for i := range result {
		result[i] = nibbles[i*2]<<4 | nibbles[i*2+1]
	}
	return result, nil
}

// BytesToBits expands a byte slice into a bit slice, most significant
// bit of each byte first.
func BytesToBits(data []byte) []uint8 {
	bits := make([]uint8, 0, len(data)*8)
	for _, b := range data {
		for shift := 7; shift >= 0; shift-- {
			bits = append(bits, (b>>uint(shift))&1)
		}
	}
	return bits
}

// BitsToBytes packs a bit slice into bytes, most significant bit first,
// zero-padding the final byte on the right.
func BitsToBytes(bits []uint8) []byte {
	result := make([]byte, (len(bits)+7)/8)
	for i, bit := range bits {
		if bit&1 == 1 {
			result[i/8] |= 1 << uint(7-i%8)
		}
	}
	return result
}

// crc16CCITTable is the lookup table for the CRC-16-CCIT used by SBF
// blocks - polynomial 0x1021, initial value zero, no reflection.
var crc16CCITTable = [256]uint16{
	0x0000, 0x1021, 0x2042, 0x3063, 0x4084, 0x50a5, 0x60c6, 0x70e7, 0x8108, 0x9129, 0xa14a, 0xb16b, 0xc18c, 0xd1ad, 0xe1ce, 0xf1ef,
	0x1231, 0x0210, 0x3273, 0x2252, 0x52b5, 0x4294, 0x72f7, 0x62d6, 0x9339, 0x8318, 0xb37b, 0xa35a, 0xd3bd, 0xc39c, 0xf3ff, 0xe3de,
	0x2462, 0x3443, 0x0420, 0x1401, 0x64e6, 0x74c7, 0x44a4, 0x5485, 0xa56a, 0xb54b, 0x8528, 0x9509, 0xe5ee, 0xf5cf, 0xc5ac, 0xd58d,
	0x3653, 0x2672, 0x1611, 0x0630, 0x76d7, 0x66f6, 0x5695, 0x46b4, 0xb75b, 0xa77a, 0x9719, 0x8738, 0xf7df, 0xe7fe, 0xd79d, 0xc7bc,
	0x48c4, 0x58e5, 0x6886, 0x78a7, 0x0840, 0x1861, 0x2802, 0x3823, 0xc9cc, 0xd9ed, 0xe98e, 0xf9af, 0x8948, 0x9969, 0xa90a, 0xb92b,
	0x5af5, 0x4ad4, 0x7ab7, 0x6a96, 0x1a71, 0x0a50, 0x3a33, 0x2a12, 0xdbfd, 0xcbdc, 0xfbbf, 0xeb9e, 0x9b79, 0x8b58, 0xbb3b, 0xab1a,
	0x6ca6, 0x7c87, 0x4ce4, 0x5cc5, 0x2c22, 0x3c03, 0x0c60, 0x1c41, 0xedae, 0xfd8f, 0xcdec, 0xddcd, 0xad2a, 0xbd0b, 0x8d68, 0x9d49,
	0x7e97, 0x6eb6, 0x5ed5, 0x4ef4, 0x3e13, 0x2e32, 0x1e51, 0x0e70, 0xff9f, 0xefbe, 0xdfdd, 0xcffc, 0xbf1b, 0xaf3a, 0x9f59, 0x8f78,
	0x9188, 0x81a9, 0xb1ca, 0xa1eb, 0xd10c, 0xc12d, 0xf14e, 0xe16f, 0x1080, 0x00a1, 0x30c2, 0x20e3, 0x5004, 0x4025, 0x7046, 0x6067,
	0x83b9, 0x9398, 0xa3fb, 0xb3da, 0xc33d, 0xd31c, 0xe37f, 0xf35e, 0x02b1, 0x1290, 0x22f3, 0x32d2, 0x4235, 0x5214, 0x6277, 0x7256,
	0xb5ea, 0xa5cb, 0x95a8, 0x8589, 0xf56e, 0xe54f, 0xd52c, 0xc50d, 0x34e2, 0x24c3, 0x14a0, 0x0481, 0x7466, 0x6447, 0x5424, 0x4405,
	0xa7db, 0xb7fa, 0x8799, 0x97b8, 0xe75f, 0xf77e, 0xc71d, 0xd73c, 0x26d3, 0x36f2, 0x0691, 0x16b0, 0x6657, 0x7676, 0x4615, 0x5634,
	0xd94c, 0xc96d, 0xf90e, 0xe92f, 0x99c8, 0x89e9, 0xb98a, 0xa9ab, 0x5844, 0x4865, 0x7806, 0x6827, 0x18c0, 0x08e1, 0x3882, 0x28a3,
	0xcb7d, 0xdb5c, 0xeb3f, 0xfb1e, 0x8bf9, 0x9bd8, 0xabbb, 0xbb9a, 0x4a75, 0x5a54, 0x6a37, 0x7a16, 0x0af1, 0x1ad0, 0x2ab3, 0x3a92,
	0xfd2e, 0xed0f, 0xdd6c, 0xcd4d, 0xbdaa, 0xad8b, 0x9de8, 0x8dc9, 0x7c26, 0x6c07, 0x5c64, 0x4c45, 0x3ca2, 0x2c83, 0x1ce0, 0x0cc1,
	0xef1f, 0xff3e, 0xcf5d, 0xdf7c, 0xaf9b, 0xbfba, 0x8fd9, 0x9ff8, 0x6e17, 0x7e36, 0x4e55, 0x5e74, 0x2e93, 0x3eb2, 0x0ed1, 0x1ef0,
}

// SbfChecksum computes the CRC-16-CCIT of the given bytes.  An SBF block
// carries this checksum over everything after the CRC field itself - see
// the sbf package.
func SbfChecksum(buff []byte) uint16 {
	var crc uint16
	for _, b := range buff {
		crc = (crc << 8) ^ crc16CCITTable[byte(crc>>8)^b]
	}
	return crc
}

// CRC24QBits computes the CRC-24Q (polynomial 0x1864CFB, initial value
// zero) over a run of bits starting at bit position pos.  The B2b message
// CRC covers 462 bits, which is not a whole number of bytes, so the
// calculation has to work at the bit level.  For byte-aligned input the
// result matches the byte-oriented crc24q package.
func CRC24QBits(buff []byte, pos uint, nbits uint) uint32 {
	var crc uint32
	for i := uint(0); i < nbits; i++ {
		byteNumber := (pos + i) / 8
		shiftBy := 7 - (pos+i)%8
		inputBit := uint32(buff[byteNumber]>>shiftBy) & 1
		topBit := (crc >> 23) & 1
		crc = (crc << 1) & 0xffffff
		if topBit^inputBit != 0 {
			crc ^= 0x864cfb
		}
	}
	return crc
}

// discardHandler is a slog handler that drops everything.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }

// DiscardLogger returns a logger that discards everything.  It's used
// as the default when a caller supplies a nil logger.
func DiscardLogger() *slog.Logger {
	return slog.New(discardHandler{})
}

// GetDailyLogger gets a daily log file which can be written to as a logger
// (each line decorated with filename, date, time, etc).
func GetDailyLogger(name string) *log.Logger {
	dailyLog := dailylogger.New("logs", name+".", ".log")
	logFlags := log.LstdFlags | log.Lshortfile | log.Lmicroseconds
	return log.New(dailyLog, name, logFlags)
}
