// The sbf package reads a byte stream containing Septentrio Binary
// Format (SBF) blocks and produces validated blocks.  SBF is the
// proprietary block-oriented wire format that a Septentrio receiver
// speaks on its serial and network connections.
//
//	framer := sbf.NewFramer(logger)
//	blocks := framer.Feed(data)
//
// creates a framer and feeds it some bytes.  The framer accumulates
// bytes across calls, so a block that arrives split over many reads is
// reassembled and returned once it's complete.  Each returned block has
// passed its CRC check.
//
// An SBF block is laid out like so, all multi-byte fields little-endian:
//
//	byte 0-1   sync bytes 0x24 0x40 ("$@")
//	byte 2-3   CRC-16-CCIT of bytes 4 onwards
//	byte 4-5   block ID - a 13-bit block number and a 3-bit revision
//	byte 6-7   total block length in bytes
//	byte 8-    payload
//
// The framer resynchronises on the sync bytes, so it tolerates rubbish
// between blocks.  A block whose CRC check fails is discarded using the
// declared length - the bytes inside a framed block are not re-searched
// for a sync pattern.  If several blocks in a row fail their CRC check
// the framer assumes that it has lost synchronisation and re-scans the
// discarded bytes instead.
package sbf

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/goblimey/go-b2b/b2b/utils"
)

// crcResyncLimit is the number of consecutive CRC failures after which
// the framer stops trusting the declared block lengths and re-scans the
// failed block's bytes for a sync pattern.
const crcResyncLimit = 3

// Block is one validated SBF block.
type Block struct {
	// Type is the 13-bit block number, for example 4242 (BDS Raw B2b).
	Type uint16

	// Rev is the 3-bit block revision from the top of the ID field.
	Rev uint8

	// Length is the total length of the block in bytes, including the
	// eight header bytes.
	Length uint16

	// Payload is the block body - everything after the header.
	Payload []byte
}

// String returns a short description of the block.
func (block *Block) String() string {
	return fmt.Sprintf("SBF block type %d rev %d length %d",
		block.Type, block.Rev, block.Length)
}

// Counters records the events that the framer has seen.  The counts only
// ever increase.
type Counters struct {
	// Blocks is the number of valid blocks produced.
	Blocks uint64

	// DiscardedBytes is the number of bytes dropped while searching
	// for the sync pattern.
	DiscardedBytes uint64

	// CrcErrors is the number of framed blocks that failed the CRC
	// check.
	CrcErrors uint64

	// BadLengths is the number of sync patterns with a length field
	// shorter than the block header, which cannot be a valid block.
	BadLengths uint64
}

// Framer accumulates bytes and carves them into validated SBF blocks.
// It's not safe for concurrent use - feed it from one goroutine.
type Framer struct {
	// buffer accumulates incoming bytes until a whole block is present.
	buffer []byte

	// crcFailureRun is the number of consecutive CRC failures.
	crcFailureRun int

	// counters records what the framer has seen.
	counters Counters

	logger *slog.Logger
}

// NewFramer creates a Framer.  The logger may be nil, in which case
// nothing is logged.
func NewFramer(logger *slog.Logger) *Framer {
	if logger == nil {
		logger = utils.DiscardLogger()
	}
	framer := Framer{logger: logger}
	return &framer
}

// Counters returns a copy of the framer's event counters.
func (framer *Framer) Counters() Counters {
	return framer.counters
}

// Feed appends the given bytes to the framer's buffer and returns all
// of the complete, CRC-validated blocks that the buffer now contains, in
// order.  Bytes that cannot be part of a valid block are discarded.  Any
// trailing partial block is retained for the next call.
func (framer *Framer) Feed(data []byte) []Block {

	framer.buffer = append(framer.buffer, data...)

	var blocks []Block

	for {
		// Phase 1: scan for the sync bytes, dropping anything in front
		// of them.
		if !framer.sync() {
			break
		}

		// Phase 2: the buffer starts with the sync bytes.  We need the
		// whole eight-byte header to learn the block length.
		if len(framer.buffer) < utils.SBFHeaderLengthBytes {
			break
		}

		length := binary.LittleEndian.Uint16(framer.buffer[6:8])
		if length < utils.SBFHeaderLengthBytes {
			// A block can't be shorter than its own header.  This must
			// be a stray sync pattern in other data.  Drop the first
			// sync byte and rescan.
			framer.counters.BadLengths++
			framer.dropBytes(1)
			continue
		}

		if len(framer.buffer) < int(length) {
			// The block is incomplete.  Wait for more data.
			break
		}

		// Phase 3: a whole block is buffered.  Take it out.
		frame := make([]byte, length)
		copy(frame, framer.buffer[:length])
		framer.buffer = framer.buffer[length:]

		// Phase 4: check the CRC.  The CRC field covers everything
		// after itself - bytes 4 to the end.
		wantCRC := binary.LittleEndian.Uint16(frame[2:4])
		gotCRC := utils.SbfChecksum(frame[4:])
		idField := binary.LittleEndian.Uint16(frame[4:6])
		blockType := idField & 0x1fff

		if gotCRC != wantCRC {
			framer.counters.CrcErrors++
			framer.crcFailureRun++
			framer.logger.Warn("SBF CRC error",
				"type", blockType, "length", length,
				"want", fmt.Sprintf("0x%04x", wantCRC),
				"got", fmt.Sprintf("0x%04x", gotCRC))

			if framer.crcFailureRun >= crcResyncLimit {
				// Too many failures in a row - the length fields are
				// probably lying and we are out of sync.  Rescan the
				// failed block's bytes, skipping its sync pattern.
				framer.buffer = append(frame[2:], framer.buffer...)
				framer.crcFailureRun = 0
			}
			continue
		}

		framer.crcFailureRun = 0
		framer.counters.Blocks++

		block := Block{
			Type:    blockType,
			Rev:     uint8(idField >> 13),
			Length:  length,
			Payload: frame[utils.SBFHeaderLengthBytes:],
		}

		blocks = append(blocks, block)
	}

	return blocks
}

// sync drops bytes from the front of the buffer until it starts with
// the two sync bytes.  It returns false if the buffer doesn't contain a
// sync pattern, in which case at most one byte (a possible first sync
// byte) is retained.
func (framer *Framer) sync() bool {
	for len(framer.buffer) >= 2 {
		if framer.buffer[0] == utils.StartOfFrameByte1 &&
			framer.buffer[1] == utils.StartOfFrameByte2 {
			return true
		}
		framer.dropBytes(1)
	}

	// Zero or one byte left.  If it's not a possible sync byte, drop
	// that too.
	if len(framer.buffer) == 1 && framer.buffer[0] != utils.StartOfFrameByte1 {
		framer.dropBytes(1)
	}

	return false
}

// dropBytes discards n bytes from the front of the buffer.
func (framer *Framer) dropBytes(n int) {
	framer.counters.DiscardedBytes += uint64(n)
	framer.buffer = framer.buffer[n:]
}
