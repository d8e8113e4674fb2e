package sbf

import (
	"encoding/binary"
	"testing"

	"github.com/goblimey/go-b2b/b2b/utils"
)

// buildBlock constructs a valid SBF block with the given type, revision
// and payload, with a correct CRC.
func buildBlock(blockType uint16, rev uint8, payload []byte) []byte {
	length := uint16(utils.SBFHeaderLengthBytes + len(payload))
	frame := make([]byte, length)
	frame[0] = utils.StartOfFrameByte1
	frame[1] = utils.StartOfFrameByte2
	binary.LittleEndian.PutUint16(frame[4:6], uint16(rev)<<13|blockType&0x1fff)
	binary.LittleEndian.PutUint16(frame[6:8], length)
	copy(frame[8:], payload)
	crc := utils.SbfChecksum(frame[4:])
	binary.LittleEndian.PutUint16(frame[2:4], crc)
	return frame
}

// TestFeedWholeBlock checks that a complete block fed in one call is
// returned.
func TestFeedWholeBlock(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5, 6}
	frame := buildBlock(4242, 2, payload)

	framer := NewFramer(nil)
	blocks := framer.Feed(frame)

	if len(blocks) != 1 {
		t.Fatalf("want 1 block got %d", len(blocks))
	}
	block := blocks[0]
	if block.Type != 4242 {
		t.Errorf("want type 4242 got %d", block.Type)
	}
	if block.Rev != 2 {
		t.Errorf("want rev 2 got %d", block.Rev)
	}
	if int(block.Length) != len(frame) {
		t.Errorf("want length %d got %d", len(frame), block.Length)
	}
	if len(block.Payload) != len(payload) {
		t.Fatalf("want %d payload bytes got %d", len(payload), len(block.Payload))
	}
	for i := range payload {
		if block.Payload[i] != payload[i] {
			t.Errorf("payload byte %d: want %d got %d", i, payload[i], block.Payload[i])
		}
	}
}

// TestFeedFragmented checks that a block split across many calls is
// reassembled - the framer should produce the same result however the
// input is cut up.
func TestFeedFragmented(t *testing.T) {
	frame := buildBlock(4242, 0, []byte{0xaa, 0xbb, 0xcc})

	// Try every split point, including feeding one byte at a time.
	for split := 1; split < len(frame); split++ {
		framer := NewFramer(nil)
		blocks := framer.Feed(frame[:split])
		if len(blocks) != 0 {
			t.Fatalf("split %d: got a block from a partial frame", split)
		}
		blocks = framer.Feed(frame[split:])
		if len(blocks) != 1 {
			t.Fatalf("split %d: want 1 block got %d", split, len(blocks))
		}
	}

	framer := NewFramer(nil)
	var total int
	for _, b := range frame {
		total += len(framer.Feed([]byte{b}))
	}
	if total != 1 {
		t.Errorf("byte at a time: want 1 block got %d", total)
	}
}

// TestFeedLeadingRubbish checks that bytes in front of the sync pattern
// are discarded.
func TestFeedLeadingRubbish(t *testing.T) {
	frame := buildBlock(4007, 1, []byte{9, 8, 7})
	data := append([]byte{0x00, 0xff, 0x24, 0x99}, frame...)

	framer := NewFramer(nil)
	blocks := framer.Feed(data)

	if len(blocks) != 1 {
		t.Fatalf("want 1 block got %d", len(blocks))
	}
	if framer.Counters().DiscardedBytes != 4 {
		t.Errorf("want 4 discarded bytes got %d", framer.Counters().DiscardedBytes)
	}
}

// TestCrcRejection checks that corrupting any byte covered by the CRC
// causes the block to be rejected with exactly one CRC error.
// TestCorruptThenValid covers the block that follows.
func TestCrcRejection(t *testing.T) {
	frame := buildBlock(4242, 0, []byte{1, 2, 3, 4})

	for i := 4; i < len(frame); i++ {
		if i == 6 || i == 7 {
			// Corrupting the length field changes the framing itself -
			// the framer waits for the longer declared block instead.
			continue
		}
		corrupt := make([]byte, len(frame))
		copy(corrupt, frame)
		corrupt[i] ^= 0x01

		framer := NewFramer(nil)
		blocks := framer.Feed(corrupt)
		if len(blocks) != 0 {
			t.Errorf("byte %d: corrupt block was accepted", i)
		}
		if framer.Counters().CrcErrors != 1 {
			t.Errorf("byte %d: want 1 CRC error got %d",
				i, framer.Counters().CrcErrors)
		}
	}
}

// TestCorruptThenValid checks that a corrupt block doesn't prevent the
// next block from being decoded.
func TestCorruptThenValid(t *testing.T) {
	first := buildBlock(4242, 0, []byte{1, 2, 3, 4})
	// Corrupt one payload byte of the first block.
	first[10] ^= 0x80
	second := buildBlock(4242, 0, []byte{5, 6, 7, 8})

	framer := NewFramer(nil)
	blocks := framer.Feed(append(first, second...))

	if len(blocks) != 1 {
		t.Fatalf("want 1 block got %d", len(blocks))
	}
	if blocks[0].Payload[0] != 5 {
		t.Errorf("want the second block, got payload starting %d",
			blocks[0].Payload[0])
	}
	if framer.Counters().CrcErrors != 1 {
		t.Errorf("want 1 CRC error got %d", framer.Counters().CrcErrors)
	}
}

// TestZeroLength checks that a sync pattern followed by a zero length
// field is skipped rather than wedging the framer.
func TestZeroLength(t *testing.T) {
	bogus := []byte{0x24, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	frame := buildBlock(4242, 0, []byte{1})

	framer := NewFramer(nil)
	blocks := framer.Feed(append(bogus, frame...))

	if len(blocks) != 1 {
		t.Fatalf("want 1 block got %d", len(blocks))
	}
	if framer.Counters().BadLengths == 0 {
		t.Error("want a bad length to be counted")
	}
}

// TestTwoBlocksOneCall checks that several blocks arriving together are
// all returned in order.
func TestTwoBlocksOneCall(t *testing.T) {
	first := buildBlock(4242, 0, []byte{1})
	second := buildBlock(4013, 0, []byte{2})

	framer := NewFramer(nil)
	blocks := framer.Feed(append(first, second...))

	if len(blocks) != 2 {
		t.Fatalf("want 2 blocks got %d", len(blocks))
	}
	if blocks[0].Type != 4242 || blocks[1].Type != 4013 {
		t.Errorf("want types 4242, 4013 got %d, %d",
			blocks[0].Type, blocks[1].Type)
	}
}

// TestCrcResync checks that a run of consecutive CRC failures makes the
// framer re-scan the failed bytes rather than continuing to trust the
// length fields.
func TestCrcResync(t *testing.T) {
	framer := NewFramer(nil)

	// Feed crcResyncLimit corrupt blocks.
	for i := 0; i < crcResyncLimit; i++ {
		frame := buildBlock(4242, 0, []byte{byte(i), 1, 2, 3})
		frame[9] ^= 0xff
		blocks := framer.Feed(frame)
		if len(blocks) != 0 {
			t.Fatalf("corrupt block %d was accepted", i)
		}
	}

	if framer.Counters().CrcErrors != uint64(crcResyncLimit) {
		t.Errorf("want %d CRC errors got %d",
			crcResyncLimit, framer.Counters().CrcErrors)
	}

	// The framer should still recover and decode valid blocks.  (If the
	// re-scan of the discarded bytes hits a false sync pattern the framer
	// may swallow some input before it recovers, so keep feeding.)
	good := buildBlock(4242, 0, []byte{42})
	var blocks []Block
	for i := 0; i < 10000 && len(blocks) == 0; i++ {
		blocks = framer.Feed(good)
	}
	if len(blocks) == 0 {
		t.Fatal("framer did not recover after a CRC failure run")
	}
	if blocks[0].Payload[0] != 42 {
		t.Errorf("want payload 42 got %d", blocks[0].Payload[0])
	}
}
