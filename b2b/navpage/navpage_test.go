package navpage

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/goblimey/go-b2b/b2b/sbf"
	"github.com/goblimey/go-b2b/b2b/utils"
)

// buildPayload constructs a BDS Raw B2b payload with the given header
// fields and navigation words.
func buildPayload(towMS uint32, week uint16, svid, crcPassed, source, rxChannel uint8, words []uint32) []byte {
	payload := make([]byte, navBitsOffset+utils.NavWordsPerPage*4)
	binary.LittleEndian.PutUint32(payload[0:4], towMS)
	binary.LittleEndian.PutUint16(payload[4:6], week)
	payload[6] = svid
	payload[7] = crcPassed
	payload[9] = source
	payload[11] = rxChannel
	for i, w := range words {
		binary.LittleEndian.PutUint32(payload[navBitsOffset+i*4:], w)
	}
	return payload
}

// TestParsePage checks that the header fields and navigation words are
// extracted correctly.
func TestParsePage(t *testing.T) {
	words := make([]uint32, utils.NavWordsPerPage)
	words[0] = 0x12345678
	words[30] = 0xdeadbeef

	block := sbf.Block{
		Type:    utils.BlockTypeBDSRawB2b,
		Payload: buildPayload(449052000, 2345, 241, 1, 28, 13, words),
	}

	page, err := ParsePage(&block)
	if err != nil {
		t.Fatal(err)
	}

	if page.TOWms != 449052000 {
		t.Errorf("want TOW 449052000 got %d", page.TOWms)
	}
	if page.TOWSeconds() != 449052 {
		t.Errorf("want TOW seconds 449052 got %d", page.TOWSeconds())
	}
	if page.Week != 2345 {
		t.Errorf("want week 2345 got %d", page.Week)
	}
	if page.SVID != 241 {
		t.Errorf("want SVID 241 got %d", page.SVID)
	}
	if !page.CRCPassed {
		t.Error("want CRCPassed")
	}
	if page.Source != 28 {
		t.Errorf("want source 28 got %d", page.Source)
	}
	if page.RxChannel != 13 {
		t.Errorf("want RxChannel 13 got %d", page.RxChannel)
	}
	if page.NavWords[0] != 0x12345678 {
		t.Errorf("want word 0 0x12345678 got 0x%x", page.NavWords[0])
	}
	if page.NavWords[30] != 0xdeadbeef {
		t.Errorf("want word 30 0xdeadbeef got 0x%x", page.NavWords[30])
	}
}

// TestParsePageWrongType checks that a block of another type is refused.
func TestParsePageWrongType(t *testing.T) {
	block := sbf.Block{Type: 4007, Payload: make([]byte, 200)}
	_, err := ParsePage(&block)
	if err == nil {
		t.Error("expected an error for a block of the wrong type")
	}
}

// TestParsePageShort checks that a truncated payload is refused.
func TestParsePageShort(t *testing.T) {
	block := sbf.Block{
		Type:    utils.BlockTypeBDSRawB2b,
		Payload: make([]byte, 20),
	}
	_, err := ParsePage(&block)
	if err == nil {
		t.Error("expected an error for a short payload")
	}
}

// TestNavBitsHex checks the hex rendering of the navigation words.
func TestNavBitsHex(t *testing.T) {
	words := make([]uint32, utils.NavWordsPerPage)
	words[0] = 0x12345678
	words[1] = 0x0000abcd

	block := sbf.Block{
		Type:    utils.BlockTypeBDSRawB2b,
		Payload: buildPayload(0, 0, 199, 1, 0, 0, words),
	}

	page, err := ParsePage(&block)
	if err != nil {
		t.Fatal(err)
	}

	hex := page.NavBitsHex()
	if len(hex) != utils.NavWordsPerPage*8 {
		t.Errorf("want %d hex characters got %d", utils.NavWordsPerPage*8, len(hex))
	}
	if !strings.HasPrefix(hex, "123456780000ABCD") {
		t.Errorf("unexpected hex prefix %s", hex[:16])
	}
}

// TestIsIdle checks the idle page test against a page with the idle
// prefix and a non-idle page.
func TestIsIdle(t *testing.T) {
	words := make([]uint32, utils.NavWordsPerPage)

	// 0xEC0FCxxx in the first word marks an idle page.
	words[0] = 0xec0fc123
	block := sbf.Block{
		Type:    utils.BlockTypeBDSRawB2b,
		Payload: buildPayload(0, 0, 199, 1, 0, 0, words),
	}
	page, err := ParsePage(&block)
	if err != nil {
		t.Fatal(err)
	}
	if !page.IsIdle() {
		t.Error("want idle")
	}

	words[0] = 0x12345678
	block.Payload = buildPayload(0, 0, 199, 1, 0, 0, words)
	page, err = ParsePage(&block)
	if err != nil {
		t.Fatal(err)
	}
	if page.IsIdle() {
		t.Error("want not idle")
	}
}

// TestPageString checks the one-line description.
func TestPageString(t *testing.T) {
	words := make([]uint32, utils.NavWordsPerPage)
	block := sbf.Block{
		Type:    utils.BlockTypeBDSRawB2b,
		Payload: buildPayload(449052000, 2345, 241, 1, 28, 13, words),
	}
	page, err := ParsePage(&block)
	if err != nil {
		t.Fatal(err)
	}

	const want = "PPPB2b: TOW=449052 WNc=2345 PRN=C59 CRCPassed=true Src=28 RxCh=13"
	if page.String() != want {
		t.Errorf("want %s got %s", want, page.String())
	}
}
