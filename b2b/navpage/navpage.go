// The navpage package interprets SBF blocks of type 4242 (BDS Raw B2b).
// Each block carries one navigation page received from a BeiDou satellite
// on the B2b signal: a timestamp, the satellite identifier and 31 32-bit
// words of navigation bits.  The navigation bits are still LDPC-encoded
// at this point - see the ldpc package for the decoder.
package navpage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/goblimey/go-b2b/b2b/sbf"
	"github.com/goblimey/go-b2b/b2b/utils"
)

// minPayloadLength is the smallest payload that contains the fixed
// header fields of a BDS Raw B2b block.
const minPayloadLength = 12

// navBitsOffset is the offset of the navigation words in the payload.
const navBitsOffset = 12

// idlePrefix marks a receiver-internal idle/filler page.  The hex
// rendering of the navigation bits of such a page starts with this text.
const idlePrefix = "EC0FC"

// Page is one BDS Raw B2b navigation page.
type Page struct {
	// TOWms is the receive time - the time of week in milliseconds.
	TOWms uint32

	// Week is the GPS week number (WNc).
	Week uint16

	// SVID is the satellite identifier in the receiver's numbering
	// scheme - see utils.Svid2PRN.
	SVID uint8

	// CRCPassed is true if the receiver's own CRC check of the page
	// passed.
	CRCPassed bool

	// Source identifies the signal the page was received on.
	Source uint8

	// RxChannel is the receiver channel that produced the page.
	RxChannel uint8

	// NavWords holds the 31 32-bit words of navigation bits.
	NavWords [utils.NavWordsPerPage]uint32
}

// ParsePage extracts a Page from an SBF block.  The block must be of
// type 4242 and long enough to hold the navigation words.
func ParsePage(block *sbf.Block) (*Page, error) {

	if block.Type != utils.BlockTypeBDSRawB2b {
		em := fmt.Sprintf("expected block type %d got %d",
			utils.BlockTypeBDSRawB2b, block.Type)
		return nil, errors.New(em)
	}

	if len(block.Payload) < minPayloadLength {
		em := fmt.Sprintf("BDS Raw B2b payload too short - %d bytes",
			len(block.Payload))
		return nil, errors.New(em)
	}

	wantLength := navBitsOffset + utils.NavWordsPerPage*4
	if len(block.Payload) < wantLength {
		em := fmt.Sprintf("BDS Raw B2b payload too short for nav words - want %d bytes got %d",
			wantLength, len(block.Payload))
		return nil, errors.New(em)
	}

	payload := block.Payload

	page := Page{
		TOWms:     binary.LittleEndian.Uint32(payload[0:4]),
		Week:      binary.LittleEndian.Uint16(payload[4:6]),
		SVID:      payload[6],
		CRCPassed: payload[7] != 0,
		Source:    payload[9],
		RxChannel: payload[11],
	}

	for w := 0; w < utils.NavWordsPerPage; w++ {
		offset := navBitsOffset + w*4
		page.NavWords[w] = binary.LittleEndian.Uint32(payload[offset : offset+4])
	}

	return &page, nil
}

// PRN returns the standard GNSS name of the satellite that sent the
// page, for example "C59".
func (page *Page) PRN() string {
	return utils.Svid2PRN(uint16(page.SVID))
}

// TOWSeconds returns the time of week in whole seconds.
func (page *Page) TOWSeconds() uint32 {
	return page.TOWms / 1000
}

// NavBitsHex returns the navigation bits as upper-case hex text, eight
// characters per word - 248 characters in all.  This is the form that
// the LDPC decoder takes as input.
func (page *Page) NavBitsHex() string {
	var builder strings.Builder
	builder.Grow(utils.NavWordsPerPage * 8)
	for _, word := range page.NavWords {
		fmt.Fprintf(&builder, "%08X", word)
	}
	return builder.String()
}

// IsIdle is true if the page is a receiver-internal idle/filler page,
// recognisable by its hex prefix.  Idle pages carry no message and must
// not be fed to the LDPC decoder.
func (page *Page) IsIdle() bool {
	firstWord := fmt.Sprintf("%08X", page.NavWords[0])
	return strings.HasPrefix(firstWord, idlePrefix)
}

// String returns a one-line description of the page, in the style of
// the receiver's own monitoring output.
func (page *Page) String() string {
	return fmt.Sprintf("PPPB2b: TOW=%d WNc=%d PRN=%s CRCPassed=%t Src=%d RxCh=%d",
		page.TOWSeconds(), page.Week, page.PRN(), page.CRCPassed,
		page.Source, page.RxChannel)
}
