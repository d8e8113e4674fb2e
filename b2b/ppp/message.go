// The ppp package parses PPP-B2b correction messages.  A message is the
// 486-bit payload of an LDPC-decoded navigation page: a common header,
// a body whose layout depends on the message subtype, and a 24-bit CRC.
//
// The subtypes carry the parts of a State Space Representation of the
// satellite errors:
//
//	1  satellite mask - which satellite slots later subtypes address
//	2  orbit corrections
//	3  differential code biases
//	4  clock corrections
//	5  user range accuracy
//	6  combined clock and orbit corrections
//	7  combined clock and orbit corrections, with satellite slots
//
// Subtypes 8 to 63 are reserved and pass through with just the header
// filled in.  The result of parsing is a Message holding the header
// fields and exactly one subtype variant.
package ppp

import (
	"errors"
	"fmt"

	"github.com/goblimey/go-b2b/b2b/utils"
)

// Lengths and positions of the header fields in the bit stream.
const lenSubtype = 6
const lenSecondOfDay = 17
const lenNumData = 4
const lenSSRID = 2

// headerLengthBits is the position of the first body field.
const headerLengthBits = lenSubtype + lenSecondOfDay + lenNumData + lenSSRID

// crcPosition is the bit position of the message CRC.
const crcPosition = 462

// lenCRC is the length of the message CRC.
const lenCRC = 24

// messageLengthBits is the total message length including the CRC.
const messageLengthBits = crcPosition + lenCRC

// Subtype numbers.
const (
	SubtypeMask     = 1
	SubtypeOrbit    = 2
	SubtypeDCB      = 3
	SubtypeClock    = 4
	SubtypeURA      = 5
	SubtypeCombined = 6
	// SubtypeCombinedSlots is the variant of the combined message that
	// carries an explicit satellite slot per clock record.
	SubtypeCombinedSlots = 7
)

// maxSubtype is the largest subtype number that fits the field.
// Subtypes above SubtypeCombinedSlots up to this value are reserved.
const maxSubtype = 63

// Message is one parsed PPP-B2b message: the common header plus one
// subtype variant.  Only the variant matching the subtype is non-nil.
type Message struct {
	// Subtype is the message subtype, 1 to 63.
	Subtype uint

	// SecondOfDay is the BDS time of issue within the day, seconds.
	SecondOfDay uint

	// NumData is the issue number within the second.
	NumData uint

	// SSRID identifies the issuer of the correction stream.
	SSRID uint

	// CRC is the 24-bit CRC carried at the end of the message.
	CRC uint32

	// CRCValid is true if the CRC matches the message bits.
	CRCValid bool

	Mask     *MaskMessage
	Orbit    *OrbitMessage
	DCB      *DCBMessage
	Clock    *ClockMessage
	URA      *URAMessage
	Combined *CombinedMessage
}

// Reserved is true if the message has a reserved subtype, carrying no
// body that we know how to parse.
func (message *Message) Reserved() bool {
	return message.Subtype > SubtypeCombinedSlots
}

// String gives a one-line description of the message.
func (message *Message) String() string {
	return fmt.Sprintf("PPP-B2b subtype %d SSR %d second of day %d",
		message.Subtype, message.SSRID, message.SecondOfDay)
}

// GetMessage parses a decoded navigation page payload.  The payload
// must hold at least 486 bits - 462 message bits and the CRC.
func GetMessage(payload []byte) (*Message, error) {

	if len(payload)*8 < messageLengthBits {
		em := fmt.Sprintf("overrun - expected %d bits in a PPP-B2b message, got %d",
			messageLengthBits, len(payload)*8)
		return nil, errors.New(em)
	}

	var pos uint = 0
	subtype := uint(utils.GetBitsAsUint64(payload, pos, lenSubtype))
	pos += lenSubtype
	secondOfDay := uint(utils.GetBitsAsUint64(payload, pos, lenSecondOfDay))
	pos += lenSecondOfDay
	numData := uint(utils.GetBitsAsUint64(payload, pos, lenNumData))
	pos += lenNumData
	ssrID := uint(utils.GetBitsAsUint64(payload, pos, lenSSRID))
	pos += lenSSRID

	crc := uint32(utils.GetBitsAsUint64(payload, crcPosition, lenCRC))

	message := Message{
		Subtype:     subtype,
		SecondOfDay: secondOfDay,
		NumData:     numData,
		SSRID:       ssrID,
		CRC:         crc,
		CRCValid:    utils.CRC24QBits(payload, 0, crcPosition) == crc,
	}

	switch {
	case subtype == SubtypeMask:
		message.Mask = getMask(payload, pos)
	case subtype == SubtypeOrbit:
		message.Orbit = getOrbit(payload, pos)
	case subtype == SubtypeDCB:
		message.DCB = getDCB(payload, pos)
	case subtype == SubtypeClock:
		message.Clock = getClock(payload, pos)
	case subtype == SubtypeURA:
		message.URA = getURA(payload, pos)
	case subtype == SubtypeCombined || subtype == SubtypeCombinedSlots:
		message.Combined = getCombined(payload, pos, subtype)
	case subtype > SubtypeCombinedSlots && subtype <= maxSubtype:
		// Reserved - pass through with just the header.
	default:
		// Subtype zero - not a message.
		em := fmt.Sprintf("unknown PPP-B2b subtype %d", subtype)
		return nil, errors.New(em)
	}

	return &message, nil
}
