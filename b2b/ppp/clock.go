package ppp

import (
	"math"

	"github.com/goblimey/go-b2b/b2b/utils"
)

// Field lengths for the subtype 4 (clock correction) body.
const lenClockSubframe = 5
const lenC0 = 15
const lenClockReserved = 10

// clockScale is the C0 scale factor, metres per least significant bit.
const clockScale = 0.0016

// clockRecordsPerMessage is the number of clock sub-records in a
// subtype 4 message.
const clockRecordsPerMessage = 23

// ClockRecord is one clock correction sub-record.  The satellite it
// applies to is not named here - it's found by counting set bits in the
// mask, using the message's subframe number and the record's position.
type ClockRecord struct {
	// IODCorr is the issue number of the orbit correction generation
	// that the clock belongs with.
	IODCorr int

	// C0 is the clock correction in metres.
	C0 float64
}

// Unavailable is true if the record carries the "correction not
// available" sentinel instead of a usable value.
func (record *ClockRecord) Unavailable() bool {
	return math.Abs(math.Abs(record.C0)-utils.ClockUnavailableMetres) <
		utils.ClockUnavailableTolerance
}

// ClockMessage is a subtype 4 message: 23 clock sub-records covering
// one 23-slot window of the mask.
type ClockMessage struct {
	// IODP quotes the issue number of the mask that the subframe
	// addressing was encoded against.
	IODP uint

	// Subframe says which window of 23 mask slots the records cover -
	// subframe 0 covers the first 23 set bits, subframe 1 the next 23,
	// and so on.
	Subframe uint

	Records [clockRecordsPerMessage]ClockRecord

	// Reserved is the 10-bit tail of the body.
	Reserved uint
}

// getClock parses the body of a subtype 4 message starting at the
// given bit position.
func getClock(payload []byte, pos uint) *ClockMessage {
	var clock ClockMessage
	clock.IODP = uint(utils.GetBitsAsUint64(payload, pos, lenIODP))
	pos += lenIODP
	clock.Subframe = uint(utils.GetBitsAsUint64(payload, pos, lenClockSubframe))
	pos += lenClockSubframe
	for i := 0; i < clockRecordsPerMessage; i++ {
		clock.Records[i].IODCorr = int(utils.GetBitsAsUint64(payload, pos, lenIODCorr))
		pos += lenIODCorr
		clock.Records[i].C0 = float64(utils.GetBitsAsInt64(payload, pos, lenC0)) * clockScale
		pos += lenC0
	}
	clock.Reserved = uint(utils.GetBitsAsUint64(payload, pos, lenClockReserved))
	return &clock
}
