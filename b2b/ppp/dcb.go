package ppp

import (
	"github.com/goblimey/go-b2b/b2b/utils"
)

// Field lengths for the subtype 3 (differential code bias) body.
const lenDCBCount = 5
const lenDCBPairCount = 4
const lenDCBPattern = 4
const lenDCBDeviation = 12

// dcbScale is the bias scale factor, metres per least significant bit.
const dcbScale = 0.017

// maxDCBRecords bounds the record count field.
const maxDCBRecords = 31

// maxDCBPairs bounds the per-satellite signal pair count.
const maxDCBPairs = 15

// DCBPair is one signal's bias for one satellite.  The pattern selects
// the signal and tracking mode.
type DCBPair struct {
	Pattern   uint
	Deviation float64
}

// DCBRecord carries the code biases for one satellite.
type DCBRecord struct {
	SatSlot int
	Pairs   []DCBPair
}

// DCBMessage is a subtype 3 message - differential code biases for a
// variable number of satellites.
type DCBMessage struct {
	Records []DCBRecord
}

// getDCB parses the body of a subtype 3 message starting at the given
// bit position.
func getDCB(payload []byte, pos uint) *DCBMessage {
	var dcb DCBMessage
	count := uint(utils.GetBitsAsUint64(payload, pos, lenDCBCount))
	pos += lenDCBCount
	limit := uint(len(payload)) * 8
	for i := uint(0); i < count && i < maxDCBRecords; i++ {
		if pos+lenSatSlot+lenDCBPairCount > limit {
			// A corrupt count pointing past the end of the message.
			break
		}
		var record DCBRecord
		record.SatSlot = int(utils.GetBitsAsUint64(payload, pos, lenSatSlot))
		pos += lenSatSlot
		pairs := uint(utils.GetBitsAsUint64(payload, pos, lenDCBPairCount))
		pos += lenDCBPairCount
		for j := uint(0); j < pairs && j < maxDCBPairs; j++ {
			if pos+lenDCBPattern+lenDCBDeviation > limit {
				break
			}
			var pair DCBPair
			pair.Pattern = uint(utils.GetBitsAsUint64(payload, pos, lenDCBPattern))
			pos += lenDCBPattern
			pair.Deviation = float64(utils.GetBitsAsInt64(payload, pos, lenDCBDeviation)) * dcbScale
			pos += lenDCBDeviation
			record.Pairs = append(record.Pairs, pair)
		}
		dcb.Records = append(dcb.Records, record)
	}
	return &dcb
}
