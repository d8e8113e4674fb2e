package ppp

import (
	"github.com/goblimey/go-b2b/b2b/utils"
)

// Field lengths for the subtype 5 (user range accuracy) body.
const lenURASubframe = 3

// uraRecordsPerMessage is the number of accuracy records in a subtype 5
// message.
const uraRecordsPerMessage = 70

// URARecord is the quantised accuracy for one masked satellite.  As
// with clock records, the satellite is identified by counting set bits
// in the mask.
type URARecord struct {
	URAClass uint
	URAValue uint

	// URA is the accuracy bound in metres.
	URA float64
}

// URAMessage is a subtype 5 message: accuracies for one 70-slot window
// of the mask.
type URAMessage struct {
	IODP     uint
	Subframe uint
	Records  [uraRecordsPerMessage]URARecord
}

// getURA parses the body of a subtype 5 message starting at the given
// bit position.
func getURA(payload []byte, pos uint) *URAMessage {
	var ura URAMessage
	ura.IODP = uint(utils.GetBitsAsUint64(payload, pos, lenIODP))
	pos += lenIODP
	ura.Subframe = uint(utils.GetBitsAsUint64(payload, pos, lenURASubframe))
	pos += lenURASubframe
	for i := 0; i < uraRecordsPerMessage; i++ {
		ura.Records[i].URAClass = uint(utils.GetBitsAsUint64(payload, pos, lenURAClass))
		pos += lenURAClass
		ura.Records[i].URAValue = uint(utils.GetBitsAsUint64(payload, pos, lenURAValue))
		pos += lenURAValue
		ura.Records[i].URA = uraFromClassValue(ura.Records[i].URAClass, ura.Records[i].URAValue)
	}
	return &ura
}
