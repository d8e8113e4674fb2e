package ppp

import (
	"math"

	"github.com/goblimey/go-b2b/b2b/utils"
)

// Field lengths for an orbit correction sub-record.
const lenSatSlot = 9
const lenIODN = 10
const lenIODCorr = 3
const lenRadial = 15
const lenAlong = 13
const lenCross = 13
const lenURAClass = 3
const lenURAValue = 3

// Scale factors, metres per least significant bit.
const radialScale = 0.0016
const alongScale = 0.0064
const crossScale = 0.0064

// orbitRecordsPerMessage is the number of sub-records in a subtype 2
// message.
const orbitRecordsPerMessage = 6

// OrbitRecord is one orbit correction sub-record: the correction to one
// satellite's broadcast orbit in the satellite frame.
type OrbitRecord struct {
	// SatSlot is the satellite slot, 1-based.  See utils.SystemForSlot.
	SatSlot int

	// IODN is the issue number of the broadcast ephemeris that the
	// correction applies to.
	IODN int

	// IODCorr is the issue number of the correction itself.  A later
	// clock message quotes this to say which orbit generation it
	// belongs with.
	IODCorr int

	// Radial, Along and Cross are the correction components in metres:
	// radial, along-track and cross-track.
	Radial float64
	Along  float64
	Cross  float64

	// URAClass and URAValue quantise the accuracy of the correction.
	URAClass uint
	URAValue uint

	// URA is the accuracy bound in metres derived from URAClass and
	// URAValue.  Zero marks an empty sub-record.
	URA float64
}

// Empty is true if the sub-record is a filler - the issuer pads a
// message that corrects fewer than six satellites.
func (record *OrbitRecord) Empty() bool {
	return record.URA == 0
}

// RAC returns the correction components as a vector - radial,
// along-track, cross-track.
func (record *OrbitRecord) RAC() [3]float64 {
	return [3]float64{record.Radial, record.Along, record.Cross}
}

// OrbitMessage is a subtype 2 message - six orbit correction
// sub-records, some possibly empty.
type OrbitMessage struct {
	Records [orbitRecordsPerMessage]OrbitRecord
}

// uraFromClassValue converts the quantised accuracy fields to a bound
// in metres.
func uraFromClassValue(class, value uint) float64 {
	return math.Pow(3, float64(class))*(1+0.25*float64(value)) - 1
}

// getOrbitRecord parses one orbit sub-record at the given bit position
// and returns the record and the position of the next field.
func getOrbitRecord(payload []byte, pos uint) (OrbitRecord, uint) {
	var record OrbitRecord
	record.SatSlot = int(utils.GetBitsAsUint64(payload, pos, lenSatSlot))
	pos += lenSatSlot
	record.IODN = int(utils.GetBitsAsUint64(payload, pos, lenIODN))
	pos += lenIODN
	record.IODCorr = int(utils.GetBitsAsUint64(payload, pos, lenIODCorr))
	pos += lenIODCorr
	record.Radial = float64(utils.GetBitsAsInt64(payload, pos, lenRadial)) * radialScale
	pos += lenRadial
	record.Along = float64(utils.GetBitsAsInt64(payload, pos, lenAlong)) * alongScale
	pos += lenAlong
	record.Cross = float64(utils.GetBitsAsInt64(payload, pos, lenCross)) * crossScale
	pos += lenCross
	record.URAClass = uint(utils.GetBitsAsUint64(payload, pos, lenURAClass))
	pos += lenURAClass
	record.URAValue = uint(utils.GetBitsAsUint64(payload, pos, lenURAValue))
	pos += lenURAValue
	record.URA = uraFromClassValue(record.URAClass, record.URAValue)
	return record, pos
}

// getOrbit parses the body of a subtype 2 message starting at the
// given bit position.
func getOrbit(payload []byte, pos uint) *OrbitMessage {
	var orbit OrbitMessage
	for i := 0; i < orbitRecordsPerMessage; i++ {
		orbit.Records[i], pos = getOrbitRecord(payload, pos)
	}
	// A 19-bit reserved field follows.
	return &orbit
}
