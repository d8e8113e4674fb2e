package ppp

import (
	"github.com/goblimey/go-b2b/b2b/utils"
)

// Field lengths for the subtype 6 and 7 (combined clock and orbit)
// bodies.  These subtypes are reproduced from the interface spec but
// have not been seen in live traffic, so their ingestion is behind a
// feature flag - see the handler package.
const lenCombinedClockCount = 5
const lenCombinedOrbitCount = 3
const lenTimeOfIssue = 17
const lenDEV = 4
const lenIODSSR = 2
const lenCombinedSlotStart = 9

// maxCombinedClockRecords bounds the clock record count.
const maxCombinedClockRecords = 22

// maxCombinedOrbitRecords bounds the orbit record count.
const maxCombinedOrbitRecords = 6

// CombinedClockRecord is one clock record of a combined message.  In a
// subtype 7 message each record names its satellite slot; in a subtype
// 6 message the slots run on from the message's SlotStart.
type CombinedClockRecord struct {
	// SatSlot is the satellite slot.  Only set for subtype 7.
	SatSlot int

	IODCorr int
	C0      float64
}

// CombinedMessage is a subtype 6 or 7 message: a clock block and an
// orbit block in one message.
type CombinedMessage struct {
	// ClockCount and OrbitCount give the number of records in each
	// block.
	ClockCount uint
	OrbitCount uint

	// ClockTimeOfIssue and OrbitTimeOfIssue are the issue times of the
	// blocks, seconds within the day.
	ClockTimeOfIssue uint
	OrbitTimeOfIssue uint

	// IODSSR is the issue number of the SSR configuration.
	IODSSR uint

	// IODP and SlotStart control the mask addressing of the clock
	// block.  Only set for subtype 6.
	IODP      uint
	SlotStart int

	ClockRecords []CombinedClockRecord
	OrbitRecords []OrbitRecord
}

// getCombined parses the body of a subtype 6 or 7 message starting at
// the given bit position.
func getCombined(payload []byte, pos uint, subtype uint) *CombinedMessage {
	var combined CombinedMessage
	limit := uint(len(payload)) * 8

	combined.ClockCount = uint(utils.GetBitsAsUint64(payload, pos, lenCombinedClockCount))
	pos += lenCombinedClockCount
	combined.OrbitCount = uint(utils.GetBitsAsUint64(payload, pos, lenCombinedOrbitCount))
	pos += lenCombinedOrbitCount

	// The clock block.
	combined.ClockTimeOfIssue = uint(utils.GetBitsAsUint64(payload, pos, lenTimeOfIssue))
	pos += lenTimeOfIssue
	pos += lenDEV
	combined.IODSSR = uint(utils.GetBitsAsUint64(payload, pos, lenIODSSR))
	pos += lenIODSSR
	if subtype == SubtypeCombined {
		combined.IODP = uint(utils.GetBitsAsUint64(payload, pos, lenIODP))
		pos += lenIODP
		combined.SlotStart = int(utils.GetBitsAsUint64(payload, pos, lenCombinedSlotStart))
		pos += lenCombinedSlotStart
	}

	for i := uint(0); i < combined.ClockCount && i < maxCombinedClockRecords; i++ {
		var record CombinedClockRecord
		if subtype == SubtypeCombinedSlots {
			if pos+lenSatSlot+lenIODCorr+lenC0 > limit {
				break
			}
			record.SatSlot = int(utils.GetBitsAsUint64(payload, pos, lenSatSlot))
			pos += lenSatSlot
		} else if pos+lenIODCorr+lenC0 > limit {
			break
		}
		record.IODCorr = int(utils.GetBitsAsUint64(payload, pos, lenIODCorr))
		pos += lenIODCorr
		record.C0 = float64(utils.GetBitsAsInt64(payload, pos, lenC0)) * clockScale
		pos += lenC0
		combined.ClockRecords = append(combined.ClockRecords, record)
	}

	// The orbit block.
	if pos+lenTimeOfIssue+lenDEV+lenIODSSR > limit {
		return &combined
	}
	combined.OrbitTimeOfIssue = uint(utils.GetBitsAsUint64(payload, pos, lenTimeOfIssue))
	pos += lenTimeOfIssue
	pos += lenDEV
	pos += lenIODSSR

	const lenOrbitRecord = lenSatSlot + lenIODN + lenIODCorr +
		lenRadial + lenAlong + lenCross + lenURAClass + lenURAValue
	for i := uint(0); i < combined.OrbitCount && i < maxCombinedOrbitRecords; i++ {
		if pos+lenOrbitRecord > limit {
			break
		}
		var record OrbitRecord
		record, pos = getOrbitRecord(payload, pos)
		combined.OrbitRecords = append(combined.OrbitRecords, record)
	}

	return &combined
}
