package ppp

import (
	"github.com/goblimey/go-b2b/b2b/utils"
)

// Field lengths for the subtype 1 (satellite mask) body.
const lenIODP = 4
const lenMaskReserved = 174

// MaskMessage is a subtype 1 message.  It declares which of the 255
// satellite slots the issuer is currently sending corrections for.
// Later clock messages address satellites by their position among the
// set bits of this mask, so a mask must be on hand before those can be
// resolved.
type MaskMessage struct {
	// IODP is the issue number of the mask.  A clock message quotes
	// the IODP of the mask it was encoded against.
	IODP uint

	// SlotMask has one entry per satellite slot.  A true value means
	// that the slot is included in subsequent subtype addressing.
	SlotMask [utils.MaxSatSlot]bool
}

// SlotCount returns the number of slots included in the mask.
func (mask *MaskMessage) SlotCount() int {
	count := 0
	for _, set := range mask.SlotMask {
		if set {
			count++
		}
	}
	return count
}

// getMask parses the body of a subtype 1 message starting at the given
// bit position.
func getMask(payload []byte, pos uint) *MaskMessage {
	var mask MaskMessage
	mask.IODP = uint(utils.GetBitsAsUint64(payload, pos, lenIODP))
	pos += lenIODP
	for slot := 0; slot < utils.MaxSatSlot; slot++ {
		mask.SlotMask[slot] = utils.GetBitsAsUint64(payload, pos, 1) == 1
		pos++
	}
	// The rest of the body is reserved.
	return &mask
}
