// The store package holds the decoder's rolling state: the satellite
// masks, orbit correction sets and clock correction sets received so
// far, and the cross-references between them.
//
// The PPP-B2b stream splits one logical correction across several
// messages.  A mask (subtype 1) says which satellite slots are active.
// Orbit messages (subtype 2) name their satellites directly by slot,
// but clock messages (subtype 4) address satellites by counting set
// bits in the mask, and tie themselves to an orbit generation through a
// small issue number, IODCorr.  The store resolves both indirections at
// ingestion time: each clock entry gets the IODE of the matching orbit
// entry, or -1 if there isn't one, in which case that satellite's clock
// is not usable.
//
// All three tables are bounded rings - when a table is full the oldest
// entry is dropped.
package store

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/goblimey/go-b2b/b2b/gnsstime"
	"github.com/goblimey/go-b2b/b2b/ppp"
	"github.com/goblimey/go-b2b/b2b/utils"
)

// DefaultMaskCapacity is the default depth of the mask table.
const DefaultMaskCapacity = 16

// DefaultCorrectionCapacity is the default depth of the orbit and
// clock tables.
const DefaultCorrectionCapacity = 120

// iodeSearchDepth is how many of the most recent orbit sets are
// searched when resolving a clock's IODCorr to an IODE.
const iodeSearchDepth = 7

// clockRecordsPerSubframe is the number of mask slots that one clock
// message covers.
const clockRecordsPerSubframe = 23

// MaskSet is one received satellite mask.
type MaskSet struct {
	SSRID int
	IODP  int
	Slots [utils.MaxSatSlot]bool
}

// OrbitSet accumulates the orbit corrections for one epoch of one
// issuer.  The arrays are indexed by satellite slot minus one.  A slot
// with IODE -1 has no correction.
type OrbitSet struct {
	SSRID int
	Week  int
	Sow   float64

	RAC     [utils.MaxSatSlot][3]float64
	URA     [utils.MaxSatSlot]float64
	IODE    [utils.MaxSatSlot]int
	IODCorr [utils.MaxSatSlot]int
}

// ClockSet accumulates the clock corrections for one epoch of one
// issuer, in the same shape as OrbitSet.
type ClockSet struct {
	SSRID int
	IODP  int
	Week  int
	Sow   float64

	C0      [utils.MaxSatSlot]float64
	IODE    [utils.MaxSatSlot]int
	IODCorr [utils.MaxSatSlot]int
}

// Store owns the three correction tables.  It's not safe for
// concurrent use - all calls must come from the ingestion goroutine.
type Store struct {
	masks  *ring[MaskSet]
	orbits *ring[OrbitSet]
	clocks *ring[ClockSet]
	logger *slog.Logger
}

// New creates a store with the given table depths.  Zero or negative
// depths get the defaults.  The logger may be nil.
func New(maskCapacity, correctionCapacity int, logger *slog.Logger) *Store {
	if maskCapacity <= 0 {
		maskCapacity = DefaultMaskCapacity
	}
	if correctionCapacity <= 0 {
		correctionCapacity = DefaultCorrectionCapacity
	}
	if logger == nil {
		logger = utils.DiscardLogger()
	}
	store := Store{
		masks:  newRing[MaskSet](maskCapacity),
		orbits: newRing[OrbitSet](correctionCapacity),
		clocks: newRing[ClockSet](correctionCapacity),
		logger: logger,
	}
	return &store
}

// MaskCount returns the number of masks on hand.
func (store *Store) MaskCount() int { return store.masks.len() }

// OrbitCount returns the number of orbit sets on hand.
func (store *Store) OrbitCount() int { return store.orbits.len() }

// ClockCount returns the number of clock sets on hand.
func (store *Store) ClockCount() int { return store.clocks.len() }

// MaskAt returns the i-th mask in arrival order - 0 is the oldest.
func (store *Store) MaskAt(i int) *MaskSet { return store.masks.at(i) }

// OrbitAt returns the i-th orbit set in arrival order.
func (store *Store) OrbitAt(i int) *OrbitSet { return store.orbits.at(i) }

// ClockAt returns the i-th clock set in arrival order.
func (store *Store) ClockAt(i int) *ClockSet { return store.clocks.at(i) }

// IngestMask takes a subtype 1 message.  If a mask with the same SSR
// and IODP is already on hand this is a duplicate and nothing changes.
// Otherwise the mask is appended, dropping the oldest if the table is
// full.  The result is true if the mask was new.
func (store *Store) IngestMask(ssrID int, mask *ppp.MaskMessage) bool {

	for i := 0; i < store.masks.len(); i++ {
		existing := store.masks.at(i)
		if existing.SSRID != ssrID {
			continue
		}
		if existing.IODP == int(mask.IODP) {
			// A repeat of a mask we already have.
			return false
		}
	}

	entry := store.masks.push()
	entry.SSRID = ssrID
	entry.IODP = int(mask.IODP)
	for slot := 0; slot < utils.MaxSatSlot; slot++ {
		entry.Slots[slot] = mask.SlotMask[slot]
	}

	store.logger.Info("new satellite mask",
		"ssr", ssrID, "iodp", entry.IODP, "satellites", mask.SlotCount())

	return true
}

// findMask returns the first mask with the given IODP, or nil.
func (store *Store) findMask(iodp int) *MaskSet {
	for i := 0; i < store.masks.len(); i++ {
		if store.masks.at(i).IODP == iodp {
			return store.masks.at(i)
		}
	}
	return nil
}

// IngestOrbit takes a subtype 2 message with its epoch.  The message's
// sub-records are merged into the orbit set with the same issuer and
// epoch, allocating a fresh set if there isn't one.  The result is the
// set that was updated plus, if this epoch superseded an earlier one
// from the same issuer, the set that is now complete.
func (store *Store) IngestOrbit(ssrID, week int, sow float64, orbit *ppp.OrbitMessage) (updated, completed *OrbitSet) {

	entry := store.findOrbit(ssrID, week, sow)

	if entry == nil {
		entry = store.orbits.push()
		entry.SSRID = ssrID
		entry.Week = week
		entry.Sow = sow
		for slot := 0; slot < utils.MaxSatSlot; slot++ {
			entry.IODE[slot] = -1
			entry.IODCorr[slot] = -1
		}

		// Opening a new epoch supersedes the issuer's previous one.
		// Surface that set - all of its messages have now arrived.
		matches := 0
		for i := store.orbits.len() - 1; i >= 0; i-- {
			candidate := store.orbits.at(i)
			if candidate.SSRID != ssrID {
				continue
			}
			matches++
			if matches == 2 {
				completed = candidate
				break
			}
		}
	}

	for i := range orbit.Records {
		record := &orbit.Records[i]
		if record.Empty() {
			continue
		}
		slot := record.SatSlot - 1
		if slot < 0 || slot >= utils.MaxSatSlot {
			continue
		}
		entry.RAC[slot] = record.RAC()
		entry.IODCorr[slot] = record.IODCorr
		entry.IODE[slot] = record.IODN
		entry.URA[slot] = record.URA
	}

	return entry, completed
}

// findOrbit returns the orbit set with the given issuer and epoch, or
// nil.  Epochs match on the whole second.
func (store *Store) findOrbit(ssrID, week int, sow float64) *OrbitSet {
	for i := 0; i < store.orbits.len(); i++ {
		entry := store.orbits.at(i)
		if entry.SSRID != ssrID || entry.Week != week || int(entry.Sow) != int(sow) {
			continue
		}
		return entry
	}
	return nil
}

// LookupIODE resolves a clock record's IODCorr to the IODE of the
// matching orbit correction.  Only the last few orbit sets are
// searched - an IODCorr is a tiny number that wraps quickly, so an old
// match would be wrong, not stale.  The result is -1 if there is no
// match, in which case the clock for that satellite is unusable.
func (store *Store) LookupIODE(ssrID, slot, iodCorr int) int {
	first := store.orbits.len() - iodeSearchDepth
	if first < 0 {
		first = 0
	}
	for i := store.orbits.len() - 1; i >= first; i-- {
		entry := store.orbits.at(i)
		if entry.SSRID != ssrID {
			continue
		}
		if entry.IODCorr[slot] == iodCorr {
			return entry.IODE[slot]
		}
	}
	return -1
}

// IngestClock takes a subtype 4 message with its epoch.  The message's
// records are resolved to satellite slots through the mask with the
// message's IODP and merged into the clock set with the same issuer
// and epoch.  If the mask hasn't arrived yet the records cannot be
// placed: the set is returned unchanged and maskFound is false.
func (store *Store) IngestClock(ssrID, week int, sow float64, clock *ppp.ClockMessage) (updated *ClockSet, maskFound bool) {

	entry := store.findClock(ssrID, week, sow)

	if entry == nil {
		entry = store.clocks.push()
		entry.SSRID = ssrID
		entry.Week = week
		entry.Sow = sow
		entry.IODP = int(clock.IODP)
		for slot := 0; slot < utils.MaxSatSlot; slot++ {
			entry.IODE[slot] = -1
			entry.IODCorr[slot] = -1
		}
	}

	mask := store.findMask(entry.IODP)
	if mask == nil {
		store.logger.Warn("clock message before its mask",
			"ssr", ssrID, "iodp", entry.IODP)
		return entry, false
	}

	for i := range clock.Records {
		slot := subframeSlot(mask, int(clock.Subframe), i+1)
		if slot == -1 {
			continue
		}
		record := &clock.Records[i]
		entry.C0[slot] = record.C0
		if record.Unavailable() {
			// The sentinel value - record it but leave the issue
			// numbers alone so the slot stays unusable.
			continue
		}
		entry.IODCorr[slot] = record.IODCorr
		entry.IODE[slot] = store.LookupIODE(ssrID, slot, record.IODCorr)
	}

	return entry, true
}

// IngestCombinedClocks merges clock records that name their satellite
// slots directly (the subtype 7 form) into the clock set for the given
// issuer and epoch.  The sentinel handling matches IngestClock.
func (store *Store) IngestCombinedClocks(ssrID, week int, sow float64, iodp int, records []ppp.CombinedClockRecord) *ClockSet {

	entry := store.findClock(ssrID, week, sow)
	if entry == nil {
		entry = store.clocks.push()
		entry.SSRID = ssrID
		entry.Week = week
		entry.Sow = sow
		entry.IODP = iodp
		for slot := 0; slot < utils.MaxSatSlot; slot++ {
			entry.IODE[slot] = -1
			entry.IODCorr[slot] = -1
		}
	}

	for i := range records {
		record := &records[i]
		slot := record.SatSlot - 1
		if slot < 0 || slot >= utils.MaxSatSlot {
			continue
		}
		entry.C0[slot] = record.C0
		sentinel := ppp.ClockRecord{C0: record.C0}
		if sentinel.Unavailable() {
			continue
		}
		entry.IODCorr[slot] = record.IODCorr
		entry.IODE[slot] = store.LookupIODE(ssrID, slot, record.IODCorr)
	}

	return entry
}

// findClock returns the clock set with the given issuer and epoch, or
// nil.
func (store *Store) findClock(ssrID, week int, sow float64) *ClockSet {
	for i := 0; i < store.clocks.len(); i++ {
		entry := store.clocks.at(i)
		if entry.SSRID != ssrID || entry.Week != week || int(entry.Sow) != int(sow) {
			continue
		}
		return entry
	}
	return nil
}

// subframeSlot finds the satellite slot (0-based) addressed by record
// ix (1-based) of a clock subframe: the n-th set bit of the mask,
// where n is the subframe number times 23 plus ix.  The result is -1
// if the mask has fewer set bits than that.
func subframeSlot(mask *MaskSet, subframe, ix int) int {
	wanted := subframe*clockRecordsPerSubframe + ix
	seen := 0
	for slot := 0; slot < utils.MaxSatSlot; slot++ {
		if mask.Slots[slot] {
			seen++
		}
		if seen == wanted {
			return slot
		}
	}
	return -1
}

// Time returns the epoch of the orbit set.
func (orbitSet *OrbitSet) Time() (week int, sow float64) {
	return orbitSet.Week, orbitSet.Sow
}

// SatCount returns the number of satellites with a correction.
func (orbitSet *OrbitSet) SatCount() int {
	count := 0
	for slot := 0; slot < utils.MaxSatSlot; slot++ {
		if orbitSet.IODE[slot] != -1 {
			count++
		}
	}
	return count
}

// String renders the orbit set in the classic clock/orbit file format:
// a "> ORBIT" header line giving the civil date and the satellite
// count, then one line per satellite.
func (orbitSet *OrbitSet) String() string {
	var builder strings.Builder

	writeEpochHeader(&builder, "ORBIT", orbitSet.Week, orbitSet.Sow, orbitSet.SatCount())

	for slot := 0; slot < utils.MaxSatSlot; slot++ {
		if orbitSet.IODE[slot] == -1 {
			continue
		}
		system := utils.SystemForSlot(slot + 1)
		if system == 0 {
			continue
		}
		fmt.Fprintf(&builder, "%c%02d %10d %11.4f %11.4f %11.4f %11.4f %11.4f %11.4f\n",
			system, utils.NumberForSlot(slot+1), orbitSet.IODE[slot],
			orbitSet.RAC[slot][0], orbitSet.RAC[slot][1], orbitSet.RAC[slot][2],
			0.0, 0.0, 0.0)
	}

	return builder.String()
}

// SatCount returns the number of satellites with a usable clock.
func (clockSet *ClockSet) SatCount() int {
	count := 0
	for slot := 0; slot < utils.MaxSatSlot; slot++ {
		if clockSet.IODE[slot] != -1 {
			count++
		}
	}
	return count
}

// String renders the clock set in the classic clock/orbit file format.
func (clockSet *ClockSet) String() string {
	var builder strings.Builder

	writeEpochHeader(&builder, "CLOCK", clockSet.Week, clockSet.Sow, clockSet.SatCount())

	for slot := 0; slot < utils.MaxSatSlot; slot++ {
		if clockSet.IODE[slot] == -1 {
			continue
		}
		system := utils.SystemForSlot(slot + 1)
		if system == 0 {
			continue
		}
		fmt.Fprintf(&builder, "%c%02d %10d %11.4f %11.4f %11.4f\n",
			system, utils.NumberForSlot(slot+1), clockSet.IODE[slot],
			clockSet.C0[slot], 0.0, 0.0)
	}

	return builder.String()
}

// writeEpochHeader writes the "> ORBIT yyyy mm dd hh mm ss.s 2 n CLK01"
// header line shared by the two renderings.  The week is a BDS week,
// shown as a civil date via the GPS week.
func writeEpochHeader(builder *strings.Builder, what string, week int, sow float64, satCount int) {
	mjd, sod := gnsstime.WkSow2MJD(week+gnsstime.BDSWeekToGPSWeek, sow)
	year, month, day, hour, minute, second := gnsstime.MJD2Date(mjd, sod)
	fmt.Fprintf(builder, "> %s %04d %02d %02d %02d %02d %4.1f %d %d CLK01\n",
		what, year, month, day, hour, minute, second, 2, satCount)
}
