package store

import (
	"testing"

	"github.com/goblimey/go-b2b/b2b/ppp"

	"github.com/kylelemons/godebug/diff"
)

// maskWithSlots builds a mask message with the given slots (1-based)
// set.
func maskWithSlots(iodp uint, slots ...int) *ppp.MaskMessage {
	mask := ppp.MaskMessage{IODP: iodp}
	for _, slot := range slots {
		mask.SlotMask[slot-1] = true
	}
	return &mask
}

// orbitWithRecords builds an orbit message from the given records,
// padding the rest with empty ones.
func orbitWithRecords(records ...ppp.OrbitRecord) *ppp.OrbitMessage {
	var orbit ppp.OrbitMessage
	copy(orbit.Records[:], records)
	return &orbit
}

// orbitRecord builds a non-empty orbit record.
func orbitRecord(slot, iodn, iodCorr int, radial float64) ppp.OrbitRecord {
	return ppp.OrbitRecord{
		SatSlot: slot,
		IODN:    iodn,
		IODCorr: iodCorr,
		Radial:  radial,
		Along:   radial / 2,
		Cross:   radial / 4,
		URA:     2.5,
	}
}

// TestIngestMask checks mask storage, duplicate suppression and the
// FIFO capacity.
func TestIngestMask(t *testing.T) {
	store := New(16, 120, nil)

	if !store.IngestMask(1, maskWithSlots(3, 1, 2, 60)) {
		t.Error("first mask should be new")
	}
	if store.IngestMask(1, maskWithSlots(3, 1, 2, 60)) {
		t.Error("repeated mask should be a no-op")
	}
	if store.MaskCount() != 1 {
		t.Errorf("want 1 mask got %d", store.MaskCount())
	}

	// A different IODP for the same issuer is a new mask.
	if !store.IngestMask(1, maskWithSlots(4, 1, 2)) {
		t.Error("mask with a new IODP should be new")
	}
	// The same IODP from a different issuer is also new.
	if !store.IngestMask(2, maskWithSlots(3, 1)) {
		t.Error("mask from a new issuer should be new")
	}
	if store.MaskCount() != 3 {
		t.Errorf("want 3 masks got %d", store.MaskCount())
	}
}

// TestMaskCapacity checks that the 17th distinct mask displaces the
// oldest.
func TestMaskCapacity(t *testing.T) {
	store := New(16, 120, nil)

	for iodp := 0; iodp < 17; iodp++ {
		store.IngestMask(1, maskWithSlots(uint(iodp), 1))
	}

	if store.MaskCount() != 16 {
		t.Fatalf("want 16 masks got %d", store.MaskCount())
	}
	// The oldest remaining mask should be IODP 1 - IODP 0 was evicted.
	if store.MaskAt(0).IODP != 1 {
		t.Errorf("want oldest mask IODP 1 got %d", store.MaskAt(0).IODP)
	}
	if store.MaskAt(15).IODP != 16 {
		t.Errorf("want newest mask IODP 16 got %d", store.MaskAt(15).IODP)
	}
}

// TestIngestOrbit checks sub-record merging and the epoch keying.
func TestIngestOrbit(t *testing.T) {
	store := New(16, 120, nil)

	updated, completed := store.IngestOrbit(1, 900, 100,
		orbitWithRecords(orbitRecord(5, 123, 3, 0.5)))
	if completed != nil {
		t.Error("first epoch should complete nothing")
	}
	if updated.IODE[4] != 123 || updated.IODCorr[4] != 3 {
		t.Errorf("slot 5 not written - IODE %d IODCorr %d",
			updated.IODE[4], updated.IODCorr[4])
	}
	if updated.IODE[0] != -1 {
		t.Error("untouched slots should have IODE -1")
	}

	// Another message for the same epoch merges into the same set.
	updated2, completed := store.IngestOrbit(1, 900, 100,
		orbitWithRecords(orbitRecord(6, 200, 1, 0.25)))
	if completed != nil {
		t.Error("merging should complete nothing")
	}
	if updated2 != updated {
		t.Error("same epoch should merge into the same set")
	}
	if store.OrbitCount() != 1 {
		t.Errorf("want 1 orbit set got %d", store.OrbitCount())
	}
	if updated2.IODE[5] != 200 {
		t.Error("slot 6 not merged")
	}

	// An empty sub-record changes nothing.
	var empty ppp.OrbitRecord
	empty.SatSlot = 7
	store.IngestOrbit(1, 900, 100, orbitWithRecords(empty))
	if updated.IODE[6] != -1 {
		t.Error("an empty sub-record should not be stored")
	}

	// A new epoch allocates a new set and completes the old one.
	_, completed = store.IngestOrbit(1, 900, 105,
		orbitWithRecords(orbitRecord(5, 124, 4, 0.5)))
	if completed != updated {
		t.Error("opening a new epoch should complete the previous one")
	}
	if store.OrbitCount() != 2 {
		t.Errorf("want 2 orbit sets got %d", store.OrbitCount())
	}

	// A new epoch from a different issuer completes nothing.
	_, completed = store.IngestOrbit(2, 900, 105,
		orbitWithRecords(orbitRecord(5, 50, 1, 0.5)))
	if completed != nil {
		t.Error("another issuer's first epoch should complete nothing")
	}
}

// TestOrbitCapacity checks the FIFO behaviour of the orbit ring.
func TestOrbitCapacity(t *testing.T) {
	store := New(16, 120, nil)

	for epoch := 0; epoch < 121; epoch++ {
		store.IngestOrbit(1, 900, float64(epoch*5),
			orbitWithRecords(orbitRecord(5, epoch, 1, 0.5)))
	}

	if store.OrbitCount() != 120 {
		t.Fatalf("want 120 orbit sets got %d", store.OrbitCount())
	}
	// The set for epoch 0 was evicted, so the oldest is epoch 1.
	if store.OrbitAt(0).Sow != 5 {
		t.Errorf("want oldest sow 5 got %f", store.OrbitAt(0).Sow)
	}
}

// TestLookupIODE checks the IODCorr to IODE cross-reference, including
// the search depth limit.
func TestLookupIODE(t *testing.T) {
	store := New(16, 120, nil)

	// An orbit set with slot 5 at IODCorr 3, IODE 123.
	store.IngestOrbit(1, 900, 0, orbitWithRecords(orbitRecord(5, 123, 3, 0.5)))

	if got := store.LookupIODE(1, 4, 3); got != 123 {
		t.Errorf("want IODE 123 got %d", got)
	}
	if got := store.LookupIODE(1, 4, 2); got != -1 {
		t.Errorf("want -1 for an unknown IODCorr, got %d", got)
	}
	if got := store.LookupIODE(2, 4, 3); got != -1 {
		t.Errorf("want -1 for another issuer, got %d", got)
	}
	if got := store.LookupIODE(1, 5, 3); got != -1 {
		t.Errorf("want -1 for another slot, got %d", got)
	}

	// Push the matching set out of the search window with newer
	// epochs that don't cover slot 5.
	for epoch := 1; epoch <= 7; epoch++ {
		store.IngestOrbit(1, 900, float64(epoch*5),
			orbitWithRecords(orbitRecord(6, 50, 1, 0.5)))
	}
	if got := store.LookupIODE(1, 4, 3); got != -1 {
		t.Errorf("want -1 once outside the search window, got %d", got)
	}
}

// TestIngestClock checks the mask addressing, the IODE cross-reference
// and the unavailable sentinel.
func TestIngestClock(t *testing.T) {
	store := New(16, 120, nil)

	// Mask IODP 3: slots 2, 5 and 9 active.
	store.IngestMask(1, maskWithSlots(3, 2, 5, 9))

	// An orbit set giving slot 5 IODCorr 3 -> IODE 123 and slot 9
	// IODCorr 1 -> IODE 77.
	store.IngestOrbit(1, 900, 0, orbitWithRecords(
		orbitRecord(5, 123, 3, 0.5),
		orbitRecord(9, 77, 1, 0.25)))

	// A clock message, subframe 0: record 1 addresses the first set
	// bit (slot 2), record 2 the second (slot 5), record 3 the third
	// (slot 9).
	clock := ppp.ClockMessage{IODP: 3, Subframe: 0}
	clock.Records[0] = ppp.ClockRecord{IODCorr: 7, C0: 0.5}  // no orbit match
	clock.Records[1] = ppp.ClockRecord{IODCorr: 3, C0: -0.5} // matches IODE 123
	clock.Records[2] = ppp.ClockRecord{IODCorr: 1, C0: 26.2128}
	// Records 4.. have C0 0, which the store will write to no slot -
	// the mask only has three set bits.

	updated, maskFound := store.IngestClock(1, 900, 1, &clock)
	if !maskFound {
		t.Fatal("mask should have been found")
	}

	// Slot 2 (index 1): no orbit match, IODE -1 but IODCorr recorded.
	if updated.IODCorr[1] != 7 {
		t.Errorf("want IODCorr 7 got %d", updated.IODCorr[1])
	}
	if updated.IODE[1] != -1 {
		t.Errorf("want IODE -1 got %d", updated.IODE[1])
	}

	// Slot 5 (index 4): matched.
	if updated.IODE[4] != 123 {
		t.Errorf("want IODE 123 got %d", updated.IODE[4])
	}
	if updated.C0[4] != -0.5 {
		t.Errorf("want C0 -0.5 got %f", updated.C0[4])
	}

	// Slot 9 (index 8): the sentinel - C0 recorded, issue numbers
	// untouched.
	if updated.C0[8] != 26.2128 {
		t.Errorf("want C0 26.2128 got %f", updated.C0[8])
	}
	if updated.IODCorr[8] != -1 || updated.IODE[8] != -1 {
		t.Errorf("sentinel should not set issue numbers - IODCorr %d IODE %d",
			updated.IODCorr[8], updated.IODE[8])
	}
}

// TestIngestClockNoMask checks that a clock arriving before its mask is
// parked unresolved.
func TestIngestClockNoMask(t *testing.T) {
	store := New(16, 120, nil)

	clock := ppp.ClockMessage{IODP: 9, Subframe: 0}
	clock.Records[0] = ppp.ClockRecord{IODCorr: 1, C0: 0.5}

	updated, maskFound := store.IngestClock(1, 900, 1, &clock)
	if maskFound {
		t.Error("no mask should be found")
	}
	if updated.SatCount() != 0 {
		t.Error("no slots should be usable")
	}

	// A mask arriving later does not retroactively resolve the old
	// clock - re-ingestion of the same message is needed.
	store.IngestMask(1, maskWithSlots(9, 2))
	if updated.SatCount() != 0 {
		t.Error("a late mask should not change the parked clock")
	}
}

// TestSubframeSlot checks the set-bit counting, including the second
// subframe.
func TestSubframeSlot(t *testing.T) {
	// Slots 1-30 active.
	var mask MaskSet
	for slot := 0; slot < 30; slot++ {
		mask.Slots[slot] = true
	}

	var testData = []struct {
		description string
		subframe    int
		ix          int
		want        int
	}{
		{"first record of subframe 0", 0, 1, 0},
		{"last record of subframe 0", 0, 23, 22},
		{"first record of subframe 1", 1, 1, 23},
		{"seventh record of subframe 1", 1, 7, 29},
		{"past the last set bit", 1, 8, -1},
	}

	for _, td := range testData {
		got := subframeSlot(&mask, td.subframe, td.ix)
		if got != td.want {
			t.Errorf("%s: want %d got %d", td.description, td.want, got)
		}
	}
}

// TestOrbitSetString checks the readable rendering.  BDS week 900,
// second of week zero is Sunday 2023-04-02 once the GPS week offset is
// applied.
func TestOrbitSetString(t *testing.T) {
	store := New(16, 120, nil)
	updated, _ := store.IngestOrbit(1, 900, 0,
		orbitWithRecords(orbitRecord(5, 123, 3, 0.5)))

	const want = "> ORBIT 2023 04 02 00 00  0.0 2 1 CLK01\n" +
		"C05        123      0.5000      0.2500      0.1250" +
		"      0.0000      0.0000      0.0000\n"

	if got := updated.String(); got != want {
		t.Error(diff.Diff(want, got))
	}
}

// TestClockSetString checks the clock rendering.
func TestClockSetString(t *testing.T) {
	store := New(16, 120, nil)
	store.IngestMask(1, maskWithSlots(3, 5))
	store.IngestOrbit(1, 900, 0, orbitWithRecords(orbitRecord(5, 123, 3, 0.5)))

	clock := ppp.ClockMessage{IODP: 3, Subframe: 0}
	clock.Records[0] = ppp.ClockRecord{IODCorr: 3, C0: -0.5}

	updated, maskFound := store.IngestClock(1, 900, 5, &clock)
	if !maskFound {
		t.Fatal("mask should have been found")
	}

	const want = "> CLOCK 2023 04 02 00 00  5.0 2 1 CLK01\n" +
		"C05        123     -0.5000      0.0000      0.0000\n"

	if got := updated.String(); got != want {
		t.Error(diff.Diff(want, got))
	}
}
