// The handler package is the top of the decoder pipeline.  It takes a
// raw SBF byte stream and drives the whole chain: framing, BDS Raw B2b
// page extraction, LDPC decoding, PPP-B2b message parsing, the
// correction store and the emission scheduler.
//
//	sink := scheduler.NewChannelSink(1)
//	handler := handler.New(handler.Config{}, sink, logger)
//	go handler.Run(reader)
//	for batch := range sink.ClkCorrections { ... }
//
// Decoding errors never stop the stream - each kind is counted,
// logged and the next block is processed.
package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/goblimey/go-b2b/b2b/corr"
	"github.com/goblimey/go-b2b/b2b/gnsstime"
	"github.com/goblimey/go-b2b/b2b/ldpc"
	"github.com/goblimey/go-b2b/b2b/navpage"
	"github.com/goblimey/go-b2b/b2b/ppp"
	"github.com/goblimey/go-b2b/b2b/sbf"
	"github.com/goblimey/go-b2b/b2b/scheduler"
	"github.com/goblimey/go-b2b/b2b/store"
	"github.com/goblimey/go-b2b/b2b/utils"
)

// DefaultStaID is the station name attached to emitted corrections
// when the config doesn't give one.
const DefaultStaID = "B2b_SSR"

// Config carries the tunable settings of the decoder.  The zero value
// gives the defaults throughout.
type Config struct {
	// StaID is the station name attached to emitted corrections.
	StaID string

	// EmitCadenceSeconds is the flush interval of the emission
	// scheduler in page-time seconds.
	EmitCadenceSeconds float64

	// MaskTableDepth and CorrectionTableDepth set the depths of the
	// store's rings.
	MaskTableDepth       int
	CorrectionTableDepth int

	// EnableCombined turns on ingestion of the combined subtypes 6
	// and 7.  They are reproduced from the interface spec but have
	// not been seen in live traffic, so they're off by default.
	EnableCombined bool
}

// Counters records what the handler has seen, by category.
type Counters struct {
	// Pages is the number of BDS Raw B2b pages seen.
	Pages uint64

	// OtherBlocks is the number of SBF blocks of types we don't
	// decode.
	OtherBlocks uint64

	// OtherSatellites is the number of pages from satellites other
	// than the correction service.
	OtherSatellites uint64

	// IdlePages is the number of idle/filler pages dropped.
	IdlePages uint64

	// LdpcFailures is the number of pages the LDPC decoder couldn't
	// converge on.
	LdpcFailures uint64

	// BadPages is the number of pages that couldn't be parsed at all.
	BadPages uint64

	// UnknownSubtypes is the number of messages with an illegal
	// subtype.
	UnknownSubtypes uint64

	// ReservedMessages is the number of messages with a reserved
	// subtype, passed through silently.
	ReservedMessages uint64

	// MaskNotFound is the number of clock messages that arrived
	// before their mask.
	MaskNotFound uint64

	// UnavailableClocks is the number of clock records carrying the
	// "not available" sentinel.
	UnavailableClocks uint64
}

// Handler drives the decoder pipeline.  It's not safe for concurrent
// use - feed it from one goroutine.  The sink is called synchronously
// from that goroutine on each emission.
type Handler struct {
	config    Config
	framer    *sbf.Framer
	store     *store.Store
	scheduler *scheduler.Scheduler
	logger    *slog.Logger

	counters Counters

	// lastPageTime is the receive time of the last service page, used
	// to stamp emitted corrections.
	lastPageTime corr.Time
}

// New creates a handler publishing to the given sink.  The logger may
// be nil.
func New(config Config, sink scheduler.Sink, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = utils.DiscardLogger()
	}
	if len(config.StaID) == 0 {
		config.StaID = DefaultStaID
	}
	handler := Handler{
		config:    config,
		framer:    sbf.NewFramer(logger),
		store:     store.New(config.MaskTableDepth, config.CorrectionTableDepth, logger),
		scheduler: scheduler.New(config.EmitCadenceSeconds, sink, logger),
		logger:    logger,
	}
	return &handler
}

// Counters returns a copy of the handler's event counters.
func (handler *Handler) Counters() Counters {
	return handler.counters
}

// FramerCounters returns a copy of the framer's event counters, which
// cover the byte-level errors - sync losses, CRC failures and bad
// lengths.
func (handler *Handler) FramerCounters() sbf.Counters {
	return handler.framer.Counters()
}

// Store exposes the correction store for read-only inspection.
func (handler *Handler) Store() *store.Store {
	return handler.store
}

// Run reads the byte stream to exhaustion, decoding as it goes.  The
// result is nil at end of input and the read error otherwise.
func (handler *Handler) Run(reader io.Reader) error {
	buffer := make([]byte, 1024)
	for {
		n, err := reader.Read(buffer)
		if n > 0 {
			handler.Input(buffer[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// Input feeds bytes into the decoder.  Any complete SBF blocks they
// finish are decoded and any corrections they complete are pushed
// towards the sink.
func (handler *Handler) Input(data []byte) {
	for _, block := range handler.framer.Feed(data) {
		handler.handleBlock(&block)
	}
}

// handleBlock decodes one validated SBF block.
func (handler *Handler) handleBlock(block *sbf.Block) {

	if block.Type != utils.BlockTypeBDSRawB2b {
		handler.counters.OtherBlocks++
		handler.logger.Debug("skipping block", "type", block.Type)
		return
	}

	page, pageError := navpage.ParsePage(block)
	if pageError != nil {
		handler.counters.BadPages++
		handler.logger.Warn("bad BDS Raw B2b page", "error", pageError.Error())
		return
	}

	handler.counters.Pages++

	if page.PRN() != utils.PRNB2bService {
		// A page from a satellite that isn't broadcasting the
		// correction service.
		handler.counters.OtherSatellites++
		return
	}

	handler.logger.Debug(page.String())

	if page.IsIdle() {
		handler.counters.IdlePages++
		return
	}

	payload, ldpcError := ldpc.DecodeNavBits(page.NavBitsHex())
	if ldpcError != nil {
		if errors.Is(ldpcError, ldpc.ErrUnconverged) {
			handler.counters.LdpcFailures++
			handler.logger.Warn("LDPC decoding failed", "page", page.String())
		} else {
			handler.counters.BadPages++
			handler.logger.Warn("bad navigation bits", "error", ldpcError.Error())
		}
		return
	}

	message, messageError := ppp.GetMessage(payload)
	if messageError != nil {
		handler.counters.UnknownSubtypes++
		handler.logger.Warn("bad PPP-B2b message", "error", messageError.Error())
		return
	}

	if message.Reserved() {
		handler.counters.ReservedMessages++
		return
	}

	handler.handleMessage(page, message)
}

// handleMessage applies one parsed message to the store and pushes any
// corrections it completes.
func (handler *Handler) handleMessage(page *navpage.Page, message *ppp.Message) {

	// Corrections are stamped with the receive time of the page.
	handler.lastPageTime = corr.Time{
		Week: int(page.Week),
		Sow:  float64(page.TOWSeconds()),
	}

	// The store keys its sets by the issue epoch: the BDS week of the
	// page and the message's own second of issue, reconciled through
	// the day number.
	week, sow := handler.resolveEpoch(page, message)

	ssrID := int(message.SSRID)

	switch {
	case message.Mask != nil:
		handler.store.IngestMask(ssrID, message.Mask)

	case message.Orbit != nil:
		updated, completed := handler.store.IngestOrbit(ssrID, week, sow, message.Orbit)
		if completed != nil {
			handler.logger.Debug("orbit epoch complete\n" + completed.String())
		}
		handler.pushOrbCorrections(updated)
		handler.scheduler.Evaluate(handler.lastPageTime)

	case message.Clock != nil:
		for i := range message.Clock.Records {
			if message.Clock.Records[i].Unavailable() {
				handler.counters.UnavailableClocks++
			}
		}
		updated, maskFound := handler.store.IngestClock(ssrID, week, sow, message.Clock)
		if !maskFound {
			handler.counters.MaskNotFound++
			return
		}
		handler.logger.Debug("clock update\n" + updated.String())
		handler.pushClkCorrections(updated)
		handler.scheduler.Evaluate(handler.lastPageTime)

	case message.DCB != nil:
		// Code biases are parsed and logged but not emitted.
		handler.logger.Debug("code biases",
			"ssr", ssrID, "satellites", len(message.DCB.Records))

	case message.URA != nil:
		handler.logger.Debug("accuracy update",
			"ssr", ssrID, "iodp", message.URA.IODP)

	case message.Combined != nil:
		if !handler.config.EnableCombined {
			handler.logger.Debug("combined message ignored", "subtype", message.Subtype)
			return
		}
		handler.handleCombined(ssrID, week, sow, message)
	}
}

// handleCombined ingests a combined clock and orbit message.  The
// orbit block is merged like a subtype 2 message.  Clock records carry
// their own satellite slots only in subtype 7; the subtype 6 mask
// window addressing is not exercised by live traffic, so those records
// are logged and dropped.
func (handler *Handler) handleCombined(ssrID, week int, sow float64, message *ppp.Message) {
	combined := message.Combined

	if len(combined.OrbitRecords) > 0 {
		var orbit ppp.OrbitMessage
		copy(orbit.Records[:], combined.OrbitRecords)
		updated, _ := handler.store.IngestOrbit(ssrID, week, sow, &orbit)
		handler.pushOrbCorrections(updated)
	}

	if message.Subtype == ppp.SubtypeCombinedSlots && len(combined.ClockRecords) > 0 {
		updated := handler.store.IngestCombinedClocks(ssrID, week, sow,
			int(combined.IODP), combined.ClockRecords)
		handler.pushClkCorrections(updated)
	} else if len(combined.ClockRecords) > 0 {
		handler.logger.Debug("combined clock block without slots ignored",
			"count", len(combined.ClockRecords))
	}

	handler.scheduler.Evaluate(handler.lastPageTime)
}

// resolveEpoch works out the issue epoch of a message: the day comes
// from the page's receive time, the second within the day from the
// message itself.  The receive time can be just either side of
// midnight relative to the issue time, so try the day before and the
// day after too and keep the combination nearest the receive time.
func (handler *Handler) resolveEpoch(page *navpage.Page, message *ppp.Message) (week int, sow float64) {

	const halfWeek = 302400

	bdsWeek := int(page.Week) - gnsstime.BDSWeekToGPSWeek
	pageTime := corr.Time{Week: bdsWeek, Sow: float64(page.TOWSeconds())}

	mjd, _ := gnsstime.WkSow2MJD(bdsWeek, pageTime.Sow)
	sod := float64(message.SecondOfDay)

	week, sow = bdsWeek, pageTime.Sow
	nearest := float64(halfWeek)
	for _, dayOffset := range []int{-1, 0, 1} {
		w, s := gnsstime.MJD2WkSow(mjd+dayOffset, sod)
		difference := (corr.Time{Week: w, Sow: s}).Sub(pageTime)
		if difference < 0 {
			difference = -difference
		}
		if difference < nearest {
			nearest = difference
			week, sow = w, s
		}
	}

	// If nothing was within half a week, this is the receive time.
	return week, sow
}

// pushOrbCorrections queues one orbit correction per satellite with a
// usable entry in the set.
func (handler *Handler) pushOrbCorrections(orbitSet *store.OrbitSet) {
	for slot := 0; slot < utils.MaxSatSlot; slot++ {
		if orbitSet.IODE[slot] == -1 {
			continue
		}
		system := utils.SystemForSlot(slot + 1)
		if system == 0 {
			continue
		}
		handler.scheduler.PushOrb(corr.OrbCorr{
			StaID: handler.config.StaID,
			PRN:   corr.PRN{System: system, Number: utils.NumberForSlot(slot + 1)},
			IOD:   orbitSet.IODE[slot],
			Time:  handler.lastPageTime,
			Xr:    orbitSet.RAC[slot],
		})
	}
}

// pushClkCorrections queues one clock correction per satellite with a
// usable entry in the set.  The correction is converted from metres to
// seconds.
func (handler *Handler) pushClkCorrections(clockSet *store.ClockSet) {
	for slot := 0; slot < utils.MaxSatSlot; slot++ {
		if clockSet.IODE[slot] == -1 {
			continue
		}
		system := utils.SystemForSlot(slot + 1)
		if system == 0 {
			continue
		}
		handler.scheduler.PushClk(corr.ClkCorr{
			StaID: handler.config.StaID,
			PRN:   corr.PRN{System: system, Number: utils.NumberForSlot(slot + 1)},
			IOD:   clockSet.IODE[slot],
			Time:  handler.lastPageTime,
			DClk:  clockSet.C0[slot] / utils.SpeedOfLightMS,
		})
	}
}

// String describes the handler state in one line, for monitoring.
func (handler *Handler) String() string {
	return fmt.Sprintf(
		"%s: pages %d, other blocks %d, idle %d, LDPC failures %d, masks %d, orbits %d, clocks %d",
		handler.config.StaID, handler.counters.Pages, handler.counters.OtherBlocks,
		handler.counters.IdlePages, handler.counters.LdpcFailures,
		handler.store.MaskCount(), handler.store.OrbitCount(), handler.store.ClockCount())
}
