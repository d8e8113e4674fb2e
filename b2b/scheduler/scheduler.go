// The scheduler package batches decoded corrections and publishes them
// to the host on a fixed cadence.  Corrections arrive message by
// message - an orbit message here, a clock message there - but a
// consumer wants them in epoch-sized batches, so the scheduler
// accumulates pending corrections and flushes them when enough page
// time has passed since the last flush.
package scheduler

import (
	"log/slog"

	"github.com/goblimey/go-b2b/b2b/corr"
	"github.com/goblimey/go-b2b/b2b/utils"
)

// DefaultEmitCadenceSeconds is the default flush interval in page-time
// seconds.  (Earlier versions of the decoder used 30 seconds.)
const DefaultEmitCadenceSeconds = 5.0

// Sink receives the published corrections.  Both methods are called
// from the ingestion goroutine and get a fresh slice that the sink may
// keep.
type Sink interface {
	PublishOrbCorrections([]corr.OrbCorr)
	PublishClkCorrections([]corr.ClkCorr)
}

// Scheduler accumulates corrections and flushes them on a cadence.
// It's not safe for concurrent use - feed it from the ingestion
// goroutine.
type Scheduler struct {
	cadence float64
	sink    Sink
	logger  *slog.Logger

	pendingOrb []corr.OrbCorr
	pendingClk []corr.ClkCorr

	lastEmitTime     corr.Time
	haveLastEmitTime bool
}

// New creates a scheduler flushing to the given sink.  A zero or
// negative cadence gets the default.  The logger may be nil.
func New(cadence float64, sink Sink, logger *slog.Logger) *Scheduler {
	if cadence <= 0 {
		cadence = DefaultEmitCadenceSeconds
	}
	if logger == nil {
		logger = utils.DiscardLogger()
	}
	scheduler := Scheduler{cadence: cadence, sink: sink, logger: logger}
	return &scheduler
}

// PushOrb adds an orbit correction to the pending batch.
func (scheduler *Scheduler) PushOrb(orbCorr corr.OrbCorr) {
	scheduler.pendingOrb = append(scheduler.pendingOrb, orbCorr)
}

// PushClk adds a clock correction to the pending batch.
func (scheduler *Scheduler) PushClk(clkCorr corr.ClkCorr) {
	scheduler.pendingClk = append(scheduler.pendingClk, clkCorr)
}

// PendingOrb returns the number of orbit corrections waiting.
func (scheduler *Scheduler) PendingOrb() int { return len(scheduler.pendingOrb) }

// PendingClk returns the number of clock corrections waiting.
func (scheduler *Scheduler) PendingClk() int { return len(scheduler.pendingClk) }

// Evaluate checks the emit predicate against the given page time and
// flushes if the cadence has elapsed.  Call it after every push.  On a
// flush every pending correction is re-stamped to the page time that
// triggered it, so a batch carries one epoch.  The result is true if a
// flush happened.
func (scheduler *Scheduler) Evaluate(pageTime corr.Time) bool {

	if !scheduler.haveLastEmitTime {
		// The first correction of the run.  Start the cadence clock -
		// nothing is emitted until a full interval has passed.
		scheduler.lastEmitTime = pageTime
		scheduler.haveLastEmitTime = true
		return false
	}

	elapsed := pageTime.Sub(scheduler.lastEmitTime)
	if elapsed < 0 {
		elapsed = -elapsed
	}
	if elapsed < scheduler.cadence {
		return false
	}

	if len(scheduler.pendingOrb) > 0 {
		for i := range scheduler.pendingOrb {
			scheduler.pendingOrb[i].Time = pageTime
		}
		scheduler.logger.Info("publishing orbit corrections",
			"count", len(scheduler.pendingOrb), "time", pageTime.String())
		scheduler.sink.PublishOrbCorrections(scheduler.pendingOrb)
		scheduler.pendingOrb = nil
	}

	if len(scheduler.pendingClk) > 0 {
		for i := range scheduler.pendingClk {
			scheduler.pendingClk[i].Time = pageTime
		}
		scheduler.logger.Info("publishing clock corrections",
			"count", len(scheduler.pendingClk), "time", pageTime.String())
		scheduler.sink.PublishClkCorrections(scheduler.pendingClk)
		scheduler.pendingClk = nil
	}

	scheduler.lastEmitTime = pageTime
	return true
}

// ChannelSink adapts the Sink interface to a pair of channels for
// hosts that prefer to receive batches in a goroutine of their own.
// Create the channels buffered, or make sure something is always
// receiving - publishing blocks otherwise.
type ChannelSink struct {
	OrbCorrections chan []corr.OrbCorr
	ClkCorrections chan []corr.ClkCorr
}

// NewChannelSink creates a ChannelSink with channels buffered to the
// given depth.
func NewChannelSink(depth int) *ChannelSink {
	sink := ChannelSink{
		OrbCorrections: make(chan []corr.OrbCorr, depth),
		ClkCorrections: make(chan []corr.ClkCorr, depth),
	}
	return &sink
}

// PublishOrbCorrections sends the batch to the orbit channel.
func (sink *ChannelSink) PublishOrbCorrections(batch []corr.OrbCorr) {
	sink.OrbCorrections <- batch
}

// PublishClkCorrections sends the batch to the clock channel.
func (sink *ChannelSink) PublishClkCorrections(batch []corr.ClkCorr) {
	sink.ClkCorrections <- batch
}

// Close closes both channels.  Call it when no more corrections will
// be published.
func (sink *ChannelSink) Close() {
	close(sink.OrbCorrections)
	close(sink.ClkCorrections)
}
