package scheduler

import (
	"github.com/goblimey/go-b2b/b2b/corr"
)

// MultiSink fans each published batch out to a set of sinks - for
// example a NATS publisher, a SQLite archive and a display.  The sinks
// are called in order on the publishing goroutine.
type MultiSink struct {
	Sinks []Sink
}

// PublishOrbCorrections passes the batch to every sink.
func (multi *MultiSink) PublishOrbCorrections(batch []corr.OrbCorr) {
	for _, sink := range multi.Sinks {
		sink.PublishOrbCorrections(batch)
	}
}

// PublishClkCorrections passes the batch to every sink.
func (multi *MultiSink) PublishClkCorrections(batch []corr.ClkCorr) {
	for _, sink := range multi.Sinks {
		sink.PublishClkCorrections(batch)
	}
}
