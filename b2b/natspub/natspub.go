// The natspub package publishes emitted corrections to a NATS server.
// Each batch is JSON-encoded and published on its own subject, one
// subject for orbit corrections and one for clocks, so downstream
// consumers (a positioning engine, a monitor) can subscribe to what
// they need.
package natspub

import (
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/goblimey/go-b2b/b2b/corr"
	"github.com/goblimey/go-b2b/b2b/utils"
)

// DefaultOrbitSubject is the subject for orbit batches when the config
// doesn't give one.
const DefaultOrbitSubject = "b2b.corrections.orbit"

// DefaultClockSubject is the subject for clock batches.
const DefaultClockSubject = "b2b.corrections.clock"

// Publisher implements the scheduler's Sink interface over a NATS
// connection.
type Publisher struct {
	conn         *nats.Conn
	orbitSubject string
	clockSubject string
	logger       *slog.Logger
}

// Dial connects to the NATS server at the given URL.  Empty subjects
// get the defaults.  The logger may be nil.
func Dial(url, orbitSubject, clockSubject string, logger *slog.Logger) (*Publisher, error) {
	if len(orbitSubject) == 0 {
		orbitSubject = DefaultOrbitSubject
	}
	if len(clockSubject) == 0 {
		clockSubject = DefaultClockSubject
	}
	if logger == nil {
		logger = utils.DiscardLogger()
	}

	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1))
	if err != nil {
		return nil, err
	}

	publisher := Publisher{
		conn:         conn,
		orbitSubject: orbitSubject,
		clockSubject: clockSubject,
		logger:       logger,
	}
	return &publisher, nil
}

// Close drains and closes the connection.
func (publisher *Publisher) Close() {
	_ = publisher.conn.Drain()
}

// PublishOrbCorrections publishes a batch of orbit corrections.
func (publisher *Publisher) PublishOrbCorrections(batch []corr.OrbCorr) {
	publisher.publish(publisher.orbitSubject, batch)
}

// PublishClkCorrections publishes a batch of clock corrections.
func (publisher *Publisher) PublishClkCorrections(batch []corr.ClkCorr) {
	publisher.publish(publisher.clockSubject, batch)
}

// publish JSON-encodes the batch and sends it.  A publish failure is
// logged but doesn't stop the decoder - NATS reconnects on its own.
func (publisher *Publisher) publish(subject string, batch any) {
	data, err := json.Marshal(batch)
	if err != nil {
		publisher.logger.Error("cannot encode correction batch", "error", err.Error())
		return
	}
	if err := publisher.conn.Publish(subject, data); err != nil {
		publisher.logger.Warn("cannot publish correction batch",
			"subject", subject, "error", err.Error())
	}
}
