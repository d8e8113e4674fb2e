// The b2bserver reads a raw SBF byte stream, decodes the PPP-B2b
// corrections in it and distributes them.  It's designed to receive
// data from a receiver that emits blocks continuously, so it runs
// until forcibly stopped.  In the real world the receiver is a
// Septentrio tracking the BeiDou B2b signal, connected over a serial
// USB connection - the sbfgrabber handles the details of the USB
// connection and transmits the bytes on stdout, so we can connect it
// to this via a pipe:
//
//	sbfgrabber -c grabber.json | b2bserver -c b2bserver.json
//
// When the application starts up it reads a JSON config file given by
// the -c argument.  The config settings define where the input comes
// from and which outputs are enabled, for example:
//
//	{
//	    "input": [],
//	    "station_id": "B2b_SSR",
//	    "emit_cadence_seconds": 5,
//	    "record_corrections": true,
//	    "archive_file": "corrections.db",
//	    "nats_url": "nats://localhost:4222"
//	}
//
// With an empty input list the server reads from stdin.  Decoded
// correction batches can go to any combination of a NATS server (for
// live consumers such as a positioning engine), a SQLite archive file
// (for later analysis) and the daily event log.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/dolmen-go/contextio"

	"github.com/goblimey/go-b2b/b2b/archive"
	"github.com/goblimey/go-b2b/b2b/corr"
	"github.com/goblimey/go-b2b/b2b/handler"
	"github.com/goblimey/go-b2b/b2b/natspub"
	"github.com/goblimey/go-b2b/b2b/scheduler"
	"github.com/goblimey/go-b2b/b2b/utils"
	"github.com/goblimey/go-b2b/jsonconfig"
)

func main() {

	// eventLog is the daily event log.
	eventLog := utils.GetDailyLogger("b2bserver")

	// Get the name of the config file (mandatory).
	var configFileName string
	flag.StringVar(&configFileName, "c", "", "JSON config file")
	flag.StringVar(&configFileName, "config", "", "JSON config file")

	flag.Parse()

	if len(configFileName) == 0 {
		eventLog.Println("missing config file: -c or --config")
		os.Exit(-1)
	}

	config, errConfig := jsonconfig.GetJSONConfigFromFile(configFileName, eventLog)
	if errConfig != nil {
		eventLog.Println(errConfig.Error())
		os.Exit(-1)
	}

	// Assemble the sinks that the config asks for.
	var multi scheduler.MultiSink

	logLevel := slog.LevelInfo
	if config.DisplayMessages {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{Level: logLevel}))

	if len(config.NatsURL) > 0 {
		publisher, errNats := natspub.Dial(config.NatsURL,
			config.NatsOrbitSubject, config.NatsClockSubject, logger)
		if errNats != nil {
			eventLog.Println("cannot connect to NATS - " + errNats.Error())
			os.Exit(-1)
		}
		defer publisher.Close()
		multi.Sinks = append(multi.Sinks, publisher)
	}

	if config.RecordCorrections {
		archiveFile := config.ArchiveFile
		if len(archiveFile) == 0 {
			archiveFile = "corrections.db"
		}
		recorder, errArchive := archive.Open(archiveFile)
		if errArchive != nil {
			eventLog.Println("cannot open the archive - " + errArchive.Error())
			os.Exit(-1)
		}
		defer recorder.Close()
		multi.Sinks = append(multi.Sinks, recorder)
	}

	if config.DisplayMessages {
		multi.Sinks = append(multi.Sinks, &displaySink{logger: logger})
	}

	b2bHandler := handler.New(handler.Config{
		StaID:                config.StaID,
		EmitCadenceSeconds:   config.EmitCadenceSeconds,
		MaskTableDepth:       config.MaskTableDepth,
		CorrectionTableDepth: config.CorrectionTableDepth,
		EnableCombined:       config.EnableCombined,
	}, &multi, logger)

	HandleBlocks(b2bHandler, config, eventLog)
}

// HandleBlocks loops: find and consume the input, decode it and
// distribute the corrections.  When an input source dries up (which
// may or may not happen), search for the next one and open it.  With
// no input files it reads stdin and returns once stdin is exhausted.
//
// This setup copes well with a receiver that occasionally drops out of
// service and then comes back.  The function simply waits until bytes
// start arriving again.
func HandleBlocks(b2bHandler *handler.Handler, config *jsonconfig.Config, eventLog *log.Logger) {
	for {
		reader, cancel := getInput(config)

		errRun := b2bHandler.Run(reader)
		if errRun != nil {
			eventLog.Println("input dried up - " + errRun.Error())
		}
		cancel()

		eventLog.Println(b2bHandler.String())

		if len(config.Filenames) == 0 && errRun == nil {
			// Reading from stdin and it's exhausted - we're done.
			return
		}
	}
}

// getInput connects to the configured input.  With no input files in
// the config, the server reads from stdin.  With input files it scans
// for one that exists, retrying until one appears, and wraps it in a
// reader whose context expires a fixed time after the call (the
// configured timeout, three seconds by default), whether or not bytes
// are still arriving - the expiry gets the read loop back to the
// device scan.  The caller must call the
// returned cancel function when it's finished with the reader.
func getInput(config *jsonconfig.Config) (io.Reader, context.CancelFunc) {
	if len(config.Filenames) == 0 {
		return os.Stdin, func() {}
	}

	timeout := time.Duration(config.LostInputConnectionTimeout) * time.Second
	if timeout == 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	return contextio.NewReader(ctx, config.WaitAndConnectToInput()), cancel
}

// displaySink writes each published batch to the log in the readable
// clock/orbit format.
type displaySink struct {
	logger *slog.Logger
}

func (sink *displaySink) PublishOrbCorrections(batch []corr.OrbCorr) {
	for i := range batch {
		sink.logger.Info("ORB " + batch[i].String())
	}
}

func (sink *displaySink) PublishClkCorrections(batch []corr.ClkCorr) {
	for i := range batch {
		sink.logger.Info("CLK " + batch[i].String())
	}
}
