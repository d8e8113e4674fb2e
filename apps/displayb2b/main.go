// displayb2b reads bytes from stdin or a file, ignores anything that's
// not a Septentrio SBF block and writes a readable version of the
// BDS Raw B2b content to the standard output channel.
//
// Raw B2b pages are LDPC-encoded and the messages inside are tightly
// bit-packed, not designed to be readable by a human.  The tool runs
// the full decoding pipeline - framing, LDPC, PPP-B2b message parsing,
// the correction state tables - and prints what it finds: one line per
// navigation page, the satellite mask and orbit/clock tables as they
// build up, and each batch of corrections as it's emitted.
//
// For example:
//
//	displayb2b sbf.capture.2024-08-31
//
// That's useful when you are setting up a receiver and need to know
// exactly what the correction stream is carrying.
//
// With no file argument the tool reads from stdin, so it can also sit
// on the end of a pipe:
//
//	sbfgrabber -c grabber.json | displayb2b
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/goblimey/go-b2b/b2b/corr"
	"github.com/goblimey/go-b2b/b2b/handler"
)

func main() {

	reader := os.Stdin
	if len(os.Args) > 1 {
		file, err := os.Open(os.Args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(-1)
		}
		defer file.Close()
		reader = file
	}

	// Everything the decoder logs at debug level is part of the
	// display - pages, masks, table updates, errors.
	logger := slog.New(slog.NewTextHandler(os.Stdout,
		&slog.HandlerOptions{Level: slog.LevelDebug}))

	b2bHandler := handler.New(handler.Config{}, &printingSink{}, logger)

	if err := b2bHandler.Run(reader); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
	}

	// A closing summary: what was seen and what was dropped.
	counters := b2bHandler.Counters()
	framerCounters := b2bHandler.FramerCounters()
	fmt.Printf("\n%s\n", b2bHandler.String())
	fmt.Printf("SBF blocks %d, CRC errors %d, discarded bytes %d\n",
		framerCounters.Blocks, framerCounters.CrcErrors,
		framerCounters.DiscardedBytes)
	fmt.Printf("reserved subtypes %d, unknown subtypes %d, clocks before mask %d\n",
		counters.ReservedMessages, counters.UnknownSubtypes,
		counters.MaskNotFound)
}

// printingSink writes each emitted batch to stdout in the classic
// clock/orbit file format.
type printingSink struct{}

func (sink *printingSink) PublishOrbCorrections(batch []corr.OrbCorr) {
	for i := range batch {
		fmt.Println("ORB " + batch[i].String())
	}
}

func (sink *printingSink) PublishClkCorrections(batch []corr.ClkCorr) {
	for i := range batch {
		fmt.Println("CLK " + batch[i].String())
	}
}
