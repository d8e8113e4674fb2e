package jsonconfig

import (
	"log"
	"strings"
	"testing"

	"github.com/goblimey/go-tools/switchwriter"
)

// TestGetJSONConfig tests that the correct data is produced when the
// text from a JSON control file is unmarshalled.
func TestGetJSONConfig(t *testing.T) {
	reader := strings.NewReader(`{
		"input": ["a", "b"],
		"station_id": "TEST00",
		"emit_cadence_seconds": 7.5,
		"mask_table_depth": 8,
		"correction_table_depth": 60,
		"enable_combined_subtypes": true,
		"display_messages": true,
		"record_corrections": true,
		"archive_file": "corrections.db",
		"nats_url": "nats://localhost:4222",
		"nats_orbit_subject": "b2b.orb",
		"nats_clock_subject": "b2b.clk",
		"timeout": 1,
		"sleep_time": 2
	}`)

	writer := switchwriter.New()
	logger := log.New(writer, "jsonconfig_test", 0)

	config, err := getJSONConfig(reader, logger)
	if err != nil {
		t.Fatal(err)
	}

	if config == nil {
		t.Fatal("parsing json failed - nil")
	}

	numFiles := len(config.Filenames)
	if numFiles != 2 {
		t.Fatalf("parsing json, expected 2 files, got %d", numFiles)
	}

	if config.Filenames[0] != "a" {
		t.Errorf("parsing json, expected file 0 to be a, got %s",
			config.Filenames[0])
	}

	if config.Filenames[1] != "b" {
		t.Errorf("parsing json, expected file 1 to be b, got %s",
			config.Filenames[1])
	}

	if config.StaID != "TEST00" {
		t.Errorf("expected station TEST00, got %s", config.StaID)
	}

	if config.EmitCadenceSeconds != 7.5 {
		t.Errorf("expected cadence 7.5, got %f", config.EmitCadenceSeconds)
	}

	if config.MaskTableDepth != 8 {
		t.Errorf("expected mask table depth 8, got %d", config.MaskTableDepth)
	}

	if config.CorrectionTableDepth != 60 {
		t.Errorf("expected correction table depth 60, got %d",
			config.CorrectionTableDepth)
	}

	if !config.EnableCombined {
		t.Error("expected combined subtypes to be enabled")
	}

	if !config.DisplayMessages {
		t.Error("expected display_messages to be set")
	}

	if !config.RecordCorrections {
		t.Error("expected record_corrections to be set")
	}

	if config.ArchiveFile != "corrections.db" {
		t.Errorf("expected archive file corrections.db, got %s", config.ArchiveFile)
	}

	if config.NatsURL != "nats://localhost:4222" {
		t.Errorf("expected NATS URL nats://localhost:4222, got %s", config.NatsURL)
	}

	if config.NatsOrbitSubject != "b2b.orb" || config.NatsClockSubject != "b2b.clk" {
		t.Errorf("unexpected NATS subjects %s / %s",
			config.NatsOrbitSubject, config.NatsClockSubject)
	}

	if config.LostInputConnectionTimeout != 1 {
		t.Errorf("expected timeout 1, got %d", config.LostInputConnectionTimeout)
	}

	if config.LostInputConnectionSleepTime != 2 {
		t.Errorf("expected sleep time 2, got %d", config.LostInputConnectionSleepTime)
	}
}

// TestGetJSONConfigWithJunk checks that illegal JSON produces an
// error.
func TestGetJSONConfigWithJunk(t *testing.T) {
	reader := strings.NewReader(`{"input": junk}`)

	writer := switchwriter.New()
	logger := log.New(writer, "jsonconfig_test", 0)

	config, err := getJSONConfig(reader, logger)
	if err == nil {
		t.Error("expected an error for illegal JSON")
	}
	if config != nil {
		t.Error("expected a nil config for illegal JSON")
	}
}

// TestDefaults checks that missing fields get usable zero values.
func TestDefaults(t *testing.T) {
	reader := strings.NewReader(`{"input": ["a"]}`)

	writer := switchwriter.New()
	logger := log.New(writer, "jsonconfig_test", 0)

	config, err := getJSONConfig(reader, logger)
	if err != nil {
		t.Fatal(err)
	}

	if config.EmitCadenceSeconds != 0 {
		t.Errorf("expected zero cadence (use the default), got %f",
			config.EmitCadenceSeconds)
	}
	if config.EnableCombined {
		t.Error("combined subtypes should default to off")
	}
	if config.RecordCorrections {
		t.Error("recording should default to off")
	}
}
