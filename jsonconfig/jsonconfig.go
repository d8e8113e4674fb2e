// The jsonconfig package provides support for reading and using a JSON
// configuration file in a standard format for the B2b applications.
//
// An example config file:
//
//	{
//		"input": ["/dev/ttyACM0", "/dev/ttyACM1", "/dev/ttyACM2"],
//		"station_id": "B2b_SSR",
//		"emit_cadence_seconds": 5,
//		"display_messages": true,
//		"record_corrections": true,
//		"archive_file": "corrections.db",
//		"nats_url": "nats://localhost:4222",
//		"nats_orbit_subject": "b2b.corrections.orbit",
//		"nats_clock_subject": "b2b.corrections.clock",
//		"timeout": 1,
//		"sleep_time": 2
//	}
//
// This example suits the b2bserver running on a machine connected to a
// Septentrio receiver over a serial USB connection: it reads SBF
// blocks, decodes the PPP-B2b corrections and sends them to a set of
// output channels for processing (a NATS subject, an archive file, a
// daily log).  The config specifies the list of devices that may
// represent the USB connection, flags that determine which outputs are
// enabled, and some controls for handling timeouts and retries if the
// incoming byte stream dies.
//
// Other applications such as displayb2b use the same format but don't
// use all the fields.
package jsonconfig

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"time"
)

// Config contains the values from the JSON config file and a pointer
// to the system log.  To support unit testing, functions that need to
// write to the log should get it from the config or from an argument.
type Config struct {
	// Filenames is a list of potential input files, for example the
	// serial USB device names "/dev/ttyACM0", "/dev/ttyACM1".
	Filenames []string `json:"input"`

	// StaID is the station name attached to emitted corrections.
	StaID string `json:"station_id"`

	// EmitCadenceSeconds is the flush interval of the emission
	// scheduler.  Zero gets the default.
	EmitCadenceSeconds float64 `json:"emit_cadence_seconds"`

	// MaskTableDepth and CorrectionTableDepth set the depths of the
	// decoder's state tables.  Zero gets the defaults.
	MaskTableDepth       int `json:"mask_table_depth"`
	CorrectionTableDepth int `json:"correction_table_depth"`

	// EnableCombined turns on ingestion of the experimental combined
	// message subtypes.
	EnableCombined bool `json:"enable_combined_subtypes"`

	// DisplayMessages enables readable output of the decoded pages
	// and corrections.
	DisplayMessages bool `json:"display_messages"`

	// RecordCorrections enables the SQLite archive of emitted
	// corrections, written to ArchiveFile.
	RecordCorrections bool   `json:"record_corrections"`
	ArchiveFile       string `json:"archive_file"`

	// NatsURL is the NATS server to publish corrections to.  Empty
	// disables publishing.  The two subjects carry the orbit and
	// clock batches.
	NatsURL          string `json:"nats_url"`
	NatsOrbitSubject string `json:"nats_orbit_subject"`
	NatsClockSubject string `json:"nats_clock_subject"`

	// LostInputConnectionTimeout defines the input timeout in seconds.
	LostInputConnectionTimeout uint `json:"timeout"`

	// LostInputConnectionSleepTime is the time to sleep between
	// connection attempts, in seconds.
	LostInputConnectionSleepTime uint `json:"sleep_time"`

	// SystemLog is the Writer used for logging and can be nil.  It's
	// not supplied in the JSON.  The application should call
	// GetJSONConfigFromFile and, if there is a log writer, supply it
	// as a parameter.
	SystemLog *log.Logger

	// logging indicates that logging should be done.
	logging bool
}

// GetJSONConfigFromFile gets the config from the file given by
// configName.
func GetJSONConfigFromFile(configFileName string, systemLog *log.Logger) (*Config, error) {

	jsonReader, fileErr := os.Open(configFileName)
	if fileErr != nil {
		return nil, fileErr
	}
	defer jsonReader.Close()

	// There is a JSON control file.  Read and unmarshall it.
	config, jsonError := getJSONConfig(jsonReader, systemLog)
	if jsonError != nil {
		return nil, jsonError
	}

	return config, nil
}

// getJSONConfig reads from the given source and returns the config.
func getJSONConfig(jsonSource io.Reader, systemLog *log.Logger) (*Config, error) {

	jsonBytes, jsonReadError := io.ReadAll(jsonSource)
	if jsonReadError != nil {
		// We can't read the control file - permissions?
		systemLog.Printf("cannot read the JSON control file - %s\n", jsonReadError.Error())
		return nil, jsonReadError
	}

	var config Config
	// Parse the JSON control file.
	jsonParseError := json.Unmarshal(jsonBytes, &config)
	if jsonParseError != nil {
		systemLog.Printf("cannot parse the JSON control file - %s\n", jsonParseError.Error())
		return nil, jsonParseError
	}

	// Set the fields that are not set by the JSON.
	config.SystemLog = systemLog
	config.logging = systemLog != nil

	return &config, nil
}

// WaitAndConnectToInput tries repeatedly (potentially indefinitely)
// to connect to one of the input files whose names are given.
func (config *Config) WaitAndConnectToInput() io.Reader {
	for {
		reader := findInputDevice(config)
		if reader != nil {
			if config.logging {
				config.SystemLog.Println(
					"waitAndConnectToInput: connected to SBF source")
			}
			return reader // Success!
		}
		if config.logging {
			config.SystemLog.Println(
				"waitAndConnectToInput: failed to connect to SBF source.  Retrying")
		}
		sleeptime := time.Duration(config.LostInputConnectionSleepTime) * time.Second
		time.Sleep(sleeptime)
	}
}

// findInputDevice searches the list of input files from the config.
// If one of the named files exists and can be opened for reading, it
// returns a Reader connected to it.
func findInputDevice(config *Config) io.Reader {
	// Note:  The device names "/dev/ttyACM0" etc on a Raspberry Pi
	// DO NOT relate to the physical USB sockets on the circuit board.
	// They are used in turn.  After the Pi boots, the first connection
	// uses "/dev/ttyACM0".  If the receiver loses power briefly, then
	// when it comes back, the connection is represented by
	// "/dev/ttyACM1", and so on, even though the USB plug is connected
	// to the same port.  So, whenever software needs to establish a
	// connection with a serial USB device, it needs to do this search.

	file := getInputFile(config)
	if file == nil {
		// None of the input files are present.  Return nil.
		return nil
	}

	// The file exists and is open.  Return it.
	return file
}

// getInputFile returns a connection to the first file in the given
// list that it can open for reading or nil if it can't open any file.
// The connection returned has a read deadline set given by the
// configuration.
func getInputFile(config *Config) *os.File {
	for _, name := range config.Filenames {
		file, err := os.Open(name)
		if err != nil {
			continue
		}
		if config.logging {
			config.SystemLog.Printf("getInputFile: found %s", name)
			// Turn off logging after the first successful scan.
			config.logging = false
		}
		durationToDeadline := time.Duration(config.LostInputConnectionTimeout) *
			time.Second
		deadline := time.Now().Add(durationToDeadline)
		file.SetReadDeadline(deadline)
		// The file exists and we've just opened it for reading.
		return file
	}

	return nil
}
