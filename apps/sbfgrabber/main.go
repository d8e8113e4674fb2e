// The sbfgrabber reads the raw SBF byte stream from a Septentrio
// receiver on a serial USB connection and copies it to stdout.  It's
// the first stage of a pipeline - connect it to the b2bserver via a
// pipe:
//
//	sbfgrabber -c grabber.json | b2bserver -c b2bserver.json
//
// When the application starts up it reads a JSON config file given by
// the -c argument, for example:
//
//	{
//	    "speed": 115200,
//	    "parity": "no_parity",
//	    "data_bits": 8,
//	    "stop_bits": 1,
//	    "read_timeout_milliseconds": 3000,
//	    "sleep_time_after_failed_open_milliseconds": 500,
//	    "sleep_time_on_EOF_millis": 500,
//	    "filenames": ["/dev/ttyACM0", "/dev/ttyACM1"]
//	}
//
// The receiver connects as a serial USB device.  If it loses power
// and comes back, the device name changes ("/dev/ttyACM0" becomes
// "/dev/ttyACM1" and so on), so the config gives all the names the
// device might have and the grabber scans for the one that's live.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.bug.st/serial"
)

// Config controls the serial connection and the retry behaviour.
type Config struct {

	// These values are used to set the mode struct for serial.Open.

	// Speed is the line speed in bits per second.
	Speed int `json:"speed"`

	// Parity is the parity of the incoming bytes - no_parity
	// (default), odd_parity, even_parity, mark_parity, space_parity.
	Parity string `json:"parity"`

	// DataBits is the number of data bits in the byte: 5-8.
	DataBits int `json:"data_bits"`

	// StopBits is the number of stop bits - 1, 1.5 or 2.
	StopBits float32 `json:"stop_bits"`

	mode serial.Mode

	// ReadTimeoutMilliSeconds defines the input timeout.
	ReadTimeoutMilliSeconds int `json:"read_timeout_milliseconds"`

	// SleepTimeAfterFailedOpenMilliSeconds defines the time to sleep
	// after a failed attempt to find and open a port before retrying.
	SleepTimeAfterFailedOpenMilliSeconds int `json:"sleep_time_after_failed_open_milliseconds"`

	// SleepTimeOnEOFMilliseconds specifies how long to sleep after
	// encountering end of file before trying to reopen the
	// connection.
	SleepTimeOnEOFMilliseconds int `json:"sleep_time_on_EOF_millis"`

	// Filenames is a list of potential device names of the serial USB
	// port, for example "/dev/ttyACM0", "/dev/ttyACM1".  For Windows
	// "COM4", "COM5" etc.
	Filenames []string `json:"filenames"`
}

var logger *slog.Logger

func main() {

	// Log to stderr - stdout carries the SBF bytes.
	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Get the name of the config file (mandatory).
	var configFileName string
	flag.StringVar(&configFileName, "c", "", "JSON config file")
	flag.StringVar(&configFileName, "config", "", "JSON config file")

	flag.Parse()

	if len(configFileName) == 0 {
		logger.Error("missing config file: -c or --config")
		os.Exit(-1)
	}

	config, errConfig := getConfig(configFileName)
	if errConfig != nil {
		logger.Error(errConfig.Error())
		os.Exit(-1)
	}

	GrabFromPorts(config, logger)
}

// GrabFromPorts loops until forcibly stopped.  It gets the list of
// open serial ports and compares that with the given list of
// filenames.  On the first match it opens that file as a serial USB
// port, reads from it and writes the data to stdout until they are
// exhausted and the read times out.  Then it repeats all that.
func GrabFromPorts(config *Config, logger *slog.Logger) {

	// atStart controls the handling of the case where no serial ports
	// are found.  If that happens at the very start, the program logs
	// an error and dies.  If it happens later, the program waits
	// silently until ports appear.
	var atStart = true

	for {

		knownSerialPorts, errGetPorts := serial.GetPortsList()
		if atStart {
			// On the first trip only, insist on at least one active
			// port.
			if errGetPorts != nil {
				logger.Error("error getting active serial ports - " + errGetPorts.Error())
				os.Exit(-1)
			}

			if len(knownSerialPorts) == 0 {
				logger.Error("No active serial ports found!")
				os.Exit(-1)
			}

			atStart = false
		}

		// On trips apart from the very first, if we find no active
		// ports, sleep for a short time and retry.
		if len(knownSerialPorts) == 0 {
			sleepTime := time.Millisecond *
				time.Duration(config.SleepTimeAfterFailedOpenMilliSeconds)
			time.Sleep(sleepTime)
			continue
		}

		port, errConn := GetConnection(config, knownSerialPorts)
		if errConn != nil {
			sleepTime := time.Millisecond *
				time.Duration(config.SleepTimeAfterFailedOpenMilliSeconds)
			time.Sleep(sleepTime)
			continue
		}

		errGrab := GrabFromPort(port)
		if errGrab != nil {
			logger.Error(errGrab.Error())
		}

		// If we get to here, the supply from the port has dried up.
		// Wait for a short time and then continue.
		port.Close()
		sleepTime := time.Millisecond *
			time.Duration(config.SleepTimeOnEOFMilliseconds)
		time.Sleep(sleepTime)
	}
}

// GrabFromPort copies bytes from the port to stdout until the read
// times out or fails.
func GrabFromPort(port serial.Port) error {

	buffer := make([]byte, 1024)

	for {

		n, errRead := port.Read(buffer)
		if errRead != nil {
			return errRead
		}

		if n == 0 {
			// This probably indicates that the Read has timed out.
			return errors.New("timeout")
		}

		os.Stdout.Write(buffer[:n])
	}
}

// GetConnection opens the first configured filename that matches a
// live serial port.
func GetConnection(config *Config, knownSerialPorts []string) (serial.Port, error) {
	for _, portName := range knownSerialPorts {
		for i := range config.Filenames {
			if config.Filenames[i] != portName {
				continue
			}
			port, errOpen := serial.Open(config.Filenames[i], &config.mode)
			if errOpen != nil {
				return nil, errOpen
			}

			timeout := time.Duration(config.ReadTimeoutMilliSeconds) * time.Millisecond
			port.SetReadTimeout(timeout)
			return port, nil
		}
	}

	return nil, errors.New("no matching serial ports found")
}

// getConfig gets the config from the given file.
func getConfig(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		em := fmt.Sprintf("cannot open config file: %s", err.Error())
		return nil, errors.New(em)
	}
	defer file.Close()

	return getConfigFromReader(file)
}

// getConfigFromReader gets the config from the given reader.
func getConfigFromReader(configReader io.Reader) (*Config, error) {

	data, errRead := io.ReadAll(configReader)
	if errRead != nil {
		return nil, errRead
	}

	var config Config
	if errParse := json.Unmarshal(data, &config); errParse != nil {
		return nil, errParse
	}

	// Convert the JSON fields to a serial mode.
	config.mode.BaudRate = config.Speed
	config.mode.DataBits = config.DataBits

	switch config.Parity {
	case "", "no_parity":
		config.mode.Parity = serial.NoParity
	case "odd_parity":
		config.mode.Parity = serial.OddParity
	case "even_parity":
		config.mode.Parity = serial.EvenParity
	case "mark_parity":
		config.mode.Parity = serial.MarkParity
	case "space_parity":
		config.mode.Parity = serial.SpaceParity
	default:
		em := fmt.Sprintf("unknown parity %s", config.Parity)
		return nil, errors.New(em)
	}

	switch config.StopBits {
	case 0, 1:
		config.mode.StopBits = serial.OneStopBit
	case 1.5:
		config.mode.StopBits = serial.OnePointFiveStopBits
	case 2:
		config.mode.StopBits = serial.TwoStopBits
	default:
		em := fmt.Sprintf("illegal stop bits %v", config.StopBits)
		return nil, errors.New(em)
	}

	return &config, nil
}
