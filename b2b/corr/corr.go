// The corr package defines the correction values that the decoder
// emits: orbit corrections and clock corrections, each tagged with the
// satellite it applies to and the time it was issued.  These are the
// State Space Representation values that a positioning engine combines
// with the broadcast ephemeris.
package corr

import (
	"fmt"
)

// PRN identifies a satellite: a constellation letter ('C', 'G', 'E' or
// 'R') and the satellite number within the constellation.
type PRN struct {
	System byte
	Number int
}

// String gives the usual GNSS rendering, for example "C23".
func (prn PRN) String() string {
	return fmt.Sprintf("%c%02d", prn.System, prn.Number)
}

// Time is a GNSS time - a week number and seconds of week.
type Time struct {
	Week int
	Sow  float64
}

// Sub returns the difference t - other in seconds, crossing week
// boundaries as needed.
func (t Time) Sub(other Time) float64 {
	const secondsPerWeek = 604800
	return float64(t.Week-other.Week)*secondsPerWeek + t.Sow - other.Sow
}

// Defined is false for the zero value, which stands for "no time yet".
func (t Time) Defined() bool {
	return t.Week != 0 || t.Sow != 0
}

// String gives a compact rendering of the time.
func (t Time) String() string {
	return fmt.Sprintf("week %d sow %.1f", t.Week, t.Sow)
}

// OrbCorr is an orbit correction for one satellite: the offset of the
// true orbit from the broadcast orbit in the satellite frame.
type OrbCorr struct {
	// StaID names the stream that produced the correction.
	StaID string

	// PRN is the satellite the correction applies to.
	PRN PRN

	// IOD is the issue number of the broadcast ephemeris that the
	// correction applies to.
	IOD int

	// Time is the epoch the correction was issued for.
	Time Time

	// UpdateInterval is the nominal update interval code.  The B2b
	// stream updates continuously, so it's always zero.
	UpdateInterval int

	// Xr is the correction in metres - radial, along-track,
	// cross-track.
	Xr [3]float64

	// DotXr is the velocity of the correction.  The B2b stream doesn't
	// send one, so it's always zero.
	DotXr [3]float64
}

// String gives a one-line rendering in the classic clock/orbit file
// format.
func (orbCorr *OrbCorr) String() string {
	return fmt.Sprintf("%s %10d %11.4f %11.4f %11.4f %11.4f %11.4f %11.4f",
		orbCorr.PRN.String(), orbCorr.IOD,
		orbCorr.Xr[0], orbCorr.Xr[1], orbCorr.Xr[2],
		orbCorr.DotXr[0], orbCorr.DotXr[1], orbCorr.DotXr[2])
}

// ClkCorr is a clock correction for one satellite.
type ClkCorr struct {
	StaID string

	PRN PRN

	// IOD is the issue number of the matching orbit correction
	// generation - see the store package for the cross-reference.
	IOD int

	Time Time

	UpdateInterval int

	// DClk is the clock correction in seconds.
	DClk float64

	// DotDClk and DotDotDClk are the drift terms.  The B2b stream
	// doesn't send them, so they're always zero.
	DotDClk    float64
	DotDotDClk float64
}

// String gives a one-line rendering in the classic clock/orbit file
// format, with the correction in metres.
func (clkCorr *ClkCorr) String() string {
	const speedOfLight = 299792458.0
	return fmt.Sprintf("%s %10d %11.4f %11.4f %11.4f",
		clkCorr.PRN.String(), clkCorr.IOD,
		clkCorr.DClk*speedOfLight, clkCorr.DotDClk, clkCorr.DotDotDClk)
}
