// Package transit computes upper meridian transit times for fixed equatorial
// coordinates. A star transits when the local sidereal time equals its right
// ascension; the time until that happens is the sidereal-to-solar-scaled
// angular difference between the two.
//
// Local sidereal time uses the IAU apparent sidereal time expression as
// implemented by meeus/v3 (Meeus chapter 12), referenced to J2000.
package transit

import (
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/unit"
)

// SiderealDaySeconds is the length of one sidereal day in SI seconds.
const SiderealDaySeconds = 86164.0905

// SiderealDay is the sidereal day as a time.Duration.
var SiderealDay = time.Duration(SiderealDaySeconds * float64(time.Second))

// RateDegPerSec is the sidereal rate: degrees of LST advance per SI second.
const RateDegPerSec = 360.0 / SiderealDaySeconds

// atTransitDeg is the tolerance inside which a star counts as transiting
// right now (about 36 arcseconds of LST, a bit over two seconds of time).
const atTransitDeg = 0.01

// Visibility classifies a declination for a given observer latitude.
type Visibility int

const (
	// RisesAndSets means the star has an ordinary daily rise and set.
	RisesAndSets Visibility = iota
	// AlwaysAbove means the star is circumpolar: it never sets, but still
	// has an upper culmination once per sidereal day.
	AlwaysAbove
	// NeverRises means the star's upper culmination is below the horizon.
	NeverRises
)

func (v Visibility) String() string {
	switch v {
	case RisesAndSets:
		return "rises-and-sets"
	case AlwaysAbove:
		return "always-above"
	case NeverRises:
		return "never-rises"
	}
	return "unknown"
}

// Observer is a fixed geodetic position. Longitude is degrees East positive.
type Observer struct {
	LatitudeDeg  float64
	LongitudeDeg float64
}

// Calculator computes transit instants for one observer. All methods are
// pure functions of their inputs and the fixed observer position.
type Calculator struct {
	obs Observer
}

// NewCalculator validates the observer position. An out-of-range latitude is
// a fatal configuration error.
func NewCalculator(obs Observer) (*Calculator, error) {
	if obs.LatitudeDeg < -90 || obs.LatitudeDeg > 90 {
		return nil, fmt.Errorf("observer latitude %v outside [-90, 90]", obs.LatitudeDeg)
	}
	if obs.LongitudeDeg < -180 || obs.LongitudeDeg > 180 {
		return nil, fmt.Errorf("observer longitude %v outside [-180, 180]", obs.LongitudeDeg)
	}
	return &Calculator{obs: obs}, nil
}

// Observer returns the calculator's fixed position.
func (c *Calculator) Observer() Observer { return c.obs }

// LocalSiderealDeg returns the local apparent sidereal time at t for an
// observer at lonEastDeg, in degrees [0, 360).
func LocalSiderealDeg(t time.Time, lonEastDeg float64) float64 {
	jd := julian.TimeToJD(t.UTC())
	gst := sidereal.Apparent(jd)
	return unit.PMod(gst.Angle().Deg()+lonEastDeg, 360)
}

// LSTDeg returns the observer's local sidereal time at t in degrees [0, 360).
func (c *Calculator) LSTDeg(t time.Time) float64 {
	return LocalSiderealDeg(t, c.obs.LongitudeDeg)
}

// WaitDeg returns the degrees LST must advance from lstDeg to reach raDeg,
// in [0, 360). Values >= 180 mean the star is past the meridian.
func WaitDeg(lstDeg, raDeg float64) float64 {
	return unit.PMod(raDeg-lstDeg, 360)
}

// OffMeridianDeg returns the shortest angular distance between lstDeg and
// raDeg, in [0, 180]. Values near 180 mean the star is at lower culmination.
func OffMeridianDeg(lstDeg, raDeg float64) float64 {
	d := math.Mod(lstDeg-raDeg+180, 360) - 180
	if d < -180 {
		d += 360
	}
	return math.Abs(d)
}

// TransitAltitudeDeg returns the altitude of the star at upper culmination.
func TransitAltitudeDeg(decDeg, latDeg float64) float64 {
	return 90 - math.Abs(latDeg-decDeg)
}

// Classify reports whether a declination transits above the horizon at the
// calculator's latitude, and whether it is circumpolar. Circumpolar stars
// still transit and stay schedulable; only NeverRises excludes a star.
func (c *Calculator) Classify(decDeg float64) Visibility {
	lat := c.obs.LatitudeDeg
	if math.Abs(lat-decDeg) > 90 {
		return NeverRises
	}
	if lat >= 0 {
		if decDeg > 90-lat {
			return AlwaysAbove
		}
	} else {
		if decDeg < -90-lat {
			return AlwaysAbove
		}
	}
	return RisesAndSets
}

// NextTransit returns the next instant at or after `after` when the star's
// hour angle is zero. If the star is within the transit tolerance at
// `after`, that instant itself is returned, so an imminent transit is
// reported exactly once.
func (c *Calculator) NextTransit(raDeg float64, after time.Time) time.Time {
	return c.next(raDeg, after, false)
}

// NextTransitAfterCurrent is NextTransit except that a star already at the
// meridian is pushed a full sidereal day out. Used when rescheduling a star
// that just fired or was skipped, so the same transit is never seen twice.
func (c *Calculator) NextTransitAfterCurrent(raDeg float64, after time.Time) time.Time {
	return c.next(raDeg, after, true)
}

func (c *Calculator) next(raDeg float64, after time.Time, skipCurrent bool) time.Time {
	lst := c.LSTDeg(after)
	wait := WaitDeg(lst, raDeg)
	if wait < atTransitDeg {
		if !skipCurrent {
			return after
		}
		wait += 360
	}
	offset := time.Duration(wait / RateDegPerSec * float64(time.Second))
	return after.Add(offset)
}
