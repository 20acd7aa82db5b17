// Package demand implements per-direction forecast demand curves that are
// looked up by simulated time of day
package demand

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// SecondsPerDay is the period after which demand curves wrap around
const SecondsPerDay = 86400

// Direction is a cardinal approach direction of the intersection
type Direction string

const (
	North Direction = "N"
	South Direction = "S"
	East  Direction = "E"
	West  Direction = "W"
)

// Directions lists the approach directions in state-vector order
var Directions = []Direction{North, South, East, West}

// Record is a single forecast entry as written by the forecasting tool
type Record struct {
	Time           string  `json:"time"`
	ExpectedDemand float64 `json:"expected_demand"`
}

// Curve maps a time of day to a forecast demand. A Curve is read-only
// after construction and may be shared between goroutines.
type Curve struct {
	seconds []int
	values  []float64
}

// NewCurve builds a Curve from a sequence of records. If two records share
// a time, the later one wins.
func NewCurve(records []Record) (*Curve, error) {
	byTime := make(map[int]float64, len(records))
	for i, r := range records {
		sec, err := ParseClock(r.Time)
		if err != nil {
			return nil, fmt.Errorf("newCurve: record %d: %w", i, err)
		}
		if r.ExpectedDemand < 0 {
			return nil, fmt.Errorf("newCurve: record %d: negative demand %v",
				i, r.ExpectedDemand)
		}
		byTime[sec] = r.ExpectedDemand
	}

	c := &Curve{
		seconds: make([]int, 0, len(byTime)),
		values:  make([]float64, len(byTime)),
	}
	for sec := range byTime {
		c.seconds = append(c.seconds, sec)
	}
	sort.Ints(c.seconds)
	for i, sec := range c.seconds {
		c.values[i] = byTime[sec]
	}
	return c, nil
}

// At returns the demand of the latest recorded time that is not after the
// given second of the day, or 0 if there is no such time
func (c *Curve) At(second int) float64 {
	if c == nil {
		return 0
	}
	// Index of the first recorded time strictly after second
	i := sort.SearchInts(c.seconds, second+1)
	if i == 0 {
		return 0
	}
	return c.values[i-1]
}

// Len returns the number of recorded times in the curve
func (c *Curve) Len() int {
	if c == nil {
		return 0
	}
	return len(c.seconds)
}

// Curves holds one Curve per direction
type Curves struct {
	curves map[Direction]*Curve
}

// New returns a set of demand curves. Directions missing from curves
// always have zero demand.
func New(curves map[Direction]*Curve) *Curves {
	c := make(map[Direction]*Curve, len(curves))
	for d, curve := range curves {
		c[d] = curve
	}
	return &Curves{c}
}

// Lookup returns the forecast demand for direction d at the given simulated
// time in seconds. The time is floored to the minute and wrapped to a
// single day before the curve is consulted.
func (c *Curves) Lookup(d Direction, simTime float64) float64 {
	if c == nil {
		return 0
	}
	curve, ok := c.curves[d]
	if !ok {
		return 0
	}

	minute := (int(simTime) / 60) * 60
	second := minute % SecondsPerDay
	if second < 0 {
		second += SecondsPerDay
	}
	return curve.At(second)
}

// Load reads one JSON curve file per direction. Files shared between
// directions are parsed once.
func Load(paths map[Direction]string) (*Curves, error) {
	parsed := make(map[string]*Curve)
	curves := make(map[Direction]*Curve, len(paths))

	for d, path := range paths {
		if curve, ok := parsed[path]; ok {
			curves[d] = curve
			continue
		}

		curve, err := LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load: direction %v: %w", d, err)
		}
		parsed[path] = curve
		curves[d] = curve
	}
	return New(curves), nil
}

// LoadFile reads a single JSON curve file
func LoadFile(path string) (*Curve, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loadFile: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("loadFile: %v: %w", path, err)
	}
	return NewCurve(records)
}

// ParseClock converts an HH:MM:SS clock time to seconds since midnight
func ParseClock(clock string) (int, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("parseClock: malformed time %q", clock)
	}

	var fields [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("parseClock: malformed time %q: %w", clock, err)
		}
		fields[i] = v
	}

	h, m, s := fields[0], fields[1], fields[2]
	if h < 0 || h > 23 || m < 0 || m > 59 || s < 0 || s > 59 {
		return 0, fmt.Errorf("parseClock: time %q out of range", clock)
	}
	return h*3600 + m*60 + s, nil
}
