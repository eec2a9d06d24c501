package domain

import (
	"regexp"
	"strconv"
)

// PhysicalLink is one port-to-port connection as seen from its owner
type PhysicalLink struct {
	ID          int
	LocalPort   int
	RemotePort  int
	Width       string
	Speed       string
	Bandwidth   float64
	Description string

	Dest    *Node
	Owner   *Node
	Edge    *Edge
	Sibling *PhysicalLink

	// Partitions stays nil until a path tags the link
	Partitions PartitionSet
}

// Signalling rate per lane in Gbit/s and encoding efficiency for each
// InfiniBand speed code.
var speedRates = map[string]struct {
	rate       float64
	efficiency float64
}{
	"SDR":   {2.5, 8.0 / 10.0},
	"DDR":   {5, 8.0 / 10.0},
	"QDR":   {10, 8.0 / 10.0},
	"FDR":   {14.0625, 64.0 / 66.0},
	"FDR10": {10, 64.0 / 66.0},
	"EDR":   {25, 64.0 / 66.0},
}

var widthPattern = regexp.MustCompile(`^(\d*)x`)

// UnknownSpeedBandwidth is reported for speed codes not in the table
const UnknownSpeedBandwidth = 1.0

// KnownSpeed reports whether speed is one of the recognised speed codes
func KnownSpeed(speed string) bool {
	_, ok := speedRates[speed]
	return ok
}

// LaneCount returns the lane multiplier of a width code such as "4x".
// A code without an 'x' yields 0.
func LaneCount(width string) int {
	m := widthPattern.FindStringSubmatch(width)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// LinkBandwidth returns the effective data rate of a link in Gbit/s.
// Unknown speeds yield exactly UnknownSpeedBandwidth regardless of width.
func LinkBandwidth(speed, width string) float64 {
	r, ok := speedRates[speed]
	if !ok {
		return UnknownSpeedBandwidth
	}
	return float64(LaneCount(width)) * r.rate * r.efficiency
}
