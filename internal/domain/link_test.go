package domain

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestLinkBandwidth(t *testing.T) {
	tests := []struct {
		speed string
		width string
		want  float64
	}{
		{"SDR", "4x", 4 * 2.5 * 0.8},
		{"DDR", "4x", 4 * 5 * 0.8},
		{"QDR", "4x", 4 * 10 * 0.8},
		{"FDR", "4x", 4 * 14.0625 * 64 / 66},
		{"FDR10", "4x", 4 * 10 * 64.0 / 66},
		{"EDR", "4x", 4 * 25 * 64.0 / 66},
		{"EDR", "12x", 12 * 25 * 64.0 / 66},
		{"QDR", "1x", 10 * 0.8},
		{"QDR", "0x", 0},
		{"QDR", "x", 0},
		{"QDR", "4", 0},
		{"HDR", "4x", 1},
		{"", "4x", 1},
		{"fdr", "4x", 1},
	}

	for _, tt := range tests {
		t.Run(tt.speed+"/"+tt.width, func(t *testing.T) {
			assert.InDelta(t, tt.want, LinkBandwidth(tt.speed, tt.width), 1e-9)
		})
	}
}

func TestLinkBandwidthFDR10(t *testing.T) {
	assert.InDelta(t, 24.24, LinkBandwidth("FDR10", "4x"), 0.01)
}

func TestLinkBandwidthProperties(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("unknown speed is exactly one", prop.ForAll(
		func(speed string, lanes uint8) bool {
			if KnownSpeed(speed) {
				return true
			}
			return LinkBandwidth(speed, string(rune('0'+lanes%10))+"x") == UnknownSpeedBandwidth
		},
		gen.AlphaString(),
		gen.UInt8(),
	))

	properties.Property("zero width is zero for known speeds", prop.ForAll(
		func(speed string) bool {
			return LinkBandwidth(speed, "0x") == 0
		},
		gen.OneConstOf("SDR", "DDR", "QDR", "FDR", "FDR10", "EDR"),
	))

	properties.TestingRun(t)
}

func TestLaneCount(t *testing.T) {
	tests := map[string]int{
		"4x":  4,
		"12x": 12,
		"1x":  1,
		"x":   0,
		"":    0,
		"4":   0,
		"a4x": 0,
	}
	for width, want := range tests {
		if got := LaneCount(width); got != want {
			t.Errorf("LaneCount(%q) = %d, want %d", width, got, want)
		}
	}
}
