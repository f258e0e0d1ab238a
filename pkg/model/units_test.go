package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseLength(t *testing.T) {
	cases := map[string]Length{
		"1500B":  12000,
		"12000b": 12000,
		"1.5kB":  12000,
		"64":     64,
		"1 MB":   8_000_000,
	}
	for text, expected := range cases {
		length, err := ParseLength(text)
		assert.Nil(t, err, text)
		assert.Equal(t, expected, length, text)
	}

	for _, text := range []string{"", "12 parsecs", "0.5b", "B"} {
		_, err := ParseLength(text)
		assert.NotNil(t, err, text)
	}
}

func TestParseDatarate(t *testing.T) {
	cases := map[string]Datarate{
		"1Gbps":   1_000_000_000,
		"100Mbps": 100_000_000,
		"2.5Gbps": 2_500_000_000,
		"9600":    9600,
	}
	for text, expected := range cases {
		datarate, err := ParseDatarate(text)
		assert.Nil(t, err, text)
		assert.Equal(t, expected, datarate, text)
	}

	_, err := ParseDatarate("1GBps")
	assert.NotNil(t, err)
}

func TestUnitStrings(t *testing.T) {
	assert.Equal(t, "1500B", Length(12000).String())
	assert.Equal(t, "13b", Length(13).String())
	assert.Equal(t, "1Gbps", Datarate(1_000_000_000).String())
	assert.Equal(t, "2500Mbps", Datarate(2_500_000_000).String())
	assert.Equal(t, "12bps", Datarate(12).String())
}

func TestTimeConversions(t *testing.T) {
	// 1500 bytes on a gigabit link take 12 microseconds
	duration, _ := transmissionTime(12000, 1_000_000_000).Float64()
	assert.Equal(t, 12000.0, duration)

	// 96 bits on a 100 Mbit link take 960 nanoseconds
	gap, _ := interframeGap(100_000_000).Float64()
	assert.Equal(t, 960.0, gap)

	// Exact rationals are kept for datarates that do not divide evenly
	assert.Equal(t, "32000/3", transmissionTime(8000, 750_000_000).RatString())

	nanos, _ := nanoseconds(1500 * time.Microsecond).Float64()
	assert.Equal(t, 1_500_000.0, nanos)
}
