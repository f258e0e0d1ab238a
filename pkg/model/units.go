package model

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/mitchellh/mapstructure"
)

// Length is a packet length in bits
type Length int64

// Datarate is a link datarate in bits per second
type Datarate int64

// Interframe gap of Ethernet in bits
const interframeGapBits = 96

var lengthUnits = map[string]int64{
	"b":     1,
	"bit":   1,
	"bits":  1,
	"B":     8,
	"byte":  8,
	"bytes": 8,
	"kb":    1_000,
	"kB":    8_000,
	"Mb":    1_000_000,
	"MB":    8_000_000,
}

var datarateUnits = map[string]int64{
	"bps":  1,
	"kbps": 1_000,
	"Kbps": 1_000,
	"Mbps": 1_000_000,
	"Gbps": 1_000_000_000,
	"Tbps": 1_000_000_000_000,
}

// ParseLength parses lengths such as "1500B", "12000b" or "1.5kB"; a bare number is taken as bits
func ParseLength(text string) (Length, error) {
	value, err := parseQuantity(text, lengthUnits, "b")
	if err != nil {
		return 0, fmt.Errorf("invalid length %q: %w", text, err)
	}
	return Length(value), nil
}

// ParseDatarate parses datarates such as "1Gbps" or "100Mbps"; a bare number is taken as bits per second
func ParseDatarate(text string) (Datarate, error) {
	value, err := parseQuantity(text, datarateUnits, "bps")
	if err != nil {
		return 0, fmt.Errorf("invalid datarate %q: %w", text, err)
	}
	return Datarate(value), nil
}

func parseQuantity(text string, units map[string]int64, defaultUnit string) (int64, error) {
	text = strings.TrimSpace(text)
	split := strings.IndexFunc(text, func(r rune) bool { return unicode.IsLetter(r) })
	number, unit := text, defaultUnit
	if split >= 0 {
		number, unit = strings.TrimSpace(text[:split]), text[split:]
	}

	factor, ok := units[unit]
	if !ok {
		return 0, fmt.Errorf("unknown unit %q", unit)
	}
	value, ok := new(big.Rat).SetString(number)
	if !ok {
		return 0, fmt.Errorf("invalid number %q", number)
	}
	value.Mul(value, big.NewRat(factor, 1))
	if !value.IsInt() || !value.Num().IsInt64() {
		return 0, fmt.Errorf("%v is not a whole number of base units", value.RatString())
	}
	return value.Num().Int64(), nil
}

func (length Length) String() string {
	if length%8 == 0 {
		return fmt.Sprintf("%dB", int64(length)/8)
	}
	return fmt.Sprintf("%db", int64(length))
}

func (datarate Datarate) String() string {
	for _, unit := range []string{"Tbps", "Gbps", "Mbps", "kbps"} {
		if factor := datarateUnits[unit]; int64(datarate)%factor == 0 && int64(datarate) >= factor {
			return fmt.Sprintf("%d%s", int64(datarate)/factor, unit)
		}
	}
	return fmt.Sprintf("%dbps", int64(datarate))
}

func (length Length) MarshalYAML() (any, error) {
	return length.String(), nil
}

func (datarate Datarate) MarshalYAML() (any, error) {
	return datarate.String(), nil
}

func (length Length) MarshalText() ([]byte, error) {
	return []byte(length.String()), nil
}

func (datarate Datarate) MarshalText() ([]byte, error) {
	return []byte(datarate.String()), nil
}

// unitHookFunc decodes strings into lengths and datarates
func unitHookFunc() mapstructure.DecodeHookFuncType {
	lengthType, datarateType := reflect.TypeOf(Length(0)), reflect.TypeOf(Datarate(0))
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String {
			return data, nil
		}
		switch to {
		case lengthType:
			return ParseLength(data.(string))
		case datarateType:
			return ParseDatarate(data.(string))
		}
		return data, nil
	}
}

//** Conversions into the solver's numeric domain (nanoseconds as exact rationals)

func nanoseconds(duration time.Duration) *big.Rat {
	return big.NewRat(duration.Nanoseconds(), 1)
}

// transmissionTime is the time needed to put length bits on a link of the given datarate
func transmissionTime(length Length, datarate Datarate) *big.Rat {
	nanos := new(big.Rat).SetInt64(int64(length))
	nanos.Mul(nanos, big.NewRat(int64(time.Second), 1))
	return nanos.Quo(nanos, new(big.Rat).SetInt64(int64(datarate)))
}

func interframeGap(datarate Datarate) *big.Rat {
	return transmissionTime(interframeGapBits, datarate)
}
