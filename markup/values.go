package markup

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// quietNaN is the bit pattern written as plain "NaN". Other NaN payloads are
// written as hex bits so they survive a round trip.
const quietNaN = 0x7FC00000

func formatFloat(f float32) string {
	if bits := math.Float32bits(f); math.IsNaN(float64(f)) && bits != quietNaN {
		return fmt.Sprintf("0x%08X", bits)
	}
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

func parseFloat(s string) (float32, error) {
	s = strings.TrimSpace(s)
	if hex, ok := strings.CutPrefix(s, "0x"); ok {
		bits, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return 0, err
		}
		return math.Float32frombits(uint32(bits)), nil
	}
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) {
		return math.Float32frombits(quietNaN), nil
	}
	return float32(f), nil
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

func parseByte(s string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8)
	return uint8(v), err
}
