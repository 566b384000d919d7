package espkey

import (
	"fmt"
	"regexp"
	"strconv"
)

var framePattern = regexp.MustCompile(`^([0-9a-fA-F]+):([0-9]+)$`)

// Frame is a Wiegand payload to replay: hex data plus its bit length.
type Frame struct {
	Hex  string
	Bits uint
}

func (f Frame) String() string {
	return f.Hex + ":" + strconv.FormatUint(uint64(f.Bits), 10)
}

// ParseFrame parses the "<hex>:<bits>" notation, e.g. "0aadc39:26".
func ParseFrame(s string) (Frame, error) {
	m := framePattern.FindStringSubmatch(s)
	if m == nil {
		return Frame{}, fmt.Errorf("frame %q: want <hex>:<bits>", s)
	}
	bits, err := strconv.ParseUint(m[2], 10, 32)
	if err != nil || bits == 0 {
		return Frame{}, fmt.Errorf("frame %q: bit length must be a positive integer", s)
	}
	return Frame{Hex: m[1], Bits: uint(bits)}, nil
}
