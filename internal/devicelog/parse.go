package devicelog

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/five82/espkey/internal/credential"
)

var (
	dataLine = regexp.MustCompile(`^([0-9]+) ([0-9a-fA-F]+):([0-9]+)$`)
	auxLine  = regexp.MustCompile(`^([0-9]+) (Aux changed to ([01]))$`)
	textLine = regexp.MustCompile(`^([0-9]+) (.+)$`)
)

// Parse splits raw device log text into typed entries in file order. Lines
// that match none of the known shapes are dropped, as are lines whose clock
// or bit length does not fit in a uint32; such a data line is not retried as
// text.
func Parse(text string) Log {
	text = strings.ReplaceAll(text, "\r", "")
	lines := strings.Split(text, "\n")

	entries := make(Log, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if entry, ok := parseLine(line); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// Decode parses text and, when anchor is non-nil, assigns reconstructed
// wall-clock times using the default boot grace window.
func Decode(text string, anchor *Anchor) Log {
	entries := Parse(text)
	if anchor != nil {
		ApplyTimes(entries, *anchor, DefaultBootGrace)
	}
	return entries
}

func parseLine(line string) (Entry, bool) {
	if m := dataLine.FindStringSubmatch(line); m != nil {
		clock, ok := parseClock(m[1])
		if !ok {
			return nil, false
		}
		bits, err := strconv.ParseUint(m[3], 10, 32)
		if err != nil {
			return nil, false
		}
		return newDataEntry(clock, m[2], uint(bits)), true
	}

	if m := auxLine.FindStringSubmatch(line); m != nil {
		clock, ok := parseClock(m[1])
		if !ok {
			return nil, false
		}
		return &AuxEntry{
			Stamp:    Stamp{TimeRaw: clock},
			AuxLevel: m[3] == "1",
			Message:  m[2],
		}, true
	}

	if m := textLine.FindStringSubmatch(line); m != nil {
		clock, ok := parseClock(m[1])
		if !ok {
			return nil, false
		}
		return &TextEntry{Stamp: Stamp{TimeRaw: clock}, Message: m[2]}, true
	}

	return nil, false
}

func newDataEntry(clock uint32, hexRaw string, bits uint) *DataEntry {
	entry := &DataEntry{
		Stamp:     Stamp{TimeRaw: clock},
		DataHex:   hexRaw,
		BitLength: bits,
	}

	if bits == 26 {
		if w, ok := credential.DecodeWiegand26(hexRaw); ok {
			entry.Wiegand26 = &w
		}
	}
	if bits%2 == 0 {
		if keys, ok := credential.DecodeKeypad(hexRaw); ok {
			entry.Keypad = keys
		}
	}
	if uid, ok := credential.GuessShortUID(hexRaw, bits); ok {
		entry.UIDGuess = &uid
	}
	return entry
}

func parseClock(s string) (uint32, bool) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}
