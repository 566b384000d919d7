package credential

import (
	"strconv"
	"strings"
)

const (
	facilityShift = 17
	facilityMask  = 0x1FE0000 // bits 17-24
	cardShift     = 1
	cardMask      = 0x1FFFE // bits 1-16

	maxKeypadNibbles = 10

	randomUIDNote = "Possible random 4-byte UID used in Mifare DESFire EV2 or EV3."
)

// Wiegand26 holds the fields of a standard HID 26-bit frame.
type Wiegand26 struct {
	FacilityCode uint8  `json:"facility_code"`
	CardNumber   uint16 `json:"card_number"`
}

// UIDGuess is a possible short card UID recovered from a raw payload.
type UIDGuess struct {
	UID   string   `json:"uid"`
	Notes []string `json:"notes,omitempty"`
}

// Diagnostics reports the logic level of the monitored pins.
type Diagnostics struct {
	Green bool `json:"green"`
	White bool `json:"white"`
	Aux   bool `json:"aux"`
}

// keypadGlyphs maps the low nibble of a HID keypad byte to its key.
var keypadGlyphs = map[byte]string{
	0x0: "0", 0x1: "1", 0x2: "2", 0x3: "3",
	0x4: "4", 0x5: "5", 0x6: "6", 0x7: "7",
	0x8: "8", 0x9: "9", 0xA: "*", 0xB: "#",
}

// DecodeWiegand26 extracts the facility code and card number from a 26-bit
// frame given as big-endian hex. The parity bits are ignored. It reports false
// only when hexRaw is not a hex string.
func DecodeWiegand26(hexRaw string) (Wiegand26, bool) {
	value, ok := lowBits(hexRaw)
	if !ok {
		return Wiegand26{}, false
	}
	return Wiegand26{
		FacilityCode: uint8((value & facilityMask) >> facilityShift),
		CardNumber:   uint16((value & cardMask) >> cardShift),
	}, true
}

// DecodeKeypad decodes HID keypad bytes, where the high nibble of each byte is
// the complement of the low nibble. Payloads longer than five bytes, odd nibble
// counts and any byte failing the check make the whole decode inapplicable.
func DecodeKeypad(hexRaw string) ([]string, bool) {
	n := len(hexRaw)
	if n == 0 || n%2 != 0 || n > maxKeypadNibbles {
		return nil, false
	}
	keys := make([]string, 0, n/2)
	for i := 0; i < n; i += 2 {
		b, err := strconv.ParseUint(hexRaw[i:i+2], 16, 8)
		if err != nil {
			return nil, false
		}
		high, low := byte(b>>4), byte(b&0x0F)
		if high != ^low&0x0F {
			return nil, false
		}
		glyph, ok := keypadGlyphs[low]
		if !ok {
			return nil, false
		}
		keys = append(keys, glyph)
	}
	return keys, true
}

// GuessShortUID treats 32, 56 and 80 bit payloads as 4, 7 or 10 byte card
// UIDs sent in reverse byte order.
func GuessShortUID(hexRaw string, bits uint) (UIDGuess, bool) {
	switch bits {
	case 32, 56, 80:
	default:
		return UIDGuess{}, false
	}
	if len(hexRaw) == 0 || len(hexRaw)%2 != 0 || !isHex(hexRaw) {
		return UIDGuess{}, false
	}

	var b strings.Builder
	b.Grow(len(hexRaw))
	for i := len(hexRaw) - 2; i >= 0; i -= 2 {
		b.WriteString(hexRaw[i : i+2])
	}
	guess := UIDGuess{UID: strings.ToLower(b.String())}

	if len(guess.UID) == 8 && strings.HasPrefix(guess.UID, "08") {
		guess.Notes = append(guess.Notes, randomUIDNote)
	}
	return guess, true
}

// DecodeDiagnostics reads the pin flags out of the device's GPIO register.
func DecodeDiagnostics(gpio uint32) Diagnostics {
	return Diagnostics{
		Green: gpio>>13&0x01 == 1,
		White: gpio>>14&0x01 == 1,
		Aux:   gpio>>5&0x01 == 1,
	}
}

// lowBits returns the low 64 bits of an arbitrarily long hex string.
func lowBits(hexRaw string) (uint64, bool) {
	if hexRaw == "" || !isHex(hexRaw) {
		return 0, false
	}
	if len(hexRaw) > 16 {
		hexRaw = hexRaw[len(hexRaw)-16:]
	}
	value, err := strconv.ParseUint(hexRaw, 16, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
