package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/five82/espkey/internal/devicelog"
)

const entryTimeLayout = "2006-01-02 15:04:05.000"

func formatEntries(entries devicelog.Log) []string {
	if len(entries) == 0 {
		return nil
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, formatEntry(e))
	}
	return lines
}

// formatEntry renders one entry on a single line: time, kind, then the
// kind-specific payload and any decodes.
func formatEntry(e devicelog.Entry) string {
	ts := fmt.Sprintf("%23s", fmt.Sprintf("+%dms", e.Clock()))
	if t, ok := e.Time(); ok {
		ts = t.In(time.Local).Format(entryTimeLayout)
	}
	header := ts + " " + fmt.Sprintf("%-4s", strings.ToUpper(string(e.Kind())))

	switch v := e.(type) {
	case *devicelog.DataEntry:
		parts := []string{fmt.Sprintf("%s:%d", v.DataHex, v.BitLength)}
		if v.Wiegand26 != nil {
			parts = append(parts, fmt.Sprintf("FC %d CN %d", v.Wiegand26.FacilityCode, v.Wiegand26.CardNumber))
		}
		if len(v.Keypad) > 0 {
			parts = append(parts, "keys "+strings.Join(v.Keypad, ""))
		}
		if v.UIDGuess != nil {
			uid := "uid " + v.UIDGuess.UID
			if len(v.UIDGuess.Notes) > 0 {
				uid += " (" + strings.Join(v.UIDGuess.Notes, "; ") + ")"
			}
			parts = append(parts, uid)
		}
		return header + " " + strings.Join(parts, " – ")
	case *devicelog.AuxEntry:
		level := "low"
		if v.AuxLevel {
			level = "high"
		}
		return fmt.Sprintf("%s %s [%s]", header, v.Message, level)
	case *devicelog.TextEntry:
		return header + " " + strings.TrimSpace(v.Message)
	default:
		return header
	}
}
