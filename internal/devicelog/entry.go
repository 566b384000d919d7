package devicelog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/five82/espkey/internal/credential"
)

// Kind tags the variant of a log entry.
type Kind string

const (
	KindData Kind = "data"
	KindAux  Kind = "aux"
	KindText Kind = "text"
)

// Entry is one parsed line of the device log. The set of implementations is
// closed: *DataEntry, *AuxEntry and *TextEntry.
type Entry interface {
	Kind() Kind
	// Clock returns the device's relative millisecond counter for the line.
	Clock() uint32
	// Time returns the reconstructed wall-clock time, if one was assigned.
	Time() (time.Time, bool)

	setTime(time.Time)
}

// Stamp carries the timing fields shared by every entry.
type Stamp struct {
	TimeRaw           uint32     `json:"time_raw"`
	ReconstructedTime *time.Time `json:"reconstructed_time,omitempty"`
}

// Clock implements Entry.
func (s *Stamp) Clock() uint32 { return s.TimeRaw }

// Time implements Entry.
func (s *Stamp) Time() (time.Time, bool) {
	if s.ReconstructedTime == nil {
		return time.Time{}, false
	}
	return *s.ReconstructedTime, true
}

func (s *Stamp) setTime(t time.Time) {
	s.ReconstructedTime = &t
}

// DataEntry is a captured credential payload with any decodes that applied.
type DataEntry struct {
	Stamp
	DataHex   string                `json:"data_hex"`
	BitLength uint                  `json:"bit_length"`
	Wiegand26 *credential.Wiegand26 `json:"wiegand26,omitempty"`
	Keypad    []string              `json:"keypad,omitempty"`
	UIDGuess  *credential.UIDGuess  `json:"uid_guess,omitempty"`
}

// AuxEntry records a change of the aux input level.
type AuxEntry struct {
	Stamp
	AuxLevel bool   `json:"aux_level"`
	Message  string `json:"message"`
}

// TextEntry is any other timestamped device message.
type TextEntry struct {
	Stamp
	Message string `json:"message"`
}

func (*DataEntry) Kind() Kind { return KindData }
func (*AuxEntry) Kind() Kind  { return KindAux }
func (*TextEntry) Kind() Kind { return KindText }

// MarshalJSON encodes the entry with its "type" tag.
func (e *DataEntry) MarshalJSON() ([]byte, error) {
	type plain DataEntry
	return json.Marshal(struct {
		Type Kind `json:"type"`
		*plain
	}{KindData, (*plain)(e)})
}

// MarshalJSON encodes the entry with its "type" tag.
func (e *AuxEntry) MarshalJSON() ([]byte, error) {
	type plain AuxEntry
	return json.Marshal(struct {
		Type Kind `json:"type"`
		*plain
	}{KindAux, (*plain)(e)})
}

// MarshalJSON encodes the entry with its "type" tag.
func (e *TextEntry) MarshalJSON() ([]byte, error) {
	type plain TextEntry
	return json.Marshal(struct {
		Type Kind `json:"type"`
		*plain
	}{KindText, (*plain)(e)})
}

// Log is an ordered sequence of entries that round-trips through JSON with
// a "type" tag on every element.
type Log []Entry

// UnmarshalJSON decodes a tagged entry array.
func (l *Log) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Log, 0, len(raw))
	for i, item := range raw {
		var tag struct {
			Type Kind `json:"type"`
		}
		if err := json.Unmarshal(item, &tag); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		var entry Entry
		switch tag.Type {
		case KindData:
			entry = &DataEntry{}
		case KindAux:
			entry = &AuxEntry{}
		case KindText:
			entry = &TextEntry{}
		default:
			return fmt.Errorf("entry %d: unknown type %q", i, tag.Type)
		}
		if err := json.Unmarshal(item, entry); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, entry)
	}
	*l = out
	return nil
}
