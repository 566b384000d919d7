package devicelog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestEntryJSON_CarriesTypeTag(t *testing.T) {
	entries := Parse("100 hello\n200 Aux changed to 0\n300 0aadc39:26")

	data, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got := string(data)
	for _, want := range []string{
		`"type":"text"`,
		`"type":"aux"`,
		`"type":"data"`,
		`"wiegand26":{"facility_code":85,"card_number":28188}`,
		`"aux_level":false`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("JSON %s missing %s", got, want)
		}
	}
	if strings.Contains(got, "reconstructed_time") {
		t.Fatalf("JSON %s contains reconstructed_time for undated entries", got)
	}
}

func TestExport_RoundTrip(t *testing.T) {
	entries := Decode("1000 boot\n2000 e1d2c3b4:32\n3000 Aux changed to 1", &Anchor{
		DeviceClock: 4000,
		RequestedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	export := Export{
		Entries:  entries,
		Metadata: ExportMetadata{ESPKey: "lab", Retrieved: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
	}

	data, err := export.Marshal(true)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), "\n    \"entries\"") {
		t.Fatalf("pretty export not indented with four spaces:\n%s", data)
	}

	path := filepath.Join(t.TempDir(), "log.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	back, err := ReadExport(path)
	if err != nil {
		t.Fatalf("ReadExport: %v", err)
	}
	if !reflect.DeepEqual(back, export) {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", back, export)
	}
}

func TestLogUnmarshal_UnknownType(t *testing.T) {
	var l Log
	err := json.Unmarshal([]byte(`[{"type":"bogus","time_raw":1}]`), &l)
	if err == nil || !strings.Contains(err.Error(), "unknown type") {
		t.Fatalf("Unmarshal error = %v, want unknown type", err)
	}
}

func TestExport_MarshalEmptyEntries(t *testing.T) {
	data, err := Export{}.Marshal(false)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"entries":[]`) {
		t.Fatalf("Marshal = %s, want empty entries array", data)
	}
}
