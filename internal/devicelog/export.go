package devicelog

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Export is the on-disk form of a decoded device log.
type Export struct {
	Entries  Log            `json:"entries"`
	Metadata ExportMetadata `json:"metadata"`
}

// ExportMetadata identifies where and when a log was retrieved.
type ExportMetadata struct {
	ESPKey    string    `json:"espkey"`
	Retrieved time.Time `json:"retrieved"`
}

// Marshal encodes the export, indented with four spaces when pretty is set.
func (e Export) Marshal(pretty bool) ([]byte, error) {
	if e.Entries == nil {
		e.Entries = Log{}
	}
	if pretty {
		return json.MarshalIndent(e, "", "    ")
	}
	return json.Marshal(e)
}

// ReadExport loads a decoded log previously written with Marshal.
func ReadExport(path string) (Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Export{}, fmt.Errorf("read export: %w", err)
	}
	var export Export
	if err := json.Unmarshal(data, &export); err != nil {
		return Export{}, fmt.Errorf("parse export %s: %w", path, err)
	}
	return export, nil
}
