package recipe

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"

	"github.com/five82/espkey/internal/devicelog"
)

// DefaultNamePattern prefixes output files with the run start down to
// milliseconds (%L).
const DefaultNamePattern = "%Y%m%d-%H%M%S%L"

const jsonIndent = "    "

// Store writes run records and log exports into a directory.
type Store struct {
	dir     string
	pattern *strftime.Strftime
}

// NewStore returns a Store writing to dir with file names prefixed by
// pattern, or DefaultNamePattern when pattern is empty.
func NewStore(dir, pattern string) (*Store, error) {
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultNamePattern
	}
	f, err := strftime.New(pattern, strftime.WithMilliseconds('L'))
	if err != nil {
		return nil, fmt.Errorf("name pattern: %w", err)
	}
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	return &Store{dir: dir, pattern: f}, nil
}

// Dir returns the output directory.
func (s *Store) Dir() string { return s.dir }

// FileName builds "<start>_<target>_<suffix>.json".
func (s *Store) FileName(start time.Time, target, suffix string) string {
	return s.pattern.FormatString(start.UTC()) + "_" + safeName(target) + "_" + safeName(suffix) + ".json"
}

// WriteRecord persists a run record and returns its path.
func (s *Store) WriteRecord(rec RunRecord, pretty bool) (string, error) {
	data, err := marshal(rec, pretty)
	if err != nil {
		return "", fmt.Errorf("marshal run record: %w", err)
	}
	name := s.FileName(rec.Metadata.RunStart, rec.Metadata.ESPKey, rec.Metadata.Task)
	return s.write(name, data)
}

// WriteLogExport persists a log decoded by the action at index action of
// task and returns its path. The name ends in "_<task>_log-<action>.json", so
// several exports in one task never share a file.
func (s *Store) WriteLogExport(exp devicelog.Export, task string, action int, pretty bool) (string, error) {
	data, err := exp.Marshal(pretty)
	if err != nil {
		return "", fmt.Errorf("marshal log export: %w", err)
	}
	suffix := fmt.Sprintf("%s_log-%d", safeName(task), action)
	name := s.FileName(exp.Metadata.Retrieved, exp.Metadata.ESPKey, suffix)
	return s.write(name, data)
}

// write creates name in the output directory. An existing file is an error,
// never overwritten.
func (s *Store) write(name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

func marshal(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", jsonIndent)
	}
	return json.Marshal(v)
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '-'
		}
		return r
	}, s)
}
