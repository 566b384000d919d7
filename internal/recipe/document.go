package recipe

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Document is a parsed recipe. Nil maps and slices mean the key was absent.
type Document struct {
	ESPKeys  map[string]Target `json:"espkeys"`
	Tasks    Tasks             `json:"tasks"`
	Settings *Settings         `json:"config,omitempty"`

	// Path is the file the document was read from, if any.
	Path string `json:"-"`
}

// Target is one device a recipe talks to.
type Target struct {
	BaseURL string `json:"base_url"`
	WebUser string `json:"web_user,omitempty"`
	WebPass string `json:"web_pass,omitempty"`

	problems fieldProblems
}

// UnmarshalJSON decodes a target, recording mistyped fields for Validate.
func (t *Target) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*t = Target{problems: fieldProblems{{msg: fmt.Sprintf("espkey must be an object, got %s", compactJSON(data))}}}
		return nil
	}
	var out Target
	for field, dst := range map[string]*string{"base_url": &out.BaseURL, "web_user": &out.WebUser, "web_pass": &out.WebPass} {
		if v := optionalField[string](raw, field, "a string", &out.problems); v != nil {
			*dst = *v
		}
	}
	sort.Slice(out.problems, func(i, j int) bool { return out.problems[i].field < out.problems[j].field })
	*t = out
	return nil
}

// Settings holds optional recipe-wide options.
type Settings struct {
	OutputDir string `json:"output_dir,omitempty"`
}

// Task is a named task, kept in document order.
type Task struct {
	Name string
	TaskSpec
}

// TaskSpec is the body of a task.
type TaskSpec struct {
	Target     string       `json:"target"`
	Actions    []ActionSpec `json:"actions"`
	PrettyJSON *bool        `json:"pretty_json,omitempty"`

	problems fieldProblems
}

// UnmarshalJSON decodes a task body. Fields of the wrong JSON type are kept
// as problems for Validate instead of failing the whole document.
func (t *TaskSpec) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*t = TaskSpec{problems: fieldProblems{{msg: fmt.Sprintf("task must be an object, got %s", compactJSON(data))}}}
		return nil
	}
	var out TaskSpec
	if v := optionalField[string](raw, "target", "a string", &out.problems); v != nil {
		out.Target = *v
	}
	if v := optionalField[[]ActionSpec](raw, "actions", "an array", &out.problems); v != nil {
		out.Actions = *v
	}
	out.PrettyJSON = optionalField[bool](raw, "pretty_json", "a boolean", &out.problems)
	*t = out
	return nil
}

// Pretty reports whether run records for the task are indented.
func (t TaskSpec) Pretty() bool {
	return t.PrettyJSON == nil || *t.PrettyJSON
}

// ActionSpec is an action as written in the document, before validation.
type ActionSpec struct {
	Operation  string          `json:"operation"`
	Data       *string         `json:"data,omitempty"`
	Sec        json.RawMessage `json:"sec,omitempty"`
	WithPost   *bool           `json:"with_post,omitempty"`
	FileAction string          `json:"file_action,omitempty"`

	problems fieldProblems
}

// UnmarshalJSON decodes an action, recording mistyped fields for Compile.
func (s *ActionSpec) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*s = ActionSpec{problems: fieldProblems{{msg: fmt.Sprintf("action must be an object, got %s", compactJSON(data))}}}
		return nil
	}
	var out ActionSpec
	if v := optionalField[string](raw, "operation", "a string", &out.problems); v != nil {
		out.Operation = *v
	}
	out.Data = optionalField[string](raw, "data", "a string", &out.problems)
	out.WithPost = optionalField[bool](raw, "with_post", "a boolean", &out.problems)
	if v := optionalField[string](raw, "file_action", "a string", &out.problems); v != nil {
		out.FileAction = *v
	}
	if v, ok := raw["sec"]; ok && !isNull(v) {
		out.Sec = v
	}
	*s = out
	return nil
}

// fieldProblem is a field whose JSON type is wrong. An empty field means the
// whole value was.
type fieldProblem struct {
	field string
	msg   string
}

type fieldProblems []fieldProblem

func (p fieldProblems) has(field string) bool {
	for _, fp := range p {
		if fp.field == field || fp.field == "" {
			return true
		}
	}
	return false
}

func (p fieldProblems) messages() []string {
	out := make([]string, 0, len(p))
	for _, fp := range p {
		out = append(out, fp.msg)
	}
	return out
}

// optionalField decodes raw[field]. Absent, null and mistyped fields give
// nil; a mistyped one is also appended to problems.
func optionalField[T any](raw map[string]json.RawMessage, field, kind string, problems *fieldProblems) *T {
	v, ok := raw[field]
	if !ok || isNull(v) {
		return nil
	}
	var out T
	if err := json.Unmarshal(v, &out); err != nil {
		*problems = append(*problems, fieldProblem{
			field: field,
			msg:   fmt.Sprintf("%s must be %s, got %s", field, kind, compactJSON(v)),
		})
		return nil
	}
	return &out
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func compactJSON(v []byte) string {
	var b bytes.Buffer
	if err := json.Compact(&b, v); err != nil {
		return strings.TrimSpace(string(v))
	}
	return b.String()
}

// Tasks is the ordered task mapping. It reads a JSON object and keeps the
// key order, which is the execution order.
type Tasks []Task

// UnmarshalJSON decodes a JSON object into tasks in key order.
func (t *Tasks) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("tasks must be an object")
	}
	out := Tasks{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("tasks: unexpected key %v", tok)
		}
		var spec TaskSpec
		if err := dec.Decode(&spec); err != nil {
			return fmt.Errorf("tasks.%s: %w", name, err)
		}
		out = append(out, Task{Name: name, TaskSpec: spec})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*t = out
	return nil
}

// MarshalJSON writes tasks back as an object in order.
func (t Tasks) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, task := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(task.Name)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(task.TaskSpec)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Parse decodes a JSON recipe. Comments and trailing commas are allowed.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return nil, fmt.Errorf("parse recipe: %w", err)
	}
	return &doc, nil
}

// ParseYAML decodes a YAML recipe. Mapping order is preserved.
func ParseYAML(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse recipe: %w", err)
	}
	var buf bytes.Buffer
	if err := writeYAMLAsJSON(&buf, &root); err != nil {
		return nil, fmt.Errorf("parse recipe: %w", err)
	}
	return Parse(buf.Bytes())
}

// ReadFile reads a recipe from disk, picking the format by extension:
// .yaml and .yml are YAML, anything else is JSON with comments allowed.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe: %w", err)
	}

	var doc *Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		doc, err = ParseYAML(data)
	default:
		doc, err = Parse(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}

// OutputDir returns the recipe's output directory, relative paths resolved
// against the recipe file. fallback is used when the recipe names none.
func (d *Document) OutputDir(fallback string) string {
	if d.Settings == nil || strings.TrimSpace(d.Settings.OutputDir) == "" {
		return fallback
	}
	dir := strings.TrimSpace(d.Settings.OutputDir)
	if filepath.IsAbs(dir) || d.Path == "" {
		return dir
	}
	return filepath.Join(filepath.Dir(d.Path), dir)
}

func writeYAMLAsJSON(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Kind {
	case 0:
		buf.WriteString("null")
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeYAMLAsJSON(buf, n.Content[0])
	case yaml.AliasNode:
		return writeYAMLAsJSON(buf, n.Alias)
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(n.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeYAMLAsJSON(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, child := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeYAMLAsJSON(buf, child); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return err
		}
		out, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		buf.Write(out)
	default:
		return errors.New("unsupported yaml node")
	}
	return nil
}
