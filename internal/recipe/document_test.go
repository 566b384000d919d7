package recipe

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func taskNames(doc *Document) string {
	names := make([]string, len(doc.Tasks))
	for i, task := range doc.Tasks {
		names[i] = task.Name
	}
	return strings.Join(names, ",")
}

func TestParse_JSONCKeepsTaskOrder(t *testing.T) {
	doc, err := Parse([]byte(`{
		// lab bench
		"espkeys": {"door": {"base_url": "http://192.168.4.1", "web_user": "admin", "web_pass": "x"}},
		"tasks": {
			"zeta": {"target": "door", "actions": [{"operation": "get_log"}]},
			/* runs second */
			"alpha": {"target": "door", "pretty_json": false, "actions": [
				{"operation": "send_weigand", "data": "0aadc39:26"},
			]},
		},
	}`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got := taskNames(doc); got != "zeta,alpha" {
		t.Fatalf("task order = %q, want zeta,alpha", got)
	}
	if doc.Tasks[0].Pretty() != true || doc.Tasks[1].Pretty() != false {
		t.Fatalf("Pretty = %v,%v, want true,false", doc.Tasks[0].Pretty(), doc.Tasks[1].Pretty())
	}
	if doc.ESPKeys["door"].WebUser != "admin" {
		t.Fatalf("espkey = %+v", doc.ESPKeys["door"])
	}
	if err := Validate(doc); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestParseYAML_KeepsTaskOrder(t *testing.T) {
	doc, err := ParseYAML([]byte(`
config:
  output_dir: runs
espkeys:
  door:
    base_url: http://192.168.4.1
tasks:
  second_alphabetically:
    target: door
    actions:
      - operation: delay
        sec: 0.5
  a_first:
    target: door
    actions:
      - operation: delete_log
        with_post: true
`))
	if err != nil {
		t.Fatalf("ParseYAML returned error: %v", err)
	}
	if got := taskNames(doc); got != "second_alphabetically,a_first" {
		t.Fatalf("task order = %q", got)
	}
	action, problems := doc.Tasks[0].Actions[0].Compile()
	if len(problems) != 0 || action != (Delay{Seconds: 0.5}) {
		t.Fatalf("Compile = %#v %v, want Delay 0.5", action, problems)
	}
	action, _ = doc.Tasks[1].Actions[0].Compile()
	if action != (DeleteLog{ViaPost: true}) {
		t.Fatalf("Compile = %#v, want DeleteLog via post", action)
	}
	if doc.Settings == nil || doc.Settings.OutputDir != "runs" {
		t.Fatalf("Settings = %+v", doc.Settings)
	}
}

func TestReadFile_PicksFormatAndResolvesOutputDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bench.yml")
	content := "espkeys: {door: {base_url: 'http://a'}}\ntasks: {t: {target: door, actions: []}}\nconfig: {output_dir: out}\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	doc, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile returned error: %v", err)
	}
	if doc.Path != path {
		t.Fatalf("Path = %q, want %q", doc.Path, path)
	}
	if got := doc.OutputDir("/fallback"); got != filepath.Join(dir, "out") {
		t.Fatalf("OutputDir = %q", got)
	}
	doc.Settings = nil
	if got := doc.OutputDir("/fallback"); got != "/fallback" {
		t.Fatalf("OutputDir = %q, want fallback", got)
	}
}

func TestReadFile_Errors(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil || !strings.Contains(err.Error(), "read recipe") {
		t.Fatalf("ReadFile error = %v, want read recipe", err)
	}
	if _, err := Parse([]byte(`{"tasks": [1, 2]}`)); err == nil || !strings.Contains(err.Error(), "parse recipe") {
		t.Fatalf("Parse error = %v, want parse recipe", err)
	}
}

func TestTasks_MarshalKeepsOrder(t *testing.T) {
	tasks := Tasks{
		{Name: "b", TaskSpec: TaskSpec{Target: "door", Actions: []ActionSpec{{Operation: OpRestart}}}},
		{Name: "a", TaskSpec: TaskSpec{Target: "door", Actions: []ActionSpec{}}},
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.HasPrefix(string(data), `{"b":`) {
		t.Fatalf("Marshal = %s, want b first", data)
	}
	var back Tasks
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(back) != 2 || back[0].Name != "b" || back[1].Name != "a" {
		t.Fatalf("round trip = %+v", back)
	}
}
