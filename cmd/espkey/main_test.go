package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeDevice struct {
	hits []string
}

func (f *fakeDevice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.hits = append(f.hits, r.URL.RequestURI())
	switch r.URL.Path {
	case "/log.txt":
		_, _ = io.WriteString(w, "1000 boot\n2000 0aadc39:26\n")
	case "/version":
		_ = json.NewEncoder(w).Encode(map[string]any{"version": "1.2"})
	case "/delete", "/restart", "/txid":
	default:
		http.NotFound(w, r)
	}
}

func startDevice(t *testing.T) (*fakeDevice, string) {
	t.Helper()
	dev := &fakeDevice{}
	srv := httptest.NewServer(dev)
	t.Cleanup(srv.Close)
	return dev, srv.URL
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"CONFIG_FILE", "BASE_URL", "WEB_USER", "WEB_PASS", "DEVICE", "TIMEOUT", "OUTPUT_DIR", "LOG_LEVEL"} {
		t.Setenv("EKA_"+key, "")
	}

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestGetVersionCommand(t *testing.T) {
	_, url := startDevice(t)
	out, err := execute(t, "--base-url", url, "get-version")
	if err != nil {
		t.Fatalf("get-version returned error: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got["version"] != "1.2" {
		t.Errorf("version = %v, want 1.2", got["version"])
	}
	if !strings.Contains(out, "\n    \"version\"") {
		t.Errorf("output not indented with four spaces:\n%s", out)
	}
}

func TestGetLogCommand(t *testing.T) {
	_, url := startDevice(t)
	out, err := execute(t, "--base-url", url, "get-log", "--tail", "1")
	if err != nil {
		t.Fatalf("get-log returned error: %v", err)
	}
	var got struct {
		Entries []map[string]any `json:"entries"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(got.Entries) != 1 || got.Entries[0]["type"] != "data" {
		t.Errorf("entries = %v, want the single data entry", got.Entries)
	}
}

func TestGetLogCommand_FileToOut(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "door.txt")
	if err := os.WriteFile(in, []byte("1000 boot\nAux changed to 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	outPath := filepath.Join(dir, "door.json")

	out, err := execute(t, "get-log", "--file", in, "--out", outPath)
	if err != nil {
		t.Fatalf("get-log returned error: %v", err)
	}
	if !strings.Contains(out, "wrote") {
		t.Errorf("output = %q, want a confirmation", out)
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Errorf("export not written: %v", err)
	}
}

func TestSendWiegandCommand(t *testing.T) {
	dev, url := startDevice(t)
	if _, err := execute(t, "--base-url", url, "send-wiegand", "0aadc39:26"); err != nil {
		t.Fatalf("send-wiegand returned error: %v", err)
	}
	if len(dev.hits) != 1 || dev.hits[0] != "/txid?v=0aadc39:26" {
		t.Errorf("hits = %v, want [/txid?v=0aadc39:26]", dev.hits)
	}
}

func TestSendWiegandCommand_RejectsBadFrame(t *testing.T) {
	dev, url := startDevice(t)
	if _, err := execute(t, "--base-url", url, "send-wiegand", "xyz"); err == nil {
		t.Fatal("send-wiegand accepted a malformed frame")
	}
	if len(dev.hits) != 0 {
		t.Errorf("hits = %v, want none", dev.hits)
	}
}

func TestCommandsRequireDevice(t *testing.T) {
	for _, args := range [][]string{{"get-config"}, {"restart"}, {"delete-log"}} {
		if _, err := execute(t, args...); err == nil {
			t.Errorf("%v returned nil error without a device", args)
		}
	}
}

func TestRecipeCommand(t *testing.T) {
	dev, url := startDevice(t)
	dir := t.TempDir()
	doc := "espkeys:\n  door:\n    base_url: " + url + "\n" +
		"tasks:\n  check:\n    target: door\n    actions:\n      - operation: delay\n        sec: 0\n      - operation: get_version\n"
	path := filepath.Join(dir, "recipe.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--output-dir", dir, "recipe", path)
	if err != nil {
		t.Fatalf("recipe returned error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "check (door)") {
		t.Errorf("output = %q, want the task line", out)
	}
	if len(dev.hits) != 1 || dev.hits[0] != "/version" {
		t.Errorf("hits = %v, want [/version]", dev.hits)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*_door_check.json"))
	if len(matches) != 1 {
		t.Errorf("run records = %v, want one", matches)
	}
}

func TestRecipeCommand_InvalidRecipe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"tasks": {}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := execute(t, "recipe", path)
	if err == nil || !strings.Contains(err.Error(), `"espkeys"`) {
		t.Fatalf("recipe error = %v, want one naming \"espkeys\"", err)
	}
}
