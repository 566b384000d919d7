package espkey

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseBaseURL_Normalizes(t *testing.T) {
	u, err := parseBaseURL("192.168.4.1")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" || u.Host != "192.168.4.1" {
		t.Fatalf("url = %q, want http://192.168.4.1", u.String())
	}

	u, err = parseBaseURL("https://espkey.local:8443/path?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}

	if _, err := parseBaseURL("   "); err == nil {
		t.Fatalf("parseBaseURL(blank) returned nil error")
	}
}

type fakeDevice struct {
	t       *testing.T
	clock   string
	log     string
	hits    []string
	auth    []string
	uploads []string
}

func (f *fakeDevice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.hits = append(f.hits, r.Method+" "+r.URL.RequestURI())
	if user, pass, ok := r.BasicAuth(); ok {
		f.auth = append(f.auth, user+":"+pass)
	}
	if f.clock != "" {
		w.Header().Set("Now", f.clock)
	}
	switch r.URL.Path {
	case "/log.txt":
		_, _ = io.WriteString(w, f.log)
	case "/config.json":
		_ = json.NewEncoder(w).Encode(map[string]any{"ssid": "espkey"})
	case "/version":
		_ = json.NewEncoder(w).Encode(map[string]any{"version": "1.2"})
	case "/all":
		_ = json.NewEncoder(w).Encode(map[string]any{"gpio": 1<<13 | 1<<5, "heap": 1000})
	case "/edit":
		file, header, err := r.FormFile("file")
		if err != nil {
			f.t.Errorf("FormFile: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		body, _ := io.ReadAll(file)
		f.uploads = append(f.uploads, header.Filename+"="+string(body))
	case "/delete", "/restart", "/txid":
	default:
		http.NotFound(w, r)
	}
}

func newFakeClient(t *testing.T, dev *fakeDevice, opts ...Option) *Client {
	t.Helper()
	dev.t = t
	server := httptest.NewServer(dev)
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, opts...)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func TestClient_GetLogDecodesAndDates(t *testing.T) {
	dev := &fakeDevice{clock: "10000", log: "1000 boot\r\n6000 0aadc39:26\r\n"}
	c := newFakeClient(t, dev, WithCredentials("admin", "secret"))
	requested := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return requested }

	entries, err := c.GetLog(context.Background())
	if err != nil {
		t.Fatalf("GetLog returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("GetLog returned %d entries, want 2", len(entries))
	}
	got, ok := entries[1].Time()
	if !ok || !got.Equal(requested.Add(-4*time.Second)) {
		t.Fatalf("entry time = %v (ok=%v), want %v", got, ok, requested.Add(-4*time.Second))
	}
	if len(dev.auth) != 1 || dev.auth[0] != "admin:secret" {
		t.Fatalf("basic auth = %v, want admin:secret", dev.auth)
	}
}

func TestClient_GetLogWithoutClockHeaderIsUndated(t *testing.T) {
	dev := &fakeDevice{log: "1000 boot\n"}
	c := newFakeClient(t, dev)

	entries, err := c.GetLog(context.Background())
	if err != nil {
		t.Fatalf("GetLog returned error: %v", err)
	}
	if _, ok := entries[0].Time(); ok {
		t.Fatalf("entry dated without a device clock")
	}
	if len(dev.auth) != 0 {
		t.Fatalf("basic auth sent without credentials: %v", dev.auth)
	}
}

func TestClient_JSONEndpoints(t *testing.T) {
	dev := &fakeDevice{clock: "42"}
	c := newFakeClient(t, dev)
	ctx := context.Background()

	cfg, err := c.GetConfig(ctx)
	if err != nil || cfg["ssid"] != "espkey" {
		t.Fatalf("GetConfig = %v, %v; want ssid=espkey", cfg, err)
	}
	version, err := c.GetVersion(ctx)
	if err != nil || version["version"] != "1.2" {
		t.Fatalf("GetVersion = %v, %v; want version=1.2", version, err)
	}

	diag, err := c.GetDiagnostics(ctx)
	if err != nil {
		t.Fatalf("GetDiagnostics returned error: %v", err)
	}
	if !diag.Parsed.Green || diag.Parsed.White || !diag.Parsed.Aux {
		t.Fatalf("diagnostics parsed = %+v, want green+aux", diag.Parsed)
	}
	data, err := json.Marshal(diag)
	if err != nil {
		t.Fatalf("Marshal diagnostics: %v", err)
	}
	if !strings.Contains(string(data), `"heap":1000`) || !strings.Contains(string(data), `"parsed":{"green":true,"white":false,"aux":true}`) {
		t.Fatalf("diagnostics JSON = %s", data)
	}
}

func TestClient_CommandEndpoints(t *testing.T) {
	dev := &fakeDevice{}
	c := newFakeClient(t, dev)
	ctx := context.Background()

	if err := c.DeleteLog(ctx, false); err != nil {
		t.Fatalf("DeleteLog(false): %v", err)
	}
	if err := c.DeleteLog(ctx, true); err != nil {
		t.Fatalf("DeleteLog(true): %v", err)
	}
	if err := c.Restart(ctx); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if err := c.SendWiegand(ctx, "0aadc39", 26); err != nil {
		t.Fatalf("SendWiegand: %v", err)
	}

	want := []string{
		"GET /delete",
		"POST /edit",
		"GET /restart",
		"GET /txid?v=0aadc39:26",
	}
	if strings.Join(dev.hits, ",") != strings.Join(want, ",") {
		t.Fatalf("requests = %v, want %v", dev.hits, want)
	}
	if len(dev.uploads) != 1 || dev.uploads[0] != "log.txt=" {
		t.Fatalf("uploads = %v, want one empty log.txt", dev.uploads)
	}
}

func TestClient_SendWiegandRejectsBadFrame(t *testing.T) {
	dev := &fakeDevice{}
	c := newFakeClient(t, dev)
	if err := c.SendWiegand(context.Background(), "xyz&a=b", 26); err == nil {
		t.Fatalf("SendWiegand accepted non-hex data")
	}
	if err := c.SendWiegand(context.Background(), "0aadc39", 0); err == nil {
		t.Fatalf("SendWiegand accepted zero bits")
	}
	if len(dev.hits) != 0 {
		t.Fatalf("bad frames reached the device: %v", dev.hits)
	}
}

func TestClient_StatusAndDecodeErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/version":
			_, _ = w.Write([]byte("{not-json"))
		case "/all":
			_, _ = w.Write([]byte(`{"heap": 1}`))
		default:
			http.Error(w, "nope", http.StatusUnauthorized)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := context.Background()

	_, err = c.GetLog(ctx)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusUnauthorized || statusErr.Path != "/log.txt" {
		t.Fatalf("GetLog error = %v, want StatusError 401 for /log.txt", err)
	}
	if err := c.Restart(ctx); !errors.As(err, &statusErr) {
		t.Fatalf("Restart error = %v, want StatusError", err)
	}
	if _, err := c.GetVersion(ctx); err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("GetVersion error = %v, want decode response error", err)
	}
	if _, err := c.GetDiagnostics(ctx); err == nil || !strings.Contains(err.Error(), "gpio") {
		t.Fatalf("GetDiagnostics error = %v, want gpio error", err)
	}
}

func TestClient_TransportError(t *testing.T) {
	c, err := NewClient("127.0.0.1:1", WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, err = c.GetVersion(context.Background())
	if err == nil || !strings.Contains(err.Error(), "execute request") {
		t.Fatalf("GetVersion error = %v, want execute request error", err)
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		t.Fatalf("transport failure reported as status error: %v", err)
	}
}

func TestParseFrame(t *testing.T) {
	f, err := ParseFrame("0AADC39:26")
	if err != nil || f.Hex != "0AADC39" || f.Bits != 26 {
		t.Fatalf("ParseFrame = %+v, %v", f, err)
	}
	for _, bad := range []string{"", "0aadc39", "0aadc39:", ":26", "0aadc39:0", "xyz:26", "0aadc39:26:1"} {
		if _, err := ParseFrame(bad); err == nil {
			t.Errorf("ParseFrame(%q) returned nil error", bad)
		}
	}
}
