package espkey

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/url"
	"strconv"

	"github.com/five82/espkey/internal/credential"
	"github.com/five82/espkey/internal/devicelog"
)

var (
	pathLog     = &url.URL{Path: "/log.txt"}
	pathConfig  = &url.URL{Path: "/config.json"}
	pathAll     = &url.URL{Path: "/all"}
	pathVersion = &url.URL{Path: "/version"}
	pathDelete  = &url.URL{Path: "/delete"}
	pathEdit    = &url.URL{Path: "/edit"}
	pathRestart = &url.URL{Path: "/restart"}
)

// deviceLogFile is the name the firmware stores its log under.
const deviceLogFile = "/log.txt"

// Diagnostics is the device's /all payload with the GPIO register decoded.
type Diagnostics struct {
	Fields map[string]any
	GPIO   uint32
	Parsed credential.Diagnostics
}

// MarshalJSON flattens the raw fields and adds the decoded flags under "parsed".
func (d Diagnostics) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Fields)+1)
	maps.Copy(out, d.Fields)
	out["parsed"] = d.Parsed
	return json.Marshal(out)
}

// GetLog fetches and decodes the device log. Entries are dated when the
// device reported its clock alongside the log.
func (c *Client) GetLog(ctx context.Context) (devicelog.Log, error) {
	resp, err := c.Get(ctx, pathLog)
	if err != nil {
		return nil, err
	}
	if err := expectOK(pathLog, resp); err != nil {
		return nil, err
	}
	var anchor *devicelog.Anchor
	if resp.HasDeviceClock {
		anchor = &devicelog.Anchor{DeviceClock: resp.DeviceClock, RequestedAt: resp.RequestedAt}
	}
	return devicelog.Decode(resp.Body, anchor), nil
}

// GetConfig returns the device's configuration document.
func (c *Client) GetConfig(ctx context.Context) (map[string]any, error) {
	return c.getObject(ctx, pathConfig)
}

// GetVersion returns the device's firmware version document.
func (c *Client) GetVersion(ctx context.Context) (map[string]any, error) {
	return c.getObject(ctx, pathVersion)
}

// GetDiagnostics returns the diagnostics payload and its decoded pin levels.
func (c *Client) GetDiagnostics(ctx context.Context) (Diagnostics, error) {
	fields, err := c.getObject(ctx, pathAll)
	if err != nil {
		return Diagnostics{}, err
	}
	raw, ok := fields["gpio"].(float64)
	if !ok || raw < 0 {
		return Diagnostics{}, fmt.Errorf("diagnostics: missing or invalid gpio field")
	}
	gpio := uint32(raw)
	return Diagnostics{
		Fields: fields,
		GPIO:   gpio,
		Parsed: credential.DecodeDiagnostics(gpio),
	}, nil
}

// DeleteLog clears the device log. Firmware without a /delete endpoint needs
// viaPost, which overwrites the log file with an empty upload instead.
func (c *Client) DeleteLog(ctx context.Context, viaPost bool) error {
	if viaPost {
		resp, err := c.PostFile(ctx, pathEdit, deviceLogFile, nil)
		if err != nil {
			return err
		}
		return expectOK(pathEdit, resp)
	}
	return c.getOK(ctx, pathDelete)
}

// Restart reboots the device.
func (c *Client) Restart(ctx context.Context) error {
	return c.getOK(ctx, pathRestart)
}

// SendWiegand asks the device to transmit bits of hexData on the Wiegand bus.
func (c *Client) SendWiegand(ctx context.Context, hexData string, bits uint) error {
	frame, err := ParseFrame(hexData + ":" + strconv.FormatUint(uint64(bits), 10))
	if err != nil {
		return err
	}
	rel := &url.URL{Path: "/txid", RawQuery: "v=" + frame.String()}
	return c.getOK(ctx, rel)
}

func (c *Client) getOK(ctx context.Context, rel *url.URL) error {
	resp, err := c.Get(ctx, rel)
	if err != nil {
		return err
	}
	return expectOK(rel, resp)
}

func (c *Client) getObject(ctx context.Context, rel *url.URL) (map[string]any, error) {
	resp, err := c.Get(ctx, rel)
	if err != nil {
		return nil, err
	}
	if err := expectOK(rel, resp); err != nil {
		return nil, err
	}
	return decodeObject(resp)
}
