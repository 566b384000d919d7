// Package espkey provides an HTTP client for the ESPKey web interface.
//
// # Overview
//
// The ESPKey is a small Wiegand sniffer built on an ESP8266. Its firmware
// serves a handful of plain HTTP endpoints, optionally behind basic auth.
// Client wraps them as semantic operations and hands log text to package
// devicelog for decoding.
//
// # Endpoints
//
//	GET  /log.txt        device log (text)          GetLog
//	GET  /config.json    device configuration       GetConfig
//	GET  /all            diagnostics incl. gpio     GetDiagnostics
//	GET  /version        firmware version           GetVersion
//	GET  /delete         clear the log              DeleteLog(false)
//	POST /edit           upload empty /log.txt      DeleteLog(true)
//	GET  /restart        reboot                     Restart
//	GET  /txid?v=H:B     replay a Wiegand frame     SendWiegand
//
// Older firmware lacks /delete; DeleteLog(true) overwrites the log through the
// file editor's multipart upload instead.
//
// # Timing
//
// Every response carries a "Now" header with the device's relative clock in
// milliseconds since boot. The client records when each request was issued
// (Response.RequestedAt) and parses that header (Response.DeviceClock). GetLog
// uses the pair as the anchor for time reconstruction.
//
// # Errors
//
// A non-2xx status yields a *StatusError so callers can tell a failed request
// from a successful empty result. Transport failures are wrapped as
// "execute request: ...". Nothing is retried. Requests time out after
// DefaultTimeout unless WithTimeout says otherwise.
package espkey
