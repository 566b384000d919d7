// Package devicelog parses the text log served by an ESPKey and reconstructs
// wall-clock times for its entries.
//
// # Log Format
//
// Every line starts with the device's relative clock in milliseconds since
// boot. Three shapes are recognised, tried in this order:
//
//	12345 0aadc39:26          data: hex payload and bit length
//	12345 Aux changed to 1    aux input level change
//	12345 anything else       free-form text
//
// Lines matching none of them are dropped. Data entries are decorated with
// whatever credential decodes apply (see package credential): a Wiegand26
// decode for 26-bit frames, a keypad decode for even bit lengths and a UID
// guess for 32, 56 and 80 bit payloads. The decodes are independent of each
// other.
//
// # Time Reconstruction
//
// The device has no real-time clock. Each HTTP response carries the device's
// current relative clock in a "Now" header, and the client records when it
// issued the request. Together they form an Anchor. Reconstruct walks from
// the newest entry to the oldest, applying the relative deltas to the anchor.
//
// A counter that grows while walking backwards means the device rebooted in
// between; nothing older than that point can be dated, so the walk stops
// there. If the newest entry itself sits within DefaultBootGrace of boot, only
// that entry is dated.
//
// Logs read from a file have no anchor and keep their entries undated.
//
// # Export
//
// Log and Export round-trip through JSON. Every entry carries a "type" tag
// ("data", "aux" or "text") so the closed set of variants can be restored.
package devicelog
