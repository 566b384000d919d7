// Package credential decodes raw access-control payloads captured by an
// ESPKey into the credential formats they most likely carry.
//
// Every decoder is a pure function. A decoder whose preconditions do not hold
// (wrong length, failed nibble check, unknown key) reports false instead of
// returning an error: an undecodable payload is an expected outcome, and the
// caller simply leaves the corresponding annotation off the log entry.
//
// Supported formats:
//
//   - HID 26-bit Wiegand: facility code (bits 17-24) and card number
//     (bits 1-16); parity bits are not checked.
//   - HID keypad: one byte per key, high nibble = complement of low nibble.
//   - Short UIDs: 4, 7 or 10 byte card UIDs (32, 56, 80 bits), byte-reversed.
//   - Diagnostics: green, white and aux pin levels from the GPIO register.
package credential
