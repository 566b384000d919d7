// Package logtail reads the tail of a saved device log.
//
// Device logs copied off an ESPKey (or saved from /log.txt) can be large.
// Read keeps only the last maxLines lines in a ring buffer while scanning
// the file once, so memory stays bounded by maxLines rather than file size:
//
//	text, err := logtail.ReadText("log.txt", 500)
//	if err != nil {
//		return err
//	}
//	entries := devicelog.Parse(text)
//
// CRLF line endings are stripped along with the newline. A maxLines of
// zero or less reads the whole file. Unlike a live tail, a missing file is
// an error.
package logtail
