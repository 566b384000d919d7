package logtail

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Read returns the last maxLines lines of the file at path. maxLines <= 0
// returns every line.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	lines, err := Tail(file, maxLines)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	return lines, nil
}

// ReadText is Read joined back into newline-separated text, ready for
// devicelog.Parse.
func ReadText(path string, maxLines int) (string, error) {
	lines, err := Read(path, maxLines)
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

// Tail returns the last maxLines lines from r in order, keeping at most
// maxLines in memory. maxLines <= 0 returns every line.
func Tail(r io.Reader, maxLines int) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		return lines, scanner.Err()
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := range count {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}
