package mirror

import (
	"bufio"
	"bytes"
	"strings"
)

// parseMirrorList splits a MirrorManager mirrorlist response into mirror
// base URLs. Lines starting with '#' are comments; the marker must be in
// the first column.
func parseMirrorList(data []byte) []string {
	var mirrors []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	for scanner.Scan() {
		raw := scanner.Text()
		if strings.HasPrefix(raw, "#") {
			continue
		}
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		mirrors = append(mirrors, line)
	}
	return mirrors
}
