// Package distro identifies the running Fedora release and machine architecture.
package distro

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// DefaultOSReleasePaths are read in order; the first one present wins.
var DefaultOSReleasePaths = []string{"/etc/os-release", "/usr/lib/os-release"}

// ErrNotRedHat is returned when os-release does not describe a Red Hat family system.
var ErrNotRedHat = errors.New("not a Red Hat distribution")

// Release describes the installed operating system.
type Release struct {
	ID        string
	Name      string
	VersionID string
}

// Detect reads the os-release file at path, or the first of
// DefaultOSReleasePaths that exists when path is empty.
func Detect(path string) (Release, error) {
	paths := DefaultOSReleasePaths
	if path != "" {
		paths = []string{path}
	}

	var lastErr error
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			lastErr = err
			continue
		}
		defer f.Close()

		fields, err := parseOSRelease(f)
		if err != nil {
			return Release{}, fmt.Errorf("reading %s: %w", p, err)
		}
		return releaseFromFields(fields)
	}
	return Release{}, fmt.Errorf("reading os-release: %w", lastErr)
}

func releaseFromFields(fields map[string]string) (Release, error) {
	if _, ok := fields["REDHAT_SUPPORT_PRODUCT"]; !ok {
		return Release{}, ErrNotRedHat
	}
	r := Release{
		ID:        fields["ID"],
		Name:      fields["NAME"],
		VersionID: fields["VERSION_ID"],
	}
	if r.VersionID == "" {
		return Release{}, fmt.Errorf("os-release has no VERSION_ID")
	}
	return r, nil
}

// parseOSRelease parses the shell-style KEY=value assignments of an
// os-release file.
func parseOSRelease(r io.Reader) (map[string]string, error) {
	fields := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(key)] = unquote(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return fields, nil
}

func unquote(v string) string {
	if len(v) < 2 {
		return v
	}
	switch v[0] {
	case '"':
		if s, err := strconv.Unquote(v); err == nil {
			return s
		}
		return strings.Trim(v, `"`)
	case '\'':
		return strings.Trim(v, "'")
	}
	return v
}
