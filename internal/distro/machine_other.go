//go:build !linux

package distro

import (
	"fmt"
	"runtime"
)

var goarchToMachine = map[string]string{
	"amd64":   "x86_64",
	"arm64":   "aarch64",
	"ppc64le": "ppc64le",
	"s390x":   "s390x",
	"riscv64": "riscv64",
	"386":     "i686",
}

// Machine maps the Go architecture to the name Fedora uses for it.
func Machine() (string, error) {
	if m, ok := goarchToMachine[runtime.GOARCH]; ok {
		return m, nil
	}
	return "", fmt.Errorf("unsupported architecture %q", runtime.GOARCH)
}
